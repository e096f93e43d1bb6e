// Package tree implements the state tree: the actor map keyed by actor ID and
// the index from non-ID addresses to actor IDs, with nested snapshots.
package tree

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	hamt "github.com/filecoin-project/go-hamt-ipld/v3"
	"github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	logging "github.com/ipfs/go-log/v2"
	cbg "github.com/whyrusleeping/cbor-gen"
	"go.opencensus.io/trace"
	"golang.org/x/xerrors"
)

var log = logging.Logger("statetree")

// StateTreeVersion is the version written to every state root.
const StateTreeVersion = 1

// FirstNonSingletonActorID is the first ID handed out by RegisterNewAddress.
const FirstNonSingletonActorID abi.ActorID = 100

// Tree is the view of the state tree the execution core depends on.
type Tree interface {
	LookupID(ctx context.Context, addr address.Address) (abi.ActorID, bool, error)
	GetActor(ctx context.Context, id abi.ActorID) (*Actor, bool, error)
	SetActor(ctx context.Context, id abi.ActorID, act *Actor) error
	DeleteActor(ctx context.Context, id abi.ActorID) error
	MutateActor(ctx context.Context, id abi.ActorID, f func(*Actor) error) error
	RegisterNewAddress(ctx context.Context, addr address.Address) (abi.ActorID, error)

	Snapshot(ctx context.Context) error
	ClearSnapshot()
	Revert() error

	Flush(ctx context.Context) (cid.Cid, error)
	ForEach(ctx context.Context, f func(abi.ActorID, *Actor) error) error

	Store() cbor.IpldStore
}

// StateRoot is the persisted root of the tree.
type StateRoot struct {
	Version   uint64
	Actors    cid.Cid
	Addresses cid.Cid
	NextID    abi.ActorID
}

// State stores actors state by their ID.
type State struct {
	actors    *hamt.Node
	addresses *hamt.Node
	store     cbor.IpldStore

	snaps *stateSnaps
}

var _ Tree = (*State)(nil)

func hamtOptions() []hamt.Option {
	return []hamt.Option{
		hamt.UseTreeBitWidth(5),
		hamt.UseHashFunction(func(input []byte) []byte {
			res := sha256.Sum256(input)
			return res[:]
		}),
	}
}

// NewState creates an empty tree.
func NewState(ctx context.Context, cst cbor.IpldStore) (*State, error) {
	actors, err := hamt.NewNode(cst, hamtOptions()...)
	if err != nil {
		return nil, xerrors.Errorf("creating actor map: %w", err)
	}
	addresses, err := hamt.NewNode(cst, hamtOptions()...)
	if err != nil {
		return nil, xerrors.Errorf("creating address index: %w", err)
	}
	return &State{
		actors:    actors,
		addresses: addresses,
		store:     cst,
		snaps:     newStateSnaps(FirstNonSingletonActorID),
	}, nil
}

// LoadState loads the tree rooted at c.
func LoadState(ctx context.Context, cst cbor.IpldStore, c cid.Cid) (*State, error) {
	var root StateRoot
	if err := cst.Get(ctx, c, &root); err != nil {
		log.Errorf("loading state root %s failed: %s", c, err)
		return nil, xerrors.Errorf("loading state root %s: %w", c, err)
	}
	if root.Version != StateTreeVersion {
		return nil, xerrors.Errorf("unsupported state tree version %d", root.Version)
	}

	actors, err := hamt.LoadNode(ctx, cst, root.Actors, hamtOptions()...)
	if err != nil {
		return nil, xerrors.Errorf("loading actor map %s: %w", root.Actors, err)
	}
	addresses, err := hamt.LoadNode(ctx, cst, root.Addresses, hamtOptions()...)
	if err != nil {
		return nil, xerrors.Errorf("loading address index %s: %w", root.Addresses, err)
	}

	return &State{
		actors:    actors,
		addresses: addresses,
		store:     cst,
		snaps:     newStateSnaps(root.NextID),
	}, nil
}

func actorKey(id abi.ActorID) string {
	idAddr, err := address.NewIDAddress(uint64(id))
	if err != nil {
		panic(err)
	}
	return abi.AddrKey(idAddr).Key()
}

// Store returns the store backing the tree.
func (st *State) Store() cbor.IpldStore {
	return st.store
}

// LookupID resolves addr to an actor ID using the address index.
func (st *State) LookupID(ctx context.Context, addr address.Address) (abi.ActorID, bool, error) {
	if addr == address.Undef {
		return 0, false, fmt.Errorf("LookupID called on undefined address")
	}
	if addr.Protocol() == address.ID {
		id, err := address.IDFromAddress(addr)
		if err != nil {
			return 0, false, err
		}
		return abi.ActorID(id), true, nil
	}

	if id, ok := st.snaps.resolveAddress(addr); ok {
		return id, true, nil
	}

	var out cbg.CborInt
	found, err := st.addresses.Find(ctx, abi.AddrKey(addr).Key(), &out)
	if err != nil {
		return 0, false, xerrors.Errorf("address index lookup of %s: %w", addr, err)
	}
	if !found {
		return 0, false, nil
	}

	id := abi.ActorID(out)
	st.snaps.cacheResolveAddress(addr, id)
	return id, true, nil
}

// GetActor returns the actor with the given ID.
func (st *State) GetActor(ctx context.Context, id abi.ActorID) (*Actor, bool, error) {
	snapAct, err := st.snaps.getActor(id)
	if err != nil {
		if xerrors.Is(err, ErrActorNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if snapAct != nil {
		return snapAct, true, nil
	}

	var act Actor
	if found, err := st.actors.Find(ctx, actorKey(id), &act); err != nil {
		return nil, false, xerrors.Errorf("hamt find failed: %w", err)
	} else if !found {
		return nil, false, nil
	}

	return act.Copy(), true, nil
}

// SetActor writes an actor record.
func (st *State) SetActor(ctx context.Context, id abi.ActorID, act *Actor) error {
	if act == nil {
		return xerrors.Errorf("SetActor called with nil actor for %d", id)
	}
	st.snaps.setActor(id, act)
	return nil
}

// DeleteActor removes an actor. Its addresses stay in the index.
func (st *State) DeleteActor(ctx context.Context, id abi.ActorID) error {
	_, found, err := st.GetActor(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return xerrors.Errorf("delete actor %d: %w", id, ErrActorNotFound)
	}

	st.snaps.deleteActor(id)
	return nil
}

// MutateActor loads an actor, applies f and writes the result back.
func (st *State) MutateActor(ctx context.Context, id abi.ActorID, f func(*Actor) error) error {
	act, found, err := st.GetActor(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return xerrors.Errorf("mutate actor %d: %w", id, ErrActorNotFound)
	}

	if err := f(act); err != nil {
		return err
	}

	return st.SetActor(ctx, id, act)
}

// RegisterNewAddress assigns a fresh actor ID to addr.
func (st *State) RegisterNewAddress(ctx context.Context, addr address.Address) (abi.ActorID, error) {
	if addr.Protocol() == address.ID {
		return 0, xerrors.Errorf("cannot register ID address %s", addr)
	}
	if id, found, err := st.LookupID(ctx, addr); err != nil {
		return 0, err
	} else if found {
		return 0, xerrors.Errorf("address %s already registered as %d", addr, id)
	}

	id := st.snaps.allocateID()
	st.snaps.registerAddress(addr, id)
	log.Debugw("registered address", "addr", addr, "id", id)
	return id, nil
}

// Snapshot opens a new transaction layer.
func (st *State) Snapshot(ctx context.Context) error {
	_, span := trace.StartSpan(ctx, "stateTree.SnapShot")
	defer span.End()

	st.snaps.addLayer()

	return nil
}

// ClearSnapshot commits the topmost layer into the one below it.
func (st *State) ClearSnapshot() {
	st.snaps.mergeLastLayer()
}

// Revert discards every change made since the last Snapshot.
func (st *State) Revert() error {
	if len(st.snaps.layers) < 2 {
		return xerrors.Errorf("revert without a snapshot")
	}
	st.snaps.dropLayer()
	st.snaps.addLayer()

	return nil
}

// Flush writes pending changes and returns the new state root.
func (st *State) Flush(ctx context.Context) (cid.Cid, error) {
	ctx, span := trace.StartSpan(ctx, "stateTree.Flush")
	defer span.End()
	if len(st.snaps.layers) != 1 {
		return cid.Undef, xerrors.Errorf("tried to flush state tree with snapshots on the stack")
	}

	for id, sto := range st.snaps.layers[0].actors {
		if sto.Delete {
			if _, err := st.actors.Delete(ctx, actorKey(id)); err != nil {
				return cid.Undef, err
			}
		} else {
			act := sto.Act
			if err := st.actors.Set(ctx, actorKey(id), &act); err != nil {
				return cid.Undef, err
			}
		}
	}

	for addr, op := range st.snaps.layers[0].addresses {
		if !op.New {
			continue
		}
		v := cbg.CborInt(op.ID)
		if err := st.addresses.Set(ctx, abi.AddrKey(addr).Key(), &v); err != nil {
			return cid.Undef, err
		}
	}

	if err := st.actors.Flush(ctx); err != nil {
		return cid.Undef, xerrors.Errorf("flushing actor map: %w", err)
	}
	actorsRoot, err := st.store.Put(ctx, st.actors)
	if err != nil {
		return cid.Undef, xerrors.Errorf("writing actor map: %w", err)
	}
	if err := st.addresses.Flush(ctx); err != nil {
		return cid.Undef, xerrors.Errorf("flushing address index: %w", err)
	}
	addressesRoot, err := st.store.Put(ctx, st.addresses)
	if err != nil {
		return cid.Undef, xerrors.Errorf("writing address index: %w", err)
	}

	nextID := st.snaps.layers[0].nextID
	st.snaps = newStateSnaps(nextID)

	return st.store.Put(ctx, &StateRoot{
		Version:   StateTreeVersion,
		Actors:    actorsRoot,
		Addresses: addressesRoot,
		NextID:    nextID,
	})
}

// ForEach iterates over every actor, including pending changes.
func (st *State) ForEach(ctx context.Context, f func(abi.ActorID, *Actor) error) error {
	seen := make(map[abi.ActorID]struct{})
	for i := len(st.snaps.layers) - 1; i >= 0; i-- {
		for id, op := range st.snaps.layers[i].actors {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if op.Delete {
				continue
			}
			act := op.Act
			if err := f(id, &act); err != nil {
				return err
			}
		}
	}

	return st.actors.ForEach(ctx, func(k string, val *cbg.Deferred) error {
		addr, err := address.NewFromBytes([]byte(k))
		if err != nil {
			return xerrors.Errorf("invalid address (%x) found in state tree key: %w", []byte(k), err)
		}
		id, err := address.IDFromAddress(addr)
		if err != nil {
			return err
		}
		if _, ok := seen[abi.ActorID(id)]; ok {
			return nil
		}

		var act Actor
		if err := act.UnmarshalCBOR(bytes.NewReader(val.Raw)); err != nil {
			return xerrors.Errorf("decoding actor %d: %w", id, err)
		}
		return f(abi.ActorID(id), &act)
	})
}
