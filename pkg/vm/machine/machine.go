// Package machine holds the state an execution runs against: the state
// tree, the block store, the execution context and the engines that turn
// code CIDs into runnable modules.
package machine

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/filecoin-project/venus-fvm/pkg/constants"
	"github.com/filecoin-project/venus-fvm/pkg/state/tree"
	"github.com/filecoin-project/venus-fvm/pkg/util/blockstoreutil"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
)

var log = logging.Logger("vm.machine")

// Externs are the chain-level services the machine reaches out to.
type Externs interface {
	GetChainRandomness(ctx context.Context, tag crypto.DomainSeparationTag, epoch abi.ChainEpoch, entropy []byte) ([]byte, error)
}

// Context is the immutable execution context of a machine.
type Context struct {
	NetworkVersion network.Version
	Epoch          abi.ChainEpoch
	BaseFee        abi.TokenAmount
	Pricelist      gas.Pricelist
	Tracing        bool
	MaxCallDepth   uint32
}

// Options configures a new machine.
type Options struct {
	Context

	// StateRoot is the tree to load; cid.Undef starts from an empty tree.
	StateRoot  cid.Cid
	Blockstore blockstoreutil.Blockstore
	Externs    Externs

	Natives *sandbox.NativeEngine
	Wasm    *sandbox.WasmEngine
}

// Machine couples a state tree with a block store and module loading.
type Machine struct {
	context    Context
	state      tree.Tree
	blockstore blockstoreutil.Blockstore
	cst        cbor.IpldStore
	externs    Externs

	natives *sandbox.NativeEngine
	wasm    *sandbox.WasmEngine
}

// New creates a machine over opts.Blockstore.
func New(ctx context.Context, opts Options) (*Machine, error) {
	if opts.Blockstore == nil {
		return nil, fmt.Errorf("machine needs a blockstore")
	}
	if opts.Pricelist == nil {
		return nil, fmt.Errorf("machine needs a pricelist")
	}
	if opts.MaxCallDepth == 0 {
		opts.MaxCallDepth = constants.DefaultMaxCallDepth
	}
	if opts.BaseFee.Nil() {
		opts.BaseFee = big.Zero()
	}

	emptyArray, err := blocks.NewBlockWithCid(block.EmptyArray.Data, block.EmptyArrayCid)
	if err != nil {
		return nil, err
	}
	if err := opts.Blockstore.Put(ctx, emptyArray); err != nil {
		return nil, errors.Wrap(err, "storing empty array")
	}

	cst := blockstoreutil.NewCborStore(opts.Blockstore)
	var st tree.Tree
	if opts.StateRoot == cid.Undef {
		st, err = tree.NewState(ctx, cst)
	} else {
		st, err = tree.LoadState(ctx, cst, opts.StateRoot)
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading state tree")
	}

	log.Debugw("machine created", "root", opts.StateRoot, "nv", opts.NetworkVersion, "epoch", opts.Epoch)
	return &Machine{
		context:    opts.Context,
		state:      st,
		blockstore: opts.Blockstore,
		cst:        cst,
		externs:    opts.Externs,
		natives:    opts.Natives,
		wasm:       opts.Wasm,
	}, nil
}

// Context returns the execution context.
func (m *Machine) Context() *Context {
	return &m.context
}

// StateTree returns the state tree.
func (m *Machine) StateTree() tree.Tree {
	return m.state
}

// Blockstore returns the block store.
func (m *Machine) Blockstore() blockstoreutil.Blockstore {
	return m.blockstore
}

// Store returns an IPLD store over the block store.
func (m *Machine) Store() cbor.IpldStore {
	return m.cst
}

// ChainRandomness draws randomness from the chain.
func (m *Machine) ChainRandomness(ctx context.Context, tag crypto.DomainSeparationTag, epoch abi.ChainEpoch, entropy []byte) ([]byte, error) {
	if m.externs == nil {
		return nil, aerrors.New(exitcode.SysErrForbidden, "no randomness source")
	}
	return m.externs.GetChainRandomness(ctx, tag, epoch, entropy)
}

// CreateActor registers addr and stores act under the fresh id.
func (m *Machine) CreateActor(ctx context.Context, addr address.Address, act *tree.Actor) (abi.ActorID, error) {
	id, err := m.state.RegisterNewAddress(ctx, addr)
	if err != nil {
		return 0, aerrors.Escalate(err, "registering new address")
	}
	if err := m.state.SetActor(ctx, id, act); err != nil {
		return 0, aerrors.Escalate(err, "storing new actor")
	}
	actorsCreated.Inc(ctx, 1)
	log.Debugw("created actor", "addr", addr, "id", id, "code", act.Code)
	return id, nil
}

// Transfer moves value from one actor to another. Value must not be
// negative and the sender must hold at least value.
func (m *Machine) Transfer(ctx context.Context, from, to abi.ActorID, value abi.TokenAmount) error {
	if value.LessThan(big.Zero()) {
		return aerrors.Newf(exitcode.SysErrForbidden, "attempt to transfer negative value %s from %d to %d", value, from, to)
	}

	fromActor, found, err := m.state.GetActor(ctx, from)
	if err != nil {
		return aerrors.Escalate(err, "loading sender")
	}
	if !found {
		return aerrors.Newf(exitcode.SysErrSenderInvalid, "sender actor %d not found", from)
	}
	if fromActor.Balance.LessThan(value) {
		return aerrors.Newf(exitcode.SysErrInsufficientFunds, "sender %d insufficient balance %s to transfer %s to %d", from, fromActor.Balance, value, to)
	}

	if from == to {
		log.Debugw("sending to same actor: noop", "actor", from)
		return nil
	}

	toActor, found, err := m.state.GetActor(ctx, to)
	if err != nil {
		return aerrors.Escalate(err, "loading receiver")
	}
	if !found {
		return aerrors.Newf(exitcode.SysErrInvalidReceiver, "receiver actor %d not found", to)
	}

	fromActor.Balance = big.Sub(fromActor.Balance, value)
	toActor.Balance = big.Add(toActor.Balance, value)

	if err := m.state.SetActor(ctx, from, fromActor); err != nil {
		return aerrors.Escalate(err, "storing sender")
	}
	if err := m.state.SetActor(ctx, to, toActor); err != nil {
		return aerrors.Escalate(err, "storing receiver")
	}
	return nil
}

// LoadModule returns the module for code. Native actors are served first;
// otherwise the code bytes are read from the block store and compiled.
func (m *Machine) LoadModule(ctx context.Context, code cid.Cid) (sandbox.Module, error) {
	if m.natives != nil {
		if mod, ok := m.natives.Module(code); ok {
			return mod, nil
		}
	}
	if m.wasm == nil {
		return nil, aerrors.Newf(exitcode.SysErrInvalidReceiver, "no native actor for code %s", code)
	}

	has, err := m.blockstore.Has(ctx, code)
	if err != nil {
		return nil, aerrors.Escalate(err, "looking up actor code")
	}
	if !has {
		return nil, aerrors.Newf(exitcode.SysErrInvalidReceiver, "actor code %s not found", code)
	}
	blk, err := m.blockstore.Get(ctx, code)
	if err != nil {
		return nil, aerrors.Escalate(err, "loading actor code")
	}
	return m.wasm.Compile(ctx, code, blk.RawData())
}

// Flush writes the state tree and returns its root.
func (m *Machine) Flush(ctx context.Context) (cid.Cid, error) {
	ctx, span := trace.StartSpan(ctx, "machine.Flush")
	defer span.End()

	root, err := m.state.Flush(ctx)
	if err != nil {
		return cid.Undef, errors.Wrap(err, "flushing state tree")
	}
	span.AddAttributes(trace.StringAttribute("root", root.String()))
	return root, nil
}
