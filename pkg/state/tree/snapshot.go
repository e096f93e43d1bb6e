package tree

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
)

type stateSnaps struct {
	layers []*stateSnapLayer
}

type stateSnapLayer struct {
	actors    map[abi.ActorID]streeOp
	addresses map[address.Address]addrOp
	nextID    abi.ActorID
}

func newStateSnapLayer(nextID abi.ActorID) *stateSnapLayer {
	return &stateSnapLayer{
		actors:    make(map[abi.ActorID]streeOp),
		addresses: make(map[address.Address]addrOp),
		nextID:    nextID,
	}
}

type streeOp struct {
	Act    Actor
	Delete bool
}

// addrOp is either a cached lookup of the persisted index or a new
// registration that still has to be flushed.
type addrOp struct {
	ID  abi.ActorID
	New bool
}

func newStateSnaps(nextID abi.ActorID) *stateSnaps {
	ss := &stateSnaps{}
	ss.layers = append(ss.layers, newStateSnapLayer(nextID))
	return ss
}

func (ss *stateSnaps) top() *stateSnapLayer {
	return ss.layers[len(ss.layers)-1]
}

func (ss *stateSnaps) addLayer() {
	ss.layers = append(ss.layers, newStateSnapLayer(ss.top().nextID))
}

func (ss *stateSnaps) dropLayer() {
	ss.layers[len(ss.layers)-1] = nil // allow it to be GCed
	ss.layers = ss.layers[:len(ss.layers)-1]
}

func (ss *stateSnaps) mergeLastLayer() {
	last := ss.layers[len(ss.layers)-1]
	nextLast := ss.layers[len(ss.layers)-2]

	for k, v := range last.actors {
		nextLast.actors[k] = v
	}

	for k, v := range last.addresses {
		nextLast.addresses[k] = v
	}

	nextLast.nextID = last.nextID

	ss.dropLayer()
}

func (ss *stateSnaps) resolveAddress(addr address.Address) (abi.ActorID, bool) {
	for i := len(ss.layers) - 1; i >= 0; i-- {
		op, ok := ss.layers[i].addresses[addr]
		if ok {
			return op.ID, true
		}
	}
	return 0, false
}

func (ss *stateSnaps) cacheResolveAddress(addr address.Address, id abi.ActorID) {
	ss.top().addresses[addr] = addrOp{ID: id}
}

func (ss *stateSnaps) registerAddress(addr address.Address, id abi.ActorID) {
	ss.top().addresses[addr] = addrOp{ID: id, New: true}
}

func (ss *stateSnaps) getActor(id abi.ActorID) (*Actor, error) {
	for i := len(ss.layers) - 1; i >= 0; i-- {
		act, ok := ss.layers[i].actors[id]
		if ok {
			if act.Delete {
				return nil, ErrActorNotFound
			}

			return act.Act.Copy(), nil
		}
	}
	return nil, nil
}

func (ss *stateSnaps) setActor(id abi.ActorID, act *Actor) {
	ss.top().actors[id] = streeOp{Act: *act}
	if id >= ss.top().nextID {
		ss.top().nextID = id + 1
	}
}

func (ss *stateSnaps) deleteActor(id abi.ActorID) {
	ss.top().actors[id] = streeOp{Delete: true}
}

func (ss *stateSnaps) allocateID() abi.ActorID {
	id := ss.top().nextID
	ss.top().nextID++
	return id
}
