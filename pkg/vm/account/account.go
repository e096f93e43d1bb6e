// Package account implements the account actor, the archetype every key
// address is bound to on first use.
package account

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/builtin"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/filecoin-project/venus-fvm/pkg/state/tree"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/dispatch"
	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
)

// SystemActorID is the id messages from the system are sent from.
const SystemActorID abi.ActorID = 0

// Method numbers exported by the account actor.
const (
	MethodConstructor   = builtin.MethodConstructor
	MethodPubkeyAddress = abi.MethodNum(2)
)

// CodeID is the code CID of the account actor.
var CodeID = mustIdentityCid("fil/1/account")

func mustIdentityCid(name string) cid.Cid {
	c, err := cid.V1Builder{Codec: cid.Raw, MhType: multihash.IDENTITY}.Sum([]byte(name))
	if err != nil {
		panic(err)
	}
	return c
}

// ZeroState returns the state of a freshly created account actor, before its
// constructor runs.
func ZeroState() *tree.Actor {
	return &tree.Actor{
		Code:    CodeID,
		Head:    block.EmptyArrayCid,
		Nonce:   0,
		Balance: big.Zero(),
	}
}

// State is the on-chain state of an account actor.
type State struct {
	Address address.Address
}

// Actor is the native account actor.
type Actor struct{}

var _ dispatch.Actor = Actor{}

// Code implements dispatch.Actor.
func (Actor) Code() cid.Cid {
	return CodeID
}

// Exports implements dispatch.Actor.
func (a Actor) Exports() []interface{} {
	return []interface{}{
		MethodConstructor:   a.Constructor,
		MethodPubkeyAddress: a.PubkeyAddress,
	}
}

// Constructor binds the actor to its key address. Only the system actor may
// construct accounts.
func (a Actor) Constructor(rt *sandbox.Runtime, addr *address.Address) (*abi.EmptyValue, error) {
	rt.ValidateImmediateCallerIs(SystemActorID)
	switch addr.Protocol() {
	case address.SECP256K1, address.BLS:
	default:
		rt.Abortf(exitcode.ErrIllegalArgument, "address must use BLS or SECP protocol, got %v", addr.Protocol())
	}
	rt.StateCreate(&State{Address: *addr})
	return nil, nil
}

// PubkeyAddress returns the key address the actor is bound to.
func (a Actor) PubkeyAddress(rt *sandbox.Runtime, _ *abi.EmptyValue) (*address.Address, error) {
	var st State
	rt.StateReadonly(&st)
	return &st.Address, nil
}
