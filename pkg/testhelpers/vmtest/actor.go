package vmtest

import (
	"bytes"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
)

// Methods of the test actor.
const (
	MethodStore         = abi.MethodNum(2)
	MethodSendTo        = abi.MethodNum(3)
	MethodFail          = abi.MethodNum(4)
	MethodSendToFailing = abi.MethodNum(5)
	MethodRecurse       = abi.MethodNum(6)
	MethodPanic         = abi.MethodNum(7)
	MethodTransfer      = abi.MethodNum(8)
	MethodRandomness    = abi.MethodNum(9)
	MethodLoad          = abi.MethodNum(10)
)

// TransferAmount is what MethodTransfer sends.
var TransferAmount = abi.NewTokenAmount(5)

// ActorCodeID is the code of the test actor.
var ActorCodeID = func() cid.Cid {
	c, err := cid.V1Builder{Codec: cid.Raw, MhType: multihash.IDENTITY}.Sum([]byte("test/actor"))
	if err != nil {
		panic(err)
	}
	return c
}()

// Actor is a native actor exercising the host surface.
type Actor struct{}

func (Actor) Code() cid.Cid {
	return ActorCodeID
}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		MethodStore:         a.Store,
		MethodSendTo:        a.SendTo,
		MethodFail:          a.Fail,
		MethodSendToFailing: a.SendToFailing,
		MethodRecurse:       a.Recurse,
		MethodPanic:         a.Panic,
		MethodTransfer:      a.Transfer,
		MethodRandomness:    a.Randomness,
		MethodLoad:          a.Load,
	}
}

// Store makes n the state and returns 2n.
func (Actor) Store(rt *sandbox.Runtime, n *cbg.CborInt) (*cbg.CborInt, error) {
	rt.StateCommit(n)
	out := *n * 2
	return &out, nil
}

// Load returns the state.
func (Actor) Load(rt *sandbox.Runtime, _ *abi.EmptyValue) (*cbg.CborInt, error) {
	var st cbg.CborInt
	rt.StateReadonly(&st)
	return &st, nil
}

// SendTo stores 7 at the target and returns the exit code.
func (Actor) SendTo(rt *sandbox.Runtime, to *address.Address) (*cbg.CborInt, error) {
	n := cbg.CborInt(7)
	code, _ := rt.Send(*to, MethodStore, &n, abi.NewTokenAmount(0))
	out := cbg.CborInt(code)
	return &out, nil
}

// Fail stores n and aborts.
func (Actor) Fail(rt *sandbox.Runtime, n *cbg.CborInt) (*abi.EmptyValue, error) {
	rt.StateCommit(n)
	rt.Abortf(exitcode.ErrIllegalArgument, "failing after commit")
	return nil, nil
}

// SendToFailing stores 1, calls Fail on the target and returns its exit code.
func (Actor) SendToFailing(rt *sandbox.Runtime, to *address.Address) (*cbg.CborInt, error) {
	st := cbg.CborInt(1)
	rt.StateCommit(&st)
	n := cbg.CborInt(99)
	code, _ := rt.Send(*to, MethodFail, &n, abi.NewTokenAmount(0))
	out := cbg.CborInt(code)
	return &out, nil
}

// Recurse calls itself on the target until a send fails and returns the
// first non-zero exit code.
func (Actor) Recurse(rt *sandbox.Runtime, to *address.Address) (*cbg.CborInt, error) {
	code, ret := rt.Send(*to, MethodRecurse, to, abi.NewTokenAmount(0))
	out := cbg.CborInt(code)
	if code == exitcode.Ok {
		if err := out.UnmarshalCBOR(bytes.NewReader(ret)); err != nil {
			rt.Abortf(exitcode.ErrSerialization, "decoding nested result: %s", err)
		}
	}
	return &out, nil
}

// Panic crashes the actor with a plain panic.
func (Actor) Panic(rt *sandbox.Runtime, _ *abi.EmptyValue) (*abi.EmptyValue, error) {
	panic("actor bug")
}

// Transfer sends TransferAmount to the target and returns the exit code.
func (Actor) Transfer(rt *sandbox.Runtime, to *address.Address) (*cbg.CborInt, error) {
	out := cbg.CborInt(rt.Transfer(*to, TransferAmount))
	return &out, nil
}

// Randomness returns chain randomness for epoch 0.
func (Actor) Randomness(rt *sandbox.Runtime, _ *abi.EmptyValue) (*abi.CborBytes, error) {
	r := abi.CborBytes(rt.GetChainRandomness(crypto.DomainSeparationTag_TicketProduction, 0, nil))
	return &r, nil
}
