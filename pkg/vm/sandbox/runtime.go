package sandbox

import (
	"bytes"
	"context"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/builtin"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
)

// Runtime is the view native actors have of the current invocation. It only
// reaches the outside world through the bound syscalls, so native and wasm
// actors are metered alike.
type Runtime struct {
	ctx context.Context
	sc  *syscalls.Syscalls
}

// Context returns the context of the invocation.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

// Caller returns the ID of the immediate caller.
func (rt *Runtime) Caller() abi.ActorID {
	return rt.sc.Caller()
}

// Receiver returns the ID of the actor running.
func (rt *Runtime) Receiver() abi.ActorID {
	return rt.sc.Receiver()
}

// ValueReceived returns the value sent with the message.
func (rt *Runtime) ValueReceived() abi.TokenAmount {
	return rt.sc.ValueReceived()
}

// ValidateImmediateCallerIs aborts unless the caller is one of ids.
func (rt *Runtime) ValidateImmediateCallerIs(ids ...abi.ActorID) {
	caller := rt.Caller()
	for _, id := range ids {
		if caller == id {
			return
		}
	}
	rt.Abortf(exitcode.SysErrForbidden, "caller %d is not one of %v", caller, ids)
}

// ChargeGas charges gas on behalf of the actor.
func (rt *Runtime) ChargeGas(name string, compute int64) {
	if err := rt.sc.ChargeGas(name, compute); err != nil {
		panic(err)
	}
}

// StateCreate stores obj as the initial state of the actor.
func (rt *Runtime) StateCreate(obj cbor.Marshaler) {
	root, err := rt.sc.Root(rt.ctx)
	if err != nil {
		rt.abort(err)
	}
	if !root.Equals(block.EmptyArrayCid) {
		rt.Abortf(exitcode.ErrIllegalState, "failed to create state; expected empty array head, got %s", root)
	}
	rt.StateCommit(obj)
}

// StateCommit replaces the state of the actor with obj.
func (rt *Runtime) StateCommit(obj cbor.Marshaler) {
	buf := new(bytes.Buffer)
	if err := obj.MarshalCBOR(buf); err != nil {
		rt.abort(aerrors.Absorb(err, exitcode.ErrSerialization, "failed to marshal state"))
	}
	id, err := rt.sc.BlockCreate(block.DagCBOR, buf.Bytes())
	if err != nil {
		rt.abort(err)
	}
	c, err := rt.sc.BlockLink(rt.ctx, id)
	if err != nil {
		rt.abort(err)
	}
	if err := rt.sc.SetRoot(rt.ctx, c); err != nil {
		rt.abort(err)
	}
}

// StateReadonly loads the state of the actor into obj.
func (rt *Runtime) StateReadonly(obj cbor.Unmarshaler) {
	root, err := rt.sc.Root(rt.ctx)
	if err != nil {
		rt.abort(err)
	}
	id, err := rt.sc.BlockOpen(rt.ctx, root)
	if err != nil {
		rt.abort(err)
	}
	blk, err := rt.sc.BlockGet(id)
	if err != nil {
		rt.abort(err)
	}
	if err := obj.UnmarshalCBOR(bytes.NewReader(blk.Data)); err != nil {
		rt.abort(aerrors.Absorb(err, exitcode.ErrSerialization, "failed to unmarshal state"))
	}
}

// Send sends a message to another actor. params may be nil.
func (rt *Runtime) Send(to address.Address, method abi.MethodNum, params cbor.Marshaler, value abi.TokenAmount) (exitcode.ExitCode, []byte) {
	paramsID := block.NoBlock
	if params != nil {
		buf := new(bytes.Buffer)
		if err := params.MarshalCBOR(buf); err != nil {
			rt.abort(aerrors.Absorb(err, exitcode.ErrSerialization, "failed to marshal send params"))
		}
		id, err := rt.sc.BlockCreate(block.DagCBOR, buf.Bytes())
		if err != nil {
			rt.abort(err)
		}
		paramsID = id
	}

	receipt, err := rt.sc.Send(rt.ctx, to, method, paramsID, value)
	if err != nil {
		rt.abort(err)
	}
	if receipt.ReturnID == block.NoBlock {
		return receipt.ExitCode, nil
	}
	ret, err := rt.sc.BlockGet(receipt.ReturnID)
	if err != nil {
		rt.abort(err)
	}
	return receipt.ExitCode, ret.Data
}

// Transfer sends value without invoking code.
func (rt *Runtime) Transfer(to address.Address, value abi.TokenAmount) exitcode.ExitCode {
	code, _ := rt.Send(to, builtin.MethodSend, nil, value)
	return code
}

// GetChainRandomness draws randomness from the chain for the given epoch.
func (rt *Runtime) GetChainRandomness(tag crypto.DomainSeparationTag, epoch abi.ChainEpoch, entropy []byte) abi.Randomness {
	r, err := rt.sc.GetChainRandomness(rt.ctx, tag, epoch, entropy)
	if err != nil {
		rt.abort(err)
	}
	return r
}

// Abortf aborts the invocation with the given exit code.
func (rt *Runtime) Abortf(code exitcode.ExitCode, msg string, args ...interface{}) {
	panic(aerrors.Newf(code, msg, args...))
}

func (rt *Runtime) abort(err error) {
	if ae, ok := err.(aerrors.ActorError); ok {
		panic(ae)
	}
	panic(aerrors.Escalate(err, fmt.Sprintf("native actor %d", rt.Receiver())))
}
