// Package executor applies top-level messages to a machine, one call manager
// per message.
package executor

import (
	"context"
	"time"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/filecoin-project/venus-fvm/pkg/constants"
	"github.com/filecoin-project/venus-fvm/pkg/state/tree"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/machine"
	"github.com/filecoin-project/venus-fvm/pkg/vm/vmcontext"
)

var log = logging.Logger("vm.executor")

// ImplicitMessageGasLimit is the gas limit system messages run with.
const ImplicitMessageGasLimit = constants.DefaultGasLimit * 10000

// Ret is the result of applying a message.
type Ret struct {
	Receipt  Receipt
	ActorErr error
	GasTrace []*gas.GasTrace
	Duration time.Duration
}

// Executor applies messages to a machine, one at a time.
type Executor struct {
	machine *machine.Machine
}

// New creates an executor over m.
func New(m *machine.Machine) *Executor {
	return &Executor{machine: m}
}

// Machine returns the machine messages are applied to.
func (e *Executor) Machine() *machine.Machine {
	return e.machine
}

// ApplyMessage applies a message from an account. Failures of the message
// itself are reported in the receipt; the error is only set when execution
// could not continue.
func (e *Executor) ApplyMessage(ctx context.Context, msg *Message) (*Ret, error) {
	ctx, span := trace.StartSpan(ctx, "executor.ApplyMessage")
	defer span.End()
	if span.IsRecordingEvents() {
		span.AddAttributes(
			trace.StringAttribute("from", msg.From.String()),
			trace.StringAttribute("to", msg.To.String()),
			trace.Int64Attribute("method", int64(msg.Method)),
		)
	}
	start := time.Now()

	if err := msg.ValidForExecution(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}
	msgCid, err := msg.Cid()
	if err != nil {
		return nil, errors.Wrap(err, "computing message cid")
	}

	pl := e.machine.Context().Pricelist
	msgGas := pl.OnChainMessage(msg.ChainLength())
	if msgGas.Total() > msg.GasLimit {
		return e.failure(exitcode.SysErrOutOfGas, 0, start, aerrors.Newf(exitcode.SysErrOutOfGas,
			"message gas limit %d below inclusion cost %d", msg.GasLimit, msgGas.Total())), nil
	}

	st := e.machine.StateTree()
	fromID, found, err := st.LookupID(ctx, msg.From)
	if err != nil {
		return nil, errors.Wrap(err, "resolving sender")
	}
	if !found {
		return e.failure(exitcode.SysErrSenderInvalid, 0, start, aerrors.Newf(exitcode.SysErrSenderInvalid, "sender %s not found", msg.From)), nil
	}
	fromActor, found, err := st.GetActor(ctx, fromID)
	if err != nil {
		return nil, errors.Wrap(err, "loading sender")
	}
	if !found {
		return e.failure(exitcode.SysErrSenderInvalid, 0, start, aerrors.Newf(exitcode.SysErrSenderInvalid, "sender %d not found", fromID)), nil
	}
	if fromActor.Nonce != msg.Nonce {
		return e.failure(exitcode.SysErrSenderStateInvalid, 0, start, aerrors.Newf(exitcode.SysErrSenderStateInvalid,
			"actor nonce invalid: msg:%d != state:%d", msg.Nonce, fromActor.Nonce)), nil
	}

	ret, err := e.run(ctx, fromID, msg, msg.GasLimit, &msgGas)
	if err != nil {
		return nil, err
	}

	if err := st.MutateActor(ctx, fromID, func(act *tree.Actor) error {
		act.IncrementSeqNum()
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "incrementing sender nonce")
	}

	ret.Duration = time.Since(start)
	log.Debugw("applied message", "cid", msgCid, "msg", msg, "code", ret.Receipt.ExitCode, "gasUsed", ret.Receipt.GasUsed, "took", ret.Duration)
	return ret, nil
}

// ApplyImplicitMessage applies a message sent by the system. It runs with a
// very large gas limit, skips nonce checks and fails on any error.
func (e *Executor) ApplyImplicitMessage(ctx context.Context, msg *Message) (*Ret, error) {
	ctx, span := trace.StartSpan(ctx, "executor.ApplyImplicitMessage")
	defer span.End()
	start := time.Now()

	fromID, found, err := e.machine.StateTree().LookupID(ctx, msg.From)
	if err != nil {
		return nil, errors.Wrap(err, "resolving sender")
	}
	if !found {
		return nil, errors.Errorf("implicit message sender %s not found", msg.From)
	}

	ret, err := e.run(ctx, fromID, msg, ImplicitMessageGasLimit, nil)
	if err != nil {
		return nil, err
	}
	ret.Duration = time.Since(start)
	if ret.ActorErr != nil {
		return ret, errors.Wrapf(ret.ActorErr, "implicit message failed with exit code %d", ret.Receipt.ExitCode)
	}
	return ret, nil
}

// run executes msg in its own state transaction on a fresh call manager.
func (e *Executor) run(ctx context.Context, from abi.ActorID, msg *Message, gasLimit int64, inclusion *gas.GasCharge) (*Ret, error) {
	st := e.machine.StateTree()
	if err := st.Snapshot(ctx); err != nil {
		return nil, errors.Wrap(err, "taking state snapshot")
	}
	finished := false
	defer func() {
		if !finished {
			// unwinding from a panic
			if rerr := st.Revert(); rerr != nil {
				log.Errorw("reverting state while unwinding", "err", rerr)
			}
		}
		st.ClearSnapshot()
	}()

	cm := vmcontext.NewCallManager(e.machine, gasLimit)
	var (
		ret    block.Block
		actErr error
	)
	if inclusion != nil {
		actErr = cm.ChargeGas(*inclusion)
	}
	if actErr == nil {
		params := block.Empty
		if len(msg.Params) > 0 {
			params = block.New(block.DagCBOR, msg.Params)
		}
		ret, actErr = cm.Send(ctx, from, msg.To, msg.Method, params, msg.Value)
	}
	if actErr == nil && !ret.IsEmpty() {
		actErr = cm.ChargeGas(e.machine.Context().Pricelist.OnChainReturnValue(ret.Size()))
	}

	gasTrace := cm.GasTracker().ExecutionTrace.GasCharges
	gasUsed, _ := cm.Finish()
	finished = true

	if actErr != nil {
		if rerr := st.Revert(); rerr != nil {
			return nil, errors.Wrap(rerr, "reverting state")
		}
		if aerrors.IsFatal(actErr) {
			return nil, errors.Wrapf(actErr, "fatal error applying message %s", msg)
		}
		r := e.failure(aerrors.RetCode(actErr), gasUsed, time.Time{}, actErr)
		r.GasTrace = gasTrace
		return r, nil
	}

	return &Ret{
		Receipt: Receipt{
			ExitCode: exitcode.Ok,
			Return:   ret.Data,
			GasUsed:  gasUsed,
		},
		GasTrace: gasTrace,
	}, nil
}

func (e *Executor) failure(code exitcode.ExitCode, gasUsed int64, start time.Time, err error) *Ret {
	ret := &Ret{
		Receipt:  Failure(code, gasUsed),
		ActorErr: err,
	}
	if !start.IsZero() {
		ret.Duration = time.Since(start)
	}
	log.Debugw("message failed", "code", code, "err", err)
	return ret
}

// Flush writes the state and returns its root.
func (e *Executor) Flush(ctx context.Context) (cid.Cid, error) {
	return e.machine.Flush(ctx)
}
