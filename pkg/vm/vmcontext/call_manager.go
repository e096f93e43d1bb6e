package vmcontext

import (
	"bytes"
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/builtin"
	"github.com/filecoin-project/go-state-types/exitcode"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/trace"

	"github.com/filecoin-project/venus-fvm/pkg/vm/account"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/machine"
	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
)

var cmLog = logging.Logger("vm.callmanager")

// blsZeroPayload is the payload of the BLS address of the zero public key,
// which must never be bound to an account.
var blsZeroPayload = append([]byte{0xc0}, make([]byte, 47)...)

type callManagerState struct {
	machine    *machine.Machine
	gasTracker *gas.GasTracker
	depth      uint32
}

// CallManager owns the machine, the gas budget and the call stack of one
// top-level message. While an actor runs, the state moves into the kernel
// serving it and the manager it was taken from is absent; using an absent
// manager panics.
type CallManager struct {
	inner *callManagerState
}

// NewCallManager takes ownership of m for a message with the given gas limit.
func NewCallManager(m *machine.Machine, gasLimit int64) *CallManager {
	gt := gas.NewGasTracker(gasLimit)
	if m.Context().Tracing {
		gt.EnableTracing()
	}
	return &CallManager{inner: &callManagerState{machine: m, gasTracker: gt}}
}

func (cm *CallManager) state() *callManagerState {
	if cm.inner == nil {
		panic("call manager is poisoned")
	}
	return cm.inner
}

func (cm *CallManager) take() *callManagerState {
	s := cm.state()
	cm.inner = nil
	return s
}

func (cm *CallManager) restore(s *callManagerState) {
	if cm.inner != nil {
		panic("call manager is already present")
	}
	cm.inner = s
}

// withOwnership moves the state into a fresh manager for the duration of f
// and moves it back afterwards, even if f panics.
func (cm *CallManager) withOwnership(f func(owned *CallManager) error) error {
	owned := &CallManager{inner: cm.take()}
	defer func() {
		cm.restore(owned.take())
	}()
	return f(owned)
}

// Machine returns the machine the manager runs on.
func (cm *CallManager) Machine() *machine.Machine {
	return cm.state().machine
}

// GasTracker returns the gas tracker of the message.
func (cm *CallManager) GasTracker() *gas.GasTracker {
	return cm.state().gasTracker
}

// Depth returns the current call depth.
func (cm *CallManager) Depth() uint32 {
	return cm.state().depth
}

// ChargeGas charges against the gas budget of the message.
func (cm *CallManager) ChargeGas(charge gas.GasCharge) error {
	if err := cm.state().gasTracker.ChargeGas(charge); err != nil {
		outOfGas.Inc(context.TODO(), 1)
		return err
	}
	return nil
}

// GasAvailable returns the gas left.
func (cm *CallManager) GasAvailable() int64 {
	return cm.state().gasTracker.GasAvailable()
}

// GasUsed returns the gas used so far.
func (cm *CallManager) GasUsed() int64 {
	return cm.state().gasTracker.GasUsed()
}

// Finish hands back the machine and the gas used. The manager is unusable
// afterwards.
func (cm *CallManager) Finish() (int64, *machine.Machine) {
	s := cm.take()
	used := s.gasTracker.GasUsed()
	if used < 0 {
		used = 0
	}
	return used, s.machine
}

// Send sends a message from an actor to an address, resolving and creating
// the receiver as needed, and runs the receiver's code.
func (cm *CallManager) Send(ctx context.Context, from abi.ActorID, to address.Address, method abi.MethodNum, params block.Block, value abi.TokenAmount) (block.Block, error) {
	ctx, span := trace.StartSpan(ctx, "callmanager.Send")
	defer span.End()
	if span.IsRecordingEvents() {
		span.AddAttributes(
			trace.Int64Attribute("from", int64(from)),
			trace.StringAttribute("to", to.String()),
			trace.Int64Attribute("method", int64(method)),
			trace.StringAttribute("value", value.String()),
		)
	}

	s := cm.state()
	if s.depth >= s.machine.Context().MaxCallDepth {
		return block.Empty, aerrors.Newf(exitcode.SysErrForbidden, "message execution exceeds call depth %d", s.depth)
	}
	s.depth++
	defer func() {
		cm.state().depth--
	}()

	sends.Inc(ctx, 1)
	cmLog.Debugw("send", "from", from, "to", to, "method", method, "value", value, "depth", s.depth)

	toID, err := cm.resolveTo(ctx, to)
	if err != nil {
		return block.Empty, err
	}
	return cm.sendResolved(ctx, from, toID, method, params, value)
}

// resolveTo returns the id of addr, creating an account actor when addr is
// an unknown key address.
func (cm *CallManager) resolveTo(ctx context.Context, addr address.Address) (abi.ActorID, error) {
	id, found, err := cm.Machine().StateTree().LookupID(ctx, addr)
	if err != nil {
		return 0, aerrors.Escalate(err, "resolving receiver")
	}
	if found {
		return id, nil
	}

	switch addr.Protocol() {
	case address.SECP256K1, address.BLS:
		return cm.createAccountActor(ctx, addr)
	default:
		return 0, aerrors.Newf(exitcode.SysErrInvalidReceiver, "actor %s does not exist and cannot be created", addr)
	}
}

func (cm *CallManager) createAccountActor(ctx context.Context, addr address.Address) (abi.ActorID, error) {
	m := cm.Machine()
	if err := cm.ChargeGas(m.Context().Pricelist.OnCreateActor()); err != nil {
		return 0, err
	}
	if addr.Protocol() == address.BLS && bytes.Equal(addr.Payload(), blsZeroPayload) {
		return 0, aerrors.New(exitcode.SysErrorIllegalArgument, "cannot create the bls zero address actor")
	}

	id, err := m.CreateActor(ctx, addr, account.ZeroState())
	if err != nil {
		return 0, err
	}

	buf := new(bytes.Buffer)
	if err := addr.MarshalCBOR(buf); err != nil {
		return 0, aerrors.Escalate(err, "encoding constructor params")
	}
	cmLog.Debugw("created account actor", "addr", addr, "id", id)

	if _, err := cm.sendResolved(ctx, account.SystemActorID, id, account.MethodConstructor, block.New(block.DagCBOR, buf.Bytes()), abi.NewTokenAmount(0)); err != nil {
		return 0, err
	}
	return id, nil
}

func (cm *CallManager) sendResolved(ctx context.Context, from, to abi.ActorID, method abi.MethodNum, params block.Block, value abi.TokenAmount) (block.Block, error) {
	m := cm.Machine()
	act, found, err := m.StateTree().GetActor(ctx, to)
	if err != nil {
		return block.Empty, aerrors.Escalate(err, "loading receiver")
	}
	if !found {
		return block.Empty, aerrors.Newf(exitcode.SysErrInvalidReceiver, "actor %d does not exist", to)
	}

	if err := cm.ChargeGas(m.Context().Pricelist.OnMethodInvocation(value, method)); err != nil {
		return block.Empty, err
	}

	if !value.IsZero() {
		if err := m.Transfer(ctx, from, to, value); err != nil {
			return block.Empty, err
		}
	}

	if method == builtin.MethodSend {
		return block.Empty, nil
	}

	module, err := m.LoadModule(ctx, act.Code)
	if err != nil {
		return block.Empty, err
	}

	var ret block.Block
	err = cm.withOwnership(func(owned *CallManager) error {
		k := NewDefaultKernel(owned, from, to, method, value)

		paramsID := block.NoBlock
		if !params.IsEmpty() {
			id, err := k.blocks.Put(params)
			if err != nil {
				return err
			}
			paramsID = id
		}

		inst, err := module.Instantiate(ctx, syscalls.Bind(k))
		if err != nil {
			return err
		}
		defer func() {
			_ = inst.Close(ctx)
		}()

		res, err := inst.Call(ctx, sandbox.EntryPoint, uint64(paramsID))
		if err != nil {
			return err
		}
		if len(res) != 1 {
			return aerrors.Newf(exitcode.SysErrorIllegalActor, "actor %d returned %d values", to, len(res))
		}

		retID := block.ID(res[0])
		if retID == block.NoBlock {
			ret = block.Empty
			return nil
		}
		if ret, err = k.blocks.Get(retID); err != nil {
			return aerrors.Newf(exitcode.SysErrorIllegalActor, "actor %d returned invalid block handle %d", to, retID)
		}
		return nil
	})
	if err != nil {
		return block.Empty, err
	}
	return ret, nil
}
