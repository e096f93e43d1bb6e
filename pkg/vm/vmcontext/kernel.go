package vmcontext

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/filecoin-project/venus-fvm/pkg/state/tree"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
)

var kLog = logging.Logger("vm.kernel")

// DefaultKernel serves the host operations of a single invocation. It owns
// the call manager for as long as the invocation runs.
type DefaultKernel struct {
	cm     *CallManager
	blocks *block.Registry
	store  *gasChargeBlockstore

	caller   abi.ActorID
	receiver abi.ActorID
	method   abi.MethodNum
	value    abi.TokenAmount
}

var _ syscalls.Kernel = (*DefaultKernel)(nil)

// NewDefaultKernel binds a kernel to one message on cm.
func NewDefaultKernel(cm *CallManager, caller, receiver abi.ActorID, method abi.MethodNum, value abi.TokenAmount) *DefaultKernel {
	m := cm.Machine()
	return &DefaultKernel{
		cm:     cm,
		blocks: block.NewRegistry(),
		store: &gasChargeBlockstore{
			inner:     m.Blockstore(),
			pricelist: m.Context().Pricelist,
			gasTank:   cm,
		},
		caller:   caller,
		receiver: receiver,
		method:   method,
		value:    value,
	}
}

func (k *DefaultKernel) pricelist() gas.Pricelist {
	return k.cm.Machine().Context().Pricelist
}

func (k *DefaultKernel) stateTree() tree.Tree {
	return k.cm.Machine().StateTree()
}

// ChargeGas implements syscalls.GasOps.
func (k *DefaultKernel) ChargeGas(name string, compute int64) error {
	return k.cm.ChargeGas(gas.NewGasCharge(name, compute, 0))
}

// GasAvailable implements syscalls.GasOps.
func (k *DefaultKernel) GasAvailable() int64 {
	return k.cm.GasAvailable()
}

// BlockCreate implements syscalls.BlockOps.
func (k *DefaultKernel) BlockCreate(codec uint64, data []byte) (block.ID, error) {
	if err := block.ValidateCodec(codec); err != nil {
		return block.NoBlock, aerrors.Absorb(err, exitcode.SysErrorIllegalArgument, "creating block")
	}
	if err := k.cm.ChargeGas(k.pricelist().OnBlockCreate(len(data))); err != nil {
		return block.NoBlock, err
	}
	return k.blocks.Put(block.New(codec, data))
}

// BlockOpen implements syscalls.BlockOps.
func (k *DefaultKernel) BlockOpen(ctx context.Context, c cid.Cid) (block.ID, error) {
	if err := block.ValidateCid(c); err != nil {
		return block.NoBlock, aerrors.Absorb(err, exitcode.SysErrorIllegalArgument, "opening block")
	}
	blk, err := k.store.Get(ctx, c)
	if err != nil {
		return block.NoBlock, err
	}
	return k.blocks.Put(block.New(c.Prefix().Codec, blk.RawData()))
}

// BlockStat implements syscalls.BlockOps.
func (k *DefaultKernel) BlockStat(id block.ID) (syscalls.BlockStat, error) {
	if err := k.cm.ChargeGas(k.pricelist().OnBlockStat()); err != nil {
		return syscalls.BlockStat{}, err
	}
	blk, err := k.blocks.Get(id)
	if err != nil {
		return syscalls.BlockStat{}, err
	}
	return syscalls.BlockStat{Codec: blk.Codec, Size: uint32(blk.Size())}, nil
}

// BlockRead implements syscalls.BlockOps.
func (k *DefaultKernel) BlockRead(id block.ID, offset uint32, buf []byte) (int, error) {
	blk, err := k.blocks.Get(id)
	if err != nil {
		return 0, err
	}
	if int(offset) > blk.Size() {
		return 0, aerrors.Newf(exitcode.SysErrorIllegalArgument, "offset %d beyond block of %d bytes", offset, blk.Size())
	}
	n := len(blk.Data) - int(offset)
	if n > len(buf) {
		n = len(buf)
	}
	if err := k.cm.ChargeGas(k.pricelist().OnBlockRead(n)); err != nil {
		return 0, err
	}
	return copy(buf, blk.Data[offset:]), nil
}

// BlockLink implements syscalls.BlockOps.
func (k *DefaultKernel) BlockLink(ctx context.Context, id block.ID) (cid.Cid, error) {
	blk, err := k.blocks.Get(id)
	if err != nil {
		return cid.Undef, err
	}
	c, err := blk.Cid()
	if err != nil {
		return cid.Undef, aerrors.Absorb(err, exitcode.SysErrorIllegalArgument, "hashing block")
	}
	sb, err := blocks.NewBlockWithCid(blk.Data, c)
	if err != nil {
		return cid.Undef, aerrors.Escalate(err, "building block")
	}
	if err := k.store.Put(ctx, sb); err != nil {
		return cid.Undef, err
	}
	return c, nil
}

// BlockGet implements syscalls.BlockOps.
func (k *DefaultKernel) BlockGet(id block.ID) (block.Block, error) {
	return k.blocks.Get(id)
}

// Root implements syscalls.SelfOps.
func (k *DefaultKernel) Root(ctx context.Context) (cid.Cid, error) {
	act, found, err := k.stateTree().GetActor(ctx, k.receiver)
	if err != nil {
		return cid.Undef, aerrors.Escalate(err, "loading receiver")
	}
	if !found {
		return cid.Undef, aerrors.Fatalf("running actor %d has no state", k.receiver)
	}
	return act.Head, nil
}

// SetRoot implements syscalls.SelfOps.
func (k *DefaultKernel) SetRoot(ctx context.Context, c cid.Cid) error {
	if err := block.ValidateCid(c); err != nil {
		return aerrors.Absorb(err, exitcode.SysErrorIllegalArgument, "setting root")
	}
	has, err := k.store.Has(ctx, c)
	if err != nil {
		return err
	}
	if !has {
		return aerrors.Newf(exitcode.ErrNotFound, "new root %s is not in the store", c)
	}
	err = k.stateTree().MutateActor(ctx, k.receiver, func(act *tree.Actor) error {
		act.Head = c
		return nil
	})
	if err != nil {
		return aerrors.Escalate(err, "updating actor head")
	}
	return nil
}

// Caller implements syscalls.MessageOps.
func (k *DefaultKernel) Caller() abi.ActorID {
	return k.caller
}

// Receiver implements syscalls.MessageOps.
func (k *DefaultKernel) Receiver() abi.ActorID {
	return k.receiver
}

// MethodNumber implements syscalls.MessageOps.
func (k *DefaultKernel) MethodNumber() abi.MethodNum {
	return k.method
}

// ValueReceived implements syscalls.MessageOps.
func (k *DefaultKernel) ValueReceived() abi.TokenAmount {
	return k.value
}

// Send implements syscalls.SendOps. The nested call runs in its own state
// transaction; when it fails with a non-fatal error its state changes are
// reverted and the exit code is handed back in the receipt.
func (k *DefaultKernel) Send(ctx context.Context, to address.Address, method abi.MethodNum, params block.ID, value abi.TokenAmount) (syscalls.Receipt, error) {
	msg := block.Empty
	if params != block.NoBlock {
		blk, err := k.blocks.Get(params)
		if err != nil {
			return syscalls.Receipt{}, err
		}
		msg = blk
	}

	ret, err := k.sendInSnapshot(ctx, to, method, msg, value)
	if err != nil {
		if aerrors.IsFatal(err) {
			return syscalls.Receipt{}, err
		}
		nestedReverts.Inc(ctx, 1)
		code := aerrors.RetCode(err)
		kLog.Debugw("nested send failed, state reverted", "from", k.receiver, "to", to, "method", method, "code", code, "err", err)
		return syscalls.Receipt{ExitCode: code}, nil
	}

	if ret.IsEmpty() {
		return syscalls.Receipt{ExitCode: exitcode.Ok}, nil
	}
	id, err := k.blocks.Put(ret)
	if err != nil {
		return syscalls.Receipt{}, err
	}
	return syscalls.Receipt{ExitCode: exitcode.Ok, ReturnID: id}, nil
}

// sendInSnapshot runs the nested call on top of a state snapshot. The
// snapshot is reverted when the call fails or panics, and is always cleared.
func (k *DefaultKernel) sendInSnapshot(ctx context.Context, to address.Address, method abi.MethodNum, msg block.Block, value abi.TokenAmount) (block.Block, error) {
	st := k.stateTree()
	if err := st.Snapshot(ctx); err != nil {
		return block.Block{}, aerrors.Escalate(err, "taking state snapshot")
	}

	returned := false
	defer func() {
		if returned {
			return
		}
		// unwinding from a panic
		if rerr := st.Revert(); rerr != nil {
			kLog.Errorw("reverting state while unwinding", "err", rerr)
		}
		st.ClearSnapshot()
	}()

	ret, err := k.cm.Send(ctx, k.receiver, to, method, msg, value)
	returned = true
	if err != nil {
		rerr := st.Revert()
		st.ClearSnapshot()
		if rerr != nil {
			return block.Block{}, aerrors.Escalate(rerr, "reverting state")
		}
		return block.Block{}, err
	}
	st.ClearSnapshot()
	return ret, nil
}

// GetChainRandomness implements syscalls.RandomnessOps.
func (k *DefaultKernel) GetChainRandomness(ctx context.Context, tag crypto.DomainSeparationTag, epoch abi.ChainEpoch, entropy []byte) ([]byte, error) {
	if epoch > k.cm.Machine().Context().Epoch {
		return nil, aerrors.Newf(exitcode.ErrIllegalArgument, "randomness epoch %d is in the future", epoch)
	}
	r, err := k.cm.Machine().ChainRandomness(ctx, tag, epoch, entropy)
	if err != nil {
		return nil, aerrors.Escalate(err, "drawing chain randomness")
	}
	return r, nil
}

func (k *DefaultKernel) String() string {
	return fmt.Sprintf("kernel(%d -> %d, method %d)", k.caller, k.receiver, k.method)
}
