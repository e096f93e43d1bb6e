package vmcontext_test

import (
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/venus-fvm/pkg/state/tree"
	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/testhelpers/vmtest"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/vmcontext"
)

func newKernel(t *testing.T, opts ...vmtest.Option) (*vmtest.Harness, *vmcontext.CallManager, *vmcontext.DefaultKernel, abi.ActorID) {
	h := vmtest.NewHarness(t, opts...)
	caller, _ := h.CreateAccount(t, "caller", 0)
	receiver, _ := h.CreateActor(t, "receiver", vmtest.ActorCodeID, 0)
	cm := vmcontext.NewCallManager(h.Machine, 10_000)
	return h, cm, vmcontext.NewDefaultKernel(cm, caller, receiver, 5, abi.NewTokenAmount(3)), receiver
}

func TestKernelMessageInfo(t *testing.T) {
	tf.UnitTest(t)
	_, _, k, receiver := newKernel(t)

	assert.Equal(t, tree.FirstNonSingletonActorID, k.Caller())
	assert.Equal(t, receiver, k.Receiver())
	assert.Equal(t, abi.MethodNum(5), k.MethodNumber())
	assert.Equal(t, "3", k.ValueReceived().String())
}

func TestKernelBlocks(t *testing.T) {
	tf.UnitTest(t)
	h, cm, k, _ := newKernel(t)

	_, err := k.BlockCreate(0x70, []byte("pb"))
	assert.Equal(t, exitcode.SysErrorIllegalArgument, aerrors.RetCode(err))

	id, err := k.BlockCreate(block.Raw, []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, block.ID(1), id)

	stat, err := k.BlockStat(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(block.Raw), stat.Codec)
	assert.Equal(t, uint32(11), stat.Size)

	buf := make([]byte, 5)
	n, err := k.BlockRead(id, 6, buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	n, err = k.BlockRead(id, 11, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = k.BlockRead(id, 12, buf)
	assert.Equal(t, exitcode.SysErrorIllegalArgument, aerrors.RetCode(err))

	_, err = k.BlockStat(42)
	assert.Equal(t, exitcode.SysErrorIllegalArgument, aerrors.RetCode(err))

	c, err := k.BlockLink(h.Ctx, id)
	require.NoError(t, err)
	has, err := h.Blockstore.Has(h.Ctx, c)
	require.NoError(t, err)
	assert.True(t, has)

	reopened, err := k.BlockOpen(h.Ctx, c)
	require.NoError(t, err)
	assert.NotEqual(t, id, reopened)
	blk, err := k.BlockGet(reopened)
	require.NoError(t, err)
	assert.True(t, blk.Equals(block.New(block.Raw, []byte("hello world"))))

	assert.Equal(t, int64(vmtest.BlockCreateCost+2*vmtest.BlockStatCost+vmtest.BlockLinkCost+vmtest.BlockOpenCost), cm.GasUsed())
}

func TestKernelBlockOpenMissingAndIdentity(t *testing.T) {
	tf.UnitTest(t)
	h, _, k, _ := newKernel(t)

	missing, err := block.New(block.DagCBOR, []byte{0x01}).Cid()
	require.NoError(t, err)
	_, err = k.BlockOpen(h.Ctx, missing)
	assert.Equal(t, exitcode.ErrNotFound, aerrors.RetCode(err))

	inline, err := cid.V1Builder{Codec: cid.Raw, MhType: multihash.IDENTITY}.Sum([]byte("inline"))
	require.NoError(t, err)
	id, err := k.BlockOpen(h.Ctx, inline)
	require.NoError(t, err)
	blk, err := k.BlockGet(id)
	require.NoError(t, err)
	assert.Equal(t, "inline", string(blk.Data))

	sha, err := cid.V1Builder{Codec: cid.Raw, MhType: multihash.SHA2_256}.Sum([]byte("x"))
	require.NoError(t, err)
	_, err = k.BlockOpen(h.Ctx, sha)
	assert.Equal(t, exitcode.SysErrorIllegalArgument, aerrors.RetCode(err))
}

func TestKernelRoot(t *testing.T) {
	tf.UnitTest(t)
	h, _, k, receiver := newKernel(t)

	root, err := k.Root(h.Ctx)
	require.NoError(t, err)
	assert.Equal(t, block.EmptyArrayCid, root)

	missing, err := block.New(block.DagCBOR, []byte{0x02}).Cid()
	require.NoError(t, err)
	err = k.SetRoot(h.Ctx, missing)
	assert.Equal(t, exitcode.ErrNotFound, aerrors.RetCode(err))

	id, err := k.BlockCreate(block.DagCBOR, []byte{0x03})
	require.NoError(t, err)
	c, err := k.BlockLink(h.Ctx, id)
	require.NoError(t, err)
	require.NoError(t, k.SetRoot(h.Ctx, c))

	root, err = k.Root(h.Ctx)
	require.NoError(t, err)
	assert.Equal(t, c, root)
	assert.Equal(t, c, h.Actor(t, receiver).Head)
}

func TestKernelSendRejectsBadParams(t *testing.T) {
	tf.UnitTest(t)
	h, _, k, _ := newKernel(t)

	_, err := k.Send(h.Ctx, vmtest.KeyAddress(t, "caller"), 0, 9, zero)
	assert.Equal(t, exitcode.SysErrorIllegalArgument, aerrors.RetCode(err))
}

func TestKernelRandomness(t *testing.T) {
	tf.UnitTest(t)
	h, _, k, _ := newKernel(t, vmtest.WithEpoch(10))

	r, err := k.GetChainRandomness(h.Ctx, crypto.DomainSeparationTag_TicketProduction, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, vmtest.Randomness, r)

	_, err = k.GetChainRandomness(h.Ctx, crypto.DomainSeparationTag_TicketProduction, 11, nil)
	assert.Equal(t, exitcode.ErrIllegalArgument, aerrors.RetCode(err))
}

func TestKernelGas(t *testing.T) {
	tf.UnitTest(t)
	_, cm, k, _ := newKernel(t)

	require.NoError(t, k.ChargeGas("wasm", 400))
	assert.Equal(t, int64(10_000-400), k.GasAvailable())

	err := k.ChargeGas("wasm", 10_000)
	assert.Equal(t, exitcode.SysErrOutOfGas, aerrors.RetCode(err))
	assert.Equal(t, int64(400), cm.GasUsed())
}
