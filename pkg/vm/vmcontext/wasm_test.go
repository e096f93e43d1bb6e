package vmcontext_test

import (
	"encoding/binary"
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cbg "github.com/whyrusleeping/cbor-gen"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/testhelpers/vmtest"
	"github.com/filecoin-project/venus-fvm/pkg/testhelpers/wasmtest"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/vmcontext"
)

func TestWasmParamsRoundTrip(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	sender, _ := h.CreateAccount(t, "sender", 0)
	_, echoAddr := h.CreateActor(t, "echo", h.DeployWasm(t, wasmtest.Echo()), 0)

	cm := vmcontext.NewCallManager(h.Machine, 1000)
	for _, params := range []block.Block{
		block.New(block.Raw, []byte("hello")),
		block.New(block.DagCBOR, []byte{0x82, 0x01, 0x02}),
	} {
		ret, err := cm.Send(h.Ctx, sender, echoAddr, 2, params, zero)
		require.NoError(t, err)
		assert.True(t, params.Equals(ret), "got %v want %v", ret, params)
	}

	ret, err := cm.Send(h.Ctx, sender, echoAddr, 2, block.Empty, zero)
	require.NoError(t, err)
	assert.True(t, ret.IsEmpty())
	assert.Equal(t, int64(3*vmtest.InvokeCost), cm.GasUsed())
}

func TestWasmNestedSend(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	sender, _ := h.CreateAccount(t, "sender", 0)
	target, targetAddr := h.CreateActor(t, "target", vmtest.ActorCodeID, 0)
	code := h.DeployWasm(t, wasmtest.Send(targetAddr.Bytes(), uint64(vmtest.MethodStore), 30))
	forwarder, forwarderAddr := h.CreateActor(t, "forwarder", code, 50)

	n := cbg.CborInt(7)
	cm := vmcontext.NewCallManager(h.Machine, 1000)
	ret, err := cm.Send(h.Ctx, sender, forwarderAddr, 2, vmtest.Encode(t, &n), zero)
	require.NoError(t, err)

	assert.Equal(t, uint64(block.Raw), ret.Codec)
	require.Len(t, ret.Data, 8)
	assert.Equal(t, uint32(exitcode.Ok), binary.LittleEndian.Uint32(ret.Data[0:4]))
	assert.NotZero(t, binary.LittleEndian.Uint32(ret.Data[4:8]))

	assert.Equal(t, int64(7), h.StoredInt(t, target))
	assert.Equal(t, "30", h.Balance(t, target))
	assert.Equal(t, "20", h.Balance(t, forwarder))

	// forwarder invoke, target invoke, target commit and result, receipt block
	assert.Equal(t, int64(2*vmtest.InvokeCost+3*vmtest.BlockCreateCost+vmtest.BlockLinkCost), cm.GasUsed())
}

func TestWasmNestedSendFailureIsReported(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	sender, _ := h.CreateAccount(t, "sender", 0)
	target, targetAddr := h.CreateActor(t, "target", vmtest.ActorCodeID, 0)
	code := h.DeployWasm(t, wasmtest.Send(targetAddr.Bytes(), uint64(vmtest.MethodStore), 30))
	forwarder, forwarderAddr := h.CreateActor(t, "forwarder", code, 10)

	n := cbg.CborInt(7)
	cm := vmcontext.NewCallManager(h.Machine, 1000)
	ret, err := cm.Send(h.Ctx, sender, forwarderAddr, 2, vmtest.Encode(t, &n), zero)
	require.NoError(t, err)

	require.Len(t, ret.Data, 8)
	assert.Equal(t, uint32(exitcode.SysErrInsufficientFunds), binary.LittleEndian.Uint32(ret.Data[0:4]))
	assert.Zero(t, binary.LittleEndian.Uint32(ret.Data[4:8]))
	assert.True(t, h.Actor(t, target).Head.Equals(block.EmptyArrayCid))
	assert.Equal(t, "10", h.Balance(t, forwarder))
}

func TestWasmOutOfGas(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	sender, _ := h.CreateAccount(t, "sender", 0)
	_, addr := h.CreateActor(t, "hungry", h.DeployWasm(t, wasmtest.ChargeAndEcho(500)), 0)

	cm := vmcontext.NewCallManager(h.Machine, 100)
	_, err := cm.Send(h.Ctx, sender, addr, 2, block.Empty, zero)
	require.Error(t, err)
	assert.Equal(t, exitcode.SysErrOutOfGas, aerrors.RetCode(err))
	assert.Equal(t, int64(vmtest.InvokeCost), cm.GasUsed())
	assert.Equal(t, uint32(0), cm.Depth())
}

func TestWasmTrapAndAbort(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	sender, _ := h.CreateAccount(t, "sender", 0)
	_, trapAddr := h.CreateActor(t, "trap", h.DeployWasm(t, wasmtest.Trap()), 0)
	_, abortAddr := h.CreateActor(t, "abort", h.DeployWasm(t, wasmtest.Abort(18)), 0)
	_, badAddr := h.CreateActor(t, "bad", h.DeployWasm(t, wasmtest.NoEntryPoint()), 0)

	cm := vmcontext.NewCallManager(h.Machine, 1000)
	_, err := cm.Send(h.Ctx, sender, trapAddr, 2, block.Empty, zero)
	assert.Equal(t, exitcode.SysErrorIllegalActor, aerrors.RetCode(err))

	_, err = cm.Send(h.Ctx, sender, abortAddr, 2, block.Empty, zero)
	assert.Equal(t, exitcode.ExitCode(18), aerrors.RetCode(err))

	_, err = cm.Send(h.Ctx, sender, badAddr, 2, block.Empty, abi.NewTokenAmount(0))
	assert.Equal(t, exitcode.SysErrorIllegalActor, aerrors.RetCode(err))
}
