package executor_test

import (
	"encoding/binary"
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/builtin"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cbg "github.com/whyrusleeping/cbor-gen"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/testhelpers/vmtest"
	"github.com/filecoin-project/venus-fvm/pkg/testhelpers/wasmtest"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/executor"
	"github.com/filecoin-project/venus-fvm/pkg/vm/machine"
)

func encodeInt(t *testing.T, n int64) []byte {
	v := cbg.CborInt(n)
	return vmtest.Encode(t, &v).Data
}

func TestApplyMessageTransferToNewAccount(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	senderID, sender := h.CreateAccount(t, "sender", 100)
	to := vmtest.KeyAddress(t, "receiver")

	e := executor.New(h.Machine)
	ret, err := e.ApplyMessage(h.Ctx, executor.NewMessage(sender, to, 0, abi.NewTokenAmount(30), builtin.MethodSend, nil, 1000))
	require.NoError(t, err)
	require.NoError(t, ret.ActorErr)

	assert.Equal(t, exitcode.Ok, ret.Receipt.ExitCode)
	assert.Empty(t, ret.Receipt.Return)
	// inclusion, account creation and its constructor, then the send itself
	assert.Equal(t, int64(vmtest.ChainMessageCost+vmtest.CreateActorCost+vmtest.InvokeCost+vmtest.BlockCreateCost+vmtest.BlockLinkCost+vmtest.InvokeCost), ret.Receipt.GasUsed)

	assert.Equal(t, "70", h.Balance(t, senderID))
	assert.Equal(t, uint64(1), h.Actor(t, senderID).Nonce)

	toID, found, err := h.Machine.StateTree().LookupID(h.Ctx, to)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "30", h.Balance(t, toID))
}

func TestApplyMessageChargesReturnValue(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t, vmtest.WithTracing())
	_, sender := h.CreateAccount(t, "sender", 100)
	actorID, actor := h.CreateActor(t, "store", vmtest.ActorCodeID, 0)

	e := executor.New(h.Machine)
	ret, err := e.ApplyMessage(h.Ctx, executor.NewMessage(sender, actor, 0, abi.NewTokenAmount(0), vmtest.MethodStore, encodeInt(t, 21), 1000))
	require.NoError(t, err)
	require.Equal(t, exitcode.Ok, ret.Receipt.ExitCode)

	assert.Equal(t, int64(42), vmtest.DecodeInt(t, block.New(block.DagCBOR, ret.Receipt.Return)))
	assert.Equal(t, int64(21), h.StoredInt(t, actorID))

	require.NotEmpty(t, ret.GasTrace)
	assert.Equal(t, "OnChainMessage", ret.GasTrace[0].Name)
	last := ret.GasTrace[len(ret.GasTrace)-1]
	assert.Equal(t, "OnChainReturnValue", last.Name)
	assert.Equal(t, int64(len(ret.Receipt.Return)), last.TotalGas)

	var total int64
	for _, tr := range ret.GasTrace {
		total += tr.TotalGas
	}
	assert.Equal(t, total, ret.Receipt.GasUsed)
}

func TestApplyMessageFailureRevertsButBumpsNonce(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	senderID, sender := h.CreateAccount(t, "sender", 100)
	actorID, actor := h.CreateActor(t, "failing", vmtest.ActorCodeID, 0)

	e := executor.New(h.Machine)
	ret, err := e.ApplyMessage(h.Ctx, executor.NewMessage(sender, actor, 0, abi.NewTokenAmount(10), vmtest.MethodFail, encodeInt(t, 5), 1000))
	require.NoError(t, err)

	assert.Equal(t, exitcode.ErrIllegalArgument, ret.Receipt.ExitCode)
	assert.Error(t, ret.ActorErr)
	assert.Empty(t, ret.Receipt.Return)
	assert.True(t, ret.Receipt.GasUsed > 0)

	assert.Equal(t, "100", h.Balance(t, senderID))
	assert.Equal(t, "0", h.Balance(t, actorID))
	assert.Equal(t, block.EmptyArrayCid, h.Actor(t, actorID).Head)
	assert.Equal(t, uint64(1), h.Actor(t, senderID).Nonce)
}

func TestApplyMessageRejectsSender(t *testing.T) {
	tf.UnitTest(t)

	t.Run("unknown sender", func(t *testing.T) {
		h := vmtest.NewHarness(t)
		e := executor.New(h.Machine)
		msg := executor.NewMessage(vmtest.KeyAddress(t, "nobody"), vmtest.KeyAddress(t, "to"), 0, abi.NewTokenAmount(0), builtin.MethodSend, nil, 1000)

		ret, err := e.ApplyMessage(h.Ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, exitcode.SysErrSenderInvalid, ret.Receipt.ExitCode)
		assert.Equal(t, int64(0), ret.Receipt.GasUsed)
	})

	t.Run("nonce mismatch", func(t *testing.T) {
		h := vmtest.NewHarness(t)
		senderID, sender := h.CreateAccount(t, "sender", 100)
		e := executor.New(h.Machine)
		msg := executor.NewMessage(sender, vmtest.KeyAddress(t, "to"), 3, abi.NewTokenAmount(1), builtin.MethodSend, nil, 1000)

		ret, err := e.ApplyMessage(h.Ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, exitcode.SysErrSenderStateInvalid, ret.Receipt.ExitCode)
		assert.Equal(t, uint64(0), h.Actor(t, senderID).Nonce)
		assert.Equal(t, "100", h.Balance(t, senderID))
	})
}

func TestApplyMessageOutOfGas(t *testing.T) {
	tf.UnitTest(t)

	t.Run("below inclusion cost", func(t *testing.T) {
		h := vmtest.NewHarness(t)
		senderID, sender := h.CreateAccount(t, "sender", 100)
		e := executor.New(h.Machine)
		msg := executor.NewMessage(sender, vmtest.KeyAddress(t, "to"), 0, abi.NewTokenAmount(1), builtin.MethodSend, nil, vmtest.ChainMessageCost-1)

		ret, err := e.ApplyMessage(h.Ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, exitcode.SysErrOutOfGas, ret.Receipt.ExitCode)
		assert.Equal(t, uint64(0), h.Actor(t, senderID).Nonce)
	})

	t.Run("during execution", func(t *testing.T) {
		h := vmtest.NewHarness(t)
		senderID, sender := h.CreateAccount(t, "sender", 100)
		to := vmtest.KeyAddress(t, "to")
		e := executor.New(h.Machine)
		msg := executor.NewMessage(sender, to, 0, abi.NewTokenAmount(1), builtin.MethodSend, nil, vmtest.ChainMessageCost+vmtest.CreateActorCost-1)

		ret, err := e.ApplyMessage(h.Ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, exitcode.SysErrOutOfGas, ret.Receipt.ExitCode)
		assert.Equal(t, "100", h.Balance(t, senderID))
		assert.Equal(t, uint64(1), h.Actor(t, senderID).Nonce)

		_, found, err := h.Machine.StateTree().LookupID(h.Ctx, to)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestApplyMessageInvalid(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	_, sender := h.CreateAccount(t, "sender", 100)
	e := executor.New(h.Machine)

	msg := executor.NewMessage(sender, vmtest.KeyAddress(t, "to"), 0, abi.NewTokenAmount(-1), builtin.MethodSend, nil, 1000)
	_, err := e.ApplyMessage(h.Ctx, msg)
	assert.Error(t, err)
}

func TestApplyImplicitMessage(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	senderID, sender := h.CreateAccount(t, "system", 0)
	actorID, actor := h.CreateActor(t, "cron", vmtest.ActorCodeID, 0)
	e := executor.New(h.Machine)

	ret, err := e.ApplyImplicitMessage(h.Ctx, executor.NewMessage(sender, actor, 0, abi.NewTokenAmount(0), vmtest.MethodStore, encodeInt(t, 3), 0))
	require.NoError(t, err)
	assert.Equal(t, exitcode.Ok, ret.Receipt.ExitCode)
	assert.Equal(t, int64(3), h.StoredInt(t, actorID))
	assert.Equal(t, uint64(0), h.Actor(t, senderID).Nonce)

	ret, err = e.ApplyImplicitMessage(h.Ctx, executor.NewMessage(sender, actor, 0, abi.NewTokenAmount(0), vmtest.MethodFail, encodeInt(t, 9), 0))
	require.Error(t, err)
	require.NotNil(t, ret)
	assert.Equal(t, exitcode.ErrIllegalArgument, ret.Receipt.ExitCode)
	assert.Equal(t, int64(3), h.StoredInt(t, actorID))

	_, err = e.ApplyImplicitMessage(h.Ctx, executor.NewMessage(vmtest.KeyAddress(t, "ghost"), actor, 0, abi.NewTokenAmount(0), vmtest.MethodStore, encodeInt(t, 1), 0))
	assert.Error(t, err)
}

func TestFlushPersistsAppliedMessages(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	senderID, sender := h.CreateAccount(t, "sender", 100)
	e := executor.New(h.Machine)

	_, err := e.ApplyMessage(h.Ctx, executor.NewMessage(sender, vmtest.KeyAddress(t, "to"), 0, abi.NewTokenAmount(40), builtin.MethodSend, nil, 1000))
	require.NoError(t, err)

	root, err := e.Flush(h.Ctx)
	require.NoError(t, err)

	reloaded, err := machine.New(h.Ctx, machine.Options{
		Context:    *h.Machine.Context(),
		StateRoot:  root,
		Blockstore: h.Blockstore,
	})
	require.NoError(t, err)
	act, found, err := reloaded.StateTree().GetActor(h.Ctx, senderID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "60", act.Balance.String())
	assert.Equal(t, uint64(1), act.Nonce)
}

func TestApplyMessageNestedFailureUnderWasm(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	senderID, sender := h.CreateAccount(t, "sender", 100)
	targetID, target := h.CreateActor(t, "target", vmtest.ActorCodeID, 0)
	code := h.DeployWasm(t, wasmtest.Send(target.Bytes(), uint64(vmtest.MethodFail), 0))
	callerID, caller := h.CreateActor(t, "caller", code, 0)

	e := executor.New(h.Machine)
	ret, err := e.ApplyMessage(h.Ctx, executor.NewMessage(sender, caller, 0, abi.NewTokenAmount(10), vmtest.MethodStore, encodeInt(t, 23), 100000))
	require.NoError(t, err)
	require.Equal(t, exitcode.Ok, ret.Receipt.ExitCode)

	require.Len(t, ret.Receipt.Return, 8)
	assert.Equal(t, uint32(exitcode.ErrIllegalArgument), binary.LittleEndian.Uint32(ret.Receipt.Return[0:4]))
	assert.Equal(t, uint32(block.NoBlock), binary.LittleEndian.Uint32(ret.Receipt.Return[4:8]))

	// the nested commit was rolled back, the outer transfer was not
	assert.True(t, h.Actor(t, targetID).Head.Equals(block.EmptyArrayCid))
	assert.Equal(t, "10", h.Balance(t, callerID))
	assert.Equal(t, "90", h.Balance(t, senderID))

	_, err = e.Flush(h.Ctx)
	require.NoError(t, err)
}

func TestApplyMessageNestedPanicUnderWasm(t *testing.T) {
	tf.UnitTest(t)
	h := vmtest.NewHarness(t)
	senderID, sender := h.CreateAccount(t, "sender", 100)
	_, target := h.CreateActor(t, "target", vmtest.ActorCodeID, 0)
	code := h.DeployWasm(t, wasmtest.Send(target.Bytes(), uint64(vmtest.MethodPanic), 0))
	callerID, caller := h.CreateActor(t, "caller", code, 0)

	e := executor.New(h.Machine)
	before, err := e.Flush(h.Ctx)
	require.NoError(t, err)

	msg := executor.NewMessage(sender, caller, 0, abi.NewTokenAmount(10), vmtest.MethodStore, nil, 100000)
	assert.PanicsWithValue(t, "actor bug", func() {
		_, _ = e.ApplyMessage(h.Ctx, msg)
	})

	assert.Equal(t, "100", h.Balance(t, senderID))
	assert.Equal(t, "0", h.Balance(t, callerID))
	assert.Equal(t, uint64(0), h.Actor(t, senderID).Nonce)

	after, err := e.Flush(h.Ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
