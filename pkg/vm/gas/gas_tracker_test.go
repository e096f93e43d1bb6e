package gas_test

import (
	"math"
	"testing"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
)

func TestChargeWithinLimit(t *testing.T) {
	tf.UnitTest(t)
	tracker := gas.NewGasTracker(100)

	require.NoError(t, tracker.ChargeGas(gas.NewGasCharge("a", 40, 0)))
	require.NoError(t, tracker.ChargeGas(gas.NewGasCharge("b", 20, 40)))

	assert.Equal(t, int64(100), tracker.GasUsed())
	assert.Equal(t, int64(0), tracker.GasAvailable())
	assert.Equal(t, int64(100), tracker.GasLimit())
}

func TestFailingChargeLeavesUsedUnchanged(t *testing.T) {
	tf.UnitTest(t)
	tracker := gas.NewGasTracker(100)

	require.NoError(t, tracker.ChargeGas(gas.NewGasCharge("a", 70, 0)))
	err := tracker.ChargeGas(gas.NewGasCharge("b", 31, 0))
	require.Error(t, err)
	assert.Equal(t, exitcode.SysErrOutOfGas, aerrors.RetCode(err))
	assert.False(t, aerrors.IsFatal(err))

	assert.Equal(t, int64(70), tracker.GasUsed())
	assert.Equal(t, int64(30), tracker.GasAvailable())

	// the remaining budget is still usable
	require.NoError(t, tracker.ChargeGas(gas.NewGasCharge("c", 30, 0)))
	assert.Equal(t, int64(100), tracker.GasUsed())
}

func TestUsedNeverExceedsLimit(t *testing.T) {
	tf.UnitTest(t)
	tracker := gas.NewGasTracker(1000)
	amounts := []int64{7, 300, 0, 512, 999, 1, 150, 33, math.MaxInt64, 2, 1000}

	var failed bool
	for _, amount := range amounts {
		before := tracker.GasUsed()
		err := tracker.ChargeGas(gas.NewGasCharge("step", amount, 0))
		if err != nil {
			failed = true
			assert.Equal(t, before, tracker.GasUsed())
		} else {
			assert.Equal(t, before+amount, tracker.GasUsed())
		}
		assert.LessOrEqual(t, tracker.GasUsed(), tracker.GasLimit())
		assert.Equal(t, tracker.GasLimit()-tracker.GasUsed(), tracker.GasAvailable())
	}
	assert.True(t, failed)
}

func TestNegativeChargeIsNotRefunded(t *testing.T) {
	tf.UnitTest(t)
	tracker := gas.NewGasTracker(100)
	require.NoError(t, tracker.ChargeGas(gas.NewGasCharge("a", 50, 0)))
	require.NoError(t, tracker.ChargeGas(gas.NewGasCharge("refund", -20, 0)))
	assert.Equal(t, int64(50), tracker.GasUsed())
}

func TestNegativeLimitIsEmpty(t *testing.T) {
	tf.UnitTest(t)
	tracker := gas.NewGasTracker(-5)
	assert.Equal(t, int64(0), tracker.GasAvailable())
	assert.Error(t, tracker.ChargeGas(gas.NewGasCharge("a", 1, 0)))
	assert.NoError(t, tracker.ChargeGas(gas.NewGasCharge("free", 0, 0)))
}

func TestTracingRecordsCharges(t *testing.T) {
	tf.UnitTest(t)
	tracker := gas.NewGasTracker(10)
	tracker.EnableTracing()

	require.NoError(t, tracker.ChargeGas(gas.NewGasCharge("first", 4, 1).WithExtra("x")))
	require.Error(t, tracker.ChargeGas(gas.NewGasCharge("second", 9, 0)))

	charges := tracker.ExecutionTrace.GasCharges
	require.Len(t, charges, 2)
	assert.Equal(t, "first", charges[0].Name)
	assert.Equal(t, int64(5), charges[0].TotalGas)
	assert.Equal(t, int64(4), charges[0].VirtualComputeGas)
	assert.Equal(t, int64(1), charges[0].VirtualStorageGas)
	assert.Equal(t, "x", charges[0].Extra)
	assert.Equal(t, "second", charges[1].Name)
	assert.Same(t, charges[1], tracker.LastGasCharge)
}
