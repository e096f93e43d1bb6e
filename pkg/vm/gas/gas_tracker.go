package gas

import (
	"os"
	"time"

	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
)

// EnableDetailedTracing, if true, records every charge in the execution trace.
var EnableDetailedTracing = os.Getenv("VENUS_VM_ENABLE_TRACING") == "1"

// GasTracker maintains the state of gas usage throughout the execution of a message.
//
// A tracker never lets used exceed limit: a charge that does not fit fails and
// is not applied.
type GasTracker struct { //nolint
	limit int64
	used  int64

	tracing           bool
	ExecutionTrace    ExecutionTrace
	LastGasChargeTime time.Time
	LastGasCharge     *GasTrace
}

// NewGasTracker initializes a new empty gas tracker
func NewGasTracker(limit int64) *GasTracker {
	if limit < 0 {
		limit = 0
	}
	return &GasTracker{
		limit:   limit,
		tracing: EnableDetailedTracing,
	}
}

// EnableTracing turns on recording of gas charges regardless of the environment.
func (t *GasTracker) EnableTracing() {
	t.tracing = true
}

// ChargeGas charges gas against the tracker, failing with SysErrOutOfGas when
// the limit would be exceeded.
func (t *GasTracker) ChargeGas(charge GasCharge) error {
	if ok := t.TryCharge(charge); !ok {
		return aerrors.Newf(exitcode.SysErrOutOfGas, "not enough gas: used=%d, limit=%d, charge %s=%d",
			t.used, t.limit, charge.Name, charge.Total())
	}
	return nil
}

// TryCharge charges `amount` if it fits within the limit.
//
// Returns `True` if the there was enough gas To pay for `amount`.
func (t *GasTracker) TryCharge(gasCharge GasCharge) bool {
	toUse := gasCharge.Total()
	if toUse < 0 {
		toUse = 0
	}

	if t.tracing {
		now := time.Now()
		if t.LastGasCharge != nil {
			t.LastGasCharge.TimeTaken = now.Sub(t.LastGasChargeTime)
		}

		gasTrace := GasTrace{
			Name:  gasCharge.Name,
			Extra: gasCharge.Extra,

			TotalGas:   toUse,
			ComputeGas: gasCharge.ComputeGas,
			StorageGas: gasCharge.StorageGas,

			TotalVirtualGas:   gasCharge.VirtualCompute + gasCharge.VirtualStorage,
			VirtualComputeGas: gasCharge.VirtualCompute,
			VirtualStorageGas: gasCharge.VirtualStorage,
		}

		if gasTrace.VirtualStorageGas == 0 {
			gasTrace.VirtualStorageGas = gasTrace.StorageGas
		}
		if gasTrace.VirtualComputeGas == 0 {
			gasTrace.VirtualComputeGas = gasTrace.ComputeGas
		}

		t.ExecutionTrace.GasCharges = append(t.ExecutionTrace.GasCharges, &gasTrace)
		t.LastGasChargeTime = now
		t.LastGasCharge = &gasTrace
	}

	// overflow safe
	if t.used > t.limit-toUse {
		return false
	}
	t.used += toUse
	return true
}

// GasLimit returns the budget the tracker was created with.
func (t *GasTracker) GasLimit() int64 {
	return t.limit
}

// GasUsed returns the gas committed so far.
func (t *GasTracker) GasUsed() int64 {
	return t.used
}

// GasAvailable returns the gas still available.
func (t *GasTracker) GasAvailable() int64 {
	if t.used >= t.limit {
		return 0
	}
	return t.limit - t.used
}
