package vmcontext

import "github.com/filecoin-project/venus-fvm/pkg/metrics"

var (
	sends         = metrics.NewInt64Counter("vm/sends", "Number of sends handled by the call manager")
	outOfGas      = metrics.NewInt64Counter("vm/out_of_gas", "Number of charges refused for lack of gas")
	nestedReverts = metrics.NewInt64Counter("vm/nested_reverts", "Number of nested sends whose state changes were reverted")
)
