package machine

import "github.com/filecoin-project/venus-fvm/pkg/metrics"

var actorsCreated = metrics.NewInt64Counter("vm/actors_created", "Number of actors created by the machine")
