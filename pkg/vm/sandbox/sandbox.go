// Package sandbox runs actor code. Wasm actors run under wazero; native actors
// are Go code dispatched by method number. Both are instantiated per
// invocation against a fresh syscalls.Syscalls record and expose the same
// entry point.
package sandbox

import (
	"context"

	logging "github.com/ipfs/go-log/v2"

	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
)

var log = logging.Logger("vm.sandbox")

// EntryPoint is the function every actor exports. It takes the handle of the
// params block and returns the handle of the result block, 0 for none.
const EntryPoint = "invoke"

// Module is compiled actor code, ready to be instantiated.
type Module interface {
	// Instantiate links the module against a capability record.
	Instantiate(ctx context.Context, sc *syscalls.Syscalls) (Instance, error)
}

// Instance is one live instantiation of a module.
type Instance interface {
	// Call invokes an exported function.
	Call(ctx context.Context, fn string, args ...uint64) ([]uint64, error)
	// Close releases the instance.
	Close(ctx context.Context) error
}
