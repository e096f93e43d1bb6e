package register

import (
	"sync"

	"github.com/filecoin-project/venus-fvm/pkg/vm/account"
	"github.com/filecoin-project/venus-fvm/pkg/vm/dispatch"
	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
)

// DefaultActors lists the native actors that ship with the machine.
func DefaultActors() []dispatch.Actor {
	return []dispatch.Actor{
		account.Actor{},
	}
}

var loadOnce sync.Once
var defaultEngine *sandbox.NativeEngine
var defaultErr error

// GetDefaultNativeEngine returns the shared engine serving DefaultActors.
func GetDefaultNativeEngine() (*sandbox.NativeEngine, error) {
	loadOnce.Do(func() {
		defaultEngine, defaultErr = sandbox.NewNativeEngine(DefaultActors()...)
	})
	return defaultEngine, defaultErr
}
