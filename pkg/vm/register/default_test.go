package register_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/account"
	"github.com/filecoin-project/venus-fvm/pkg/vm/register"
)

func TestDefaultEngineServesAccount(t *testing.T) {
	tf.UnitTest(t)

	engine, err := register.GetDefaultNativeEngine()
	require.NoError(t, err)
	_, ok := engine.Module(account.CodeID)
	assert.True(t, ok)

	again, err := register.GetDefaultNativeEngine()
	require.NoError(t, err)
	assert.Same(t, engine, again)
}
