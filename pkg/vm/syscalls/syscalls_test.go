package syscalls_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	fbig "github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
)

func TestTokenAmountHalves(t *testing.T) {
	tf.UnitTest(t)
	large := new(big.Int).Lsh(big.NewInt(3), 70)
	large.Add(large, big.NewInt(5))

	for _, v := range []abi.TokenAmount{
		abi.NewTokenAmount(0),
		abi.NewTokenAmount(30),
		fbig.NewFromGo(large),
	} {
		hi, lo, err := syscalls.SplitTokenAmount(v)
		require.NoError(t, err)
		assert.True(t, v.Equals(syscalls.JoinTokenAmount(hi, lo)), "round trip of %s", v)
	}

	hi, lo, err := syscalls.SplitTokenAmount(abi.NewTokenAmount(30))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), hi)
	assert.Equal(t, uint64(30), lo)
}

func TestTokenAmountOutOfRange(t *testing.T) {
	tf.UnitTest(t)
	_, _, err := syscalls.SplitTokenAmount(abi.NewTokenAmount(-1))
	require.Error(t, err)
	assert.Equal(t, exitcode.SysErrorIllegalArgument, aerrors.RetCode(err))

	huge := fbig.NewFromGo(new(big.Int).Lsh(big.NewInt(1), 128))
	_, _, err = syscalls.SplitTokenAmount(huge)
	assert.Error(t, err)
}

func TestSyscallsInContext(t *testing.T) {
	tf.UnitTest(t)
	_, ok := syscalls.FromContext(context.Background())
	assert.False(t, ok)

	sc := &syscalls.Syscalls{GasAvailable: func() int64 { return 7 }}
	got, ok := syscalls.FromContext(syscalls.WithSyscalls(context.Background(), sc))
	require.True(t, ok)
	assert.Equal(t, int64(7), got.GasAvailable())
}
