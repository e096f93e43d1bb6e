package syscalls

import (
	"math/big"

	"github.com/filecoin-project/go-state-types/abi"
	fbig "github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
)

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// SplitTokenAmount encodes v as the two 64 bit halves of an unsigned 128 bit
// integer.
func SplitTokenAmount(v abi.TokenAmount) (hi uint64, lo uint64, err error) {
	if v.Int == nil {
		return 0, 0, nil
	}
	if v.Sign() < 0 || v.Int.Cmp(maxU128) > 0 {
		return 0, 0, aerrors.Newf(exitcode.SysErrorIllegalArgument, "token amount %s out of range", v)
	}
	lo = new(big.Int).And(v.Int, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi = new(big.Int).Rsh(v.Int, 64).Uint64()
	return hi, lo, nil
}

// JoinTokenAmount is the inverse of SplitTokenAmount.
func JoinTokenAmount(hi uint64, lo uint64) abi.TokenAmount {
	out := new(big.Int).SetUint64(hi)
	out.Lsh(out, 64)
	out.Or(out, new(big.Int).SetUint64(lo))
	return fbig.NewFromGo(out)
}
