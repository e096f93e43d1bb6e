package constants

import (
	"math/big"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// DefaultHashFunction is the hash used for every block and state object.
const DefaultHashFunction = multihash.BLAKE2B_MIN + 31

// DefaultCidBuilder builds the cids of dag-cbor encoded state.
var DefaultCidBuilder = cid.V1Builder{Codec: cid.DagCBOR, MhType: DefaultHashFunction}

const (
	FilecoinPrecision = uint64(1_000_000_000_000_000_000)
)

// DefaultMaxCallDepth bounds the nesting of sends within one message.
const DefaultMaxCallDepth = 4096

// DefaultGasLimit is the gas limit used for messages that do not set one.
const DefaultGasLimit = int64(10_000_000_000)

func WholeFIL(whole uint64) *big.Int {
	bigWhole := big.NewInt(int64(whole))
	return bigWhole.Mul(bigWhole, big.NewInt(int64(FilecoinPrecision)))
}
