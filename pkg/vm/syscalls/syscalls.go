package syscalls

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
)

// Syscalls is the capability record bound to one invocation. Each field is a
// host operation with a fixed signature; nothing else is reachable from actor
// code.
type Syscalls struct {
	ChargeGas    func(name string, compute int64) error
	GasAvailable func() int64

	BlockCreate func(codec uint64, data []byte) (block.ID, error)
	BlockOpen   func(ctx context.Context, c cid.Cid) (block.ID, error)
	BlockStat   func(id block.ID) (BlockStat, error)
	BlockRead   func(id block.ID, offset uint32, buf []byte) (int, error)
	BlockLink   func(ctx context.Context, id block.ID) (cid.Cid, error)
	BlockGet    func(id block.ID) (block.Block, error)

	Root    func(ctx context.Context) (cid.Cid, error)
	SetRoot func(ctx context.Context, c cid.Cid) error

	Caller        func() abi.ActorID
	Receiver      func() abi.ActorID
	MethodNumber  func() abi.MethodNum
	ValueReceived func() abi.TokenAmount

	Send func(ctx context.Context, to address.Address, method abi.MethodNum, params block.ID, value abi.TokenAmount) (Receipt, error)

	GetChainRandomness func(ctx context.Context, tag crypto.DomainSeparationTag, epoch abi.ChainEpoch, entropy []byte) ([]byte, error)
}

// Bind builds a fresh capability record over k.
func Bind(k Kernel) *Syscalls {
	return &Syscalls{
		ChargeGas:    k.ChargeGas,
		GasAvailable: k.GasAvailable,

		BlockCreate: k.BlockCreate,
		BlockOpen:   k.BlockOpen,
		BlockStat:   k.BlockStat,
		BlockRead:   k.BlockRead,
		BlockLink:   k.BlockLink,
		BlockGet:    k.BlockGet,

		Root:    k.Root,
		SetRoot: k.SetRoot,

		Caller:        k.Caller,
		Receiver:      k.Receiver,
		MethodNumber:  k.MethodNumber,
		ValueReceived: k.ValueReceived,

		Send: k.Send,

		GetChainRandomness: k.GetChainRandomness,
	}
}

type syscallsKey struct{}

// WithSyscalls attaches the capability record of the current invocation to ctx.
func WithSyscalls(ctx context.Context, sc *Syscalls) context.Context {
	return context.WithValue(ctx, syscallsKey{}, sc)
}

// FromContext returns the capability record attached to ctx, if any.
func FromContext(ctx context.Context) (*Syscalls, bool) {
	sc, ok := ctx.Value(syscallsKey{}).(*Syscalls)
	return sc, ok && sc != nil
}
