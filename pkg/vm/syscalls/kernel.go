// Package syscalls defines the host operations sandboxed actor code may call.
//
// A Kernel implements the operations for one invocation; Bind turns it into a
// Syscalls capability record that the sandbox exposes to actor code.
package syscalls

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
)

// BlockStat describes a registered block.
type BlockStat struct {
	Codec uint64
	Size  uint32
}

// Receipt is the outcome of a nested send as seen by the calling actor.
type Receipt struct {
	ExitCode exitcode.ExitCode
	ReturnID block.ID
}

// GasOps meters execution.
type GasOps interface {
	ChargeGas(name string, compute int64) error
	GasAvailable() int64
}

// BlockOps manages the blocks of one invocation.
type BlockOps interface {
	BlockCreate(codec uint64, data []byte) (block.ID, error)
	BlockOpen(ctx context.Context, c cid.Cid) (block.ID, error)
	BlockStat(id block.ID) (BlockStat, error)
	BlockRead(id block.ID, offset uint32, buf []byte) (int, error)
	BlockLink(ctx context.Context, id block.ID) (cid.Cid, error)
	BlockGet(id block.ID) (block.Block, error)
}

// SelfOps reads and replaces the state root of the receiver.
type SelfOps interface {
	Root(ctx context.Context) (cid.Cid, error)
	SetRoot(ctx context.Context, c cid.Cid) error
}

// MessageOps describes the message being executed.
type MessageOps interface {
	Caller() abi.ActorID
	Receiver() abi.ActorID
	MethodNumber() abi.MethodNum
	ValueReceived() abi.TokenAmount
}

// SendOps issues nested sends.
type SendOps interface {
	Send(ctx context.Context, to address.Address, method abi.MethodNum, params block.ID, value abi.TokenAmount) (Receipt, error)
}

// RandomnessOps draws randomness from the chain.
type RandomnessOps interface {
	GetChainRandomness(ctx context.Context, tag crypto.DomainSeparationTag, epoch abi.ChainEpoch, entropy []byte) ([]byte, error)
}

// Kernel is everything actor code can reach.
type Kernel interface {
	GasOps
	BlockOps
	SelfOps
	MessageOps
	SendOps
	RandomnessOps
}
