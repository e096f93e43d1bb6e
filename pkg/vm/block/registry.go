package block

import (
	"math"

	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
)

// Registry holds the blocks visible to one execution context. Handles are
// assigned sequentially starting at 1 and are never reused.
type Registry struct {
	blocks []Block
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Put adds a block and returns its handle.
func (r *Registry) Put(b Block) (ID, error) {
	if len(r.blocks) >= math.MaxUint32-1 {
		return NoBlock, aerrors.New(exitcode.SysErrorIllegalArgument, "too many blocks")
	}
	r.blocks = append(r.blocks, b)
	return ID(len(r.blocks)), nil
}

// Get returns the block behind a handle.
func (r *Registry) Get(id ID) (Block, error) {
	if id == NoBlock || int(id) > len(r.blocks) {
		return Block{}, aerrors.Newf(exitcode.SysErrorIllegalArgument, "invalid block handle %d", id)
	}
	return r.blocks[id-1], nil
}

// Len returns the number of blocks registered.
func (r *Registry) Len() int {
	return len(r.blocks)
}
