// Package block defines the unit of data exchanged across the sandbox boundary.
package block

import (
	"bytes"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/filecoin-project/venus-fvm/pkg/constants"
)

// Codecs accepted for blocks.
const (
	DagCBOR = cid.DagCBOR
	Raw     = cid.Raw
)

// ID is a handle to a block scoped to one execution context. ID 0 is never
// assigned and means "no block".
type ID = uint32

// NoBlock is the handle returned by an invocation without a result.
const NoBlock ID = 0

// Block is an opaque payload tagged with its codec.
type Block struct {
	Codec uint64
	Data  []byte
}

// Empty is the result of a call that returned nothing.
var Empty = Block{Codec: DagCBOR}

// New creates a block and copies data into it.
func New(codec uint64, data []byte) Block {
	return Block{Codec: codec, Data: append([]byte(nil), data...)}
}

// IsEmpty reports whether the block carries no data.
func (b Block) IsEmpty() bool {
	return len(b.Data) == 0
}

// Size returns the length of the payload.
func (b Block) Size() int {
	return len(b.Data)
}

// Equals reports whether both blocks carry the same codec and bytes.
func (b Block) Equals(o Block) bool {
	return b.Codec == o.Codec && bytes.Equal(b.Data, o.Data)
}

// Cid computes the content identifier of the block.
func (b Block) Cid() (cid.Cid, error) {
	return cid.V1Builder{Codec: b.Codec, MhType: constants.DefaultHashFunction}.Sum(b.Data)
}

// ValidateCodec rejects codecs that cannot cross the sandbox boundary.
func ValidateCodec(codec uint64) error {
	switch codec {
	case DagCBOR, Raw:
		return nil
	default:
		return fmt.Errorf("unsupported block codec %#x", codec)
	}
}

// ValidateCid rejects cids the execution core will not store or load.
func ValidateCid(c cid.Cid) error {
	if !c.Defined() {
		return fmt.Errorf("undefined cid")
	}
	prefix := c.Prefix()
	if err := ValidateCodec(prefix.Codec); err != nil {
		return err
	}
	switch prefix.MhType {
	case constants.DefaultHashFunction, multihash.IDENTITY:
		return nil
	default:
		return fmt.Errorf("unsupported hash function %#x in %s", prefix.MhType, c)
	}
}

// EmptyArray is the dag-cbor empty array, the head of an actor that has not
// been constructed yet.
var EmptyArray = Block{Codec: DagCBOR, Data: []byte{0x80}}

// EmptyArrayCid is the cid of EmptyArray.
var EmptyArrayCid = func() cid.Cid {
	c, err := EmptyArray.Cid()
	if err != nil {
		panic(err)
	}
	return c
}()
