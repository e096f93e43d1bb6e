// Package blockstoreutil provides the block stores used by the machine.
package blockstoreutil

import (
	"github.com/ipfs/go-datastore"
	dss "github.com/ipfs/go-datastore/sync"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
	cbor "github.com/ipfs/go-ipld-cbor"
)

// Blockstore is the content-addressed store the machine reads code and state from.
type Blockstore = blockstore.Blockstore

// NewMemory returns a thread-safe blockstore backed by an in-memory datastore.
func NewMemory() Blockstore {
	return blockstore.NewBlockstore(dss.MutexWrap(datastore.NewMapDatastore()))
}

// NewCborStore wraps bs in an IPLD store for cbor objects.
func NewCborStore(bs Blockstore) cbor.IpldStore {
	return cbor.NewCborStore(bs)
}
