// Package vmtest provides a machine wired for tests, a native test actor and
// a flat price list.
package vmtest

import (
	"bytes"
	"context"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/filecoin-project/venus-fvm/pkg/constants"
	"github.com/filecoin-project/venus-fvm/pkg/state/tree"
	"github.com/filecoin-project/venus-fvm/pkg/util/blockstoreutil"
	"github.com/filecoin-project/venus-fvm/pkg/vm/account"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/dispatch"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/machine"
	"github.com/filecoin-project/venus-fvm/pkg/vm/register"
	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
)

// Randomness is what the test externs return.
var Randomness = []byte("vmtest randomness")

type fixedExterns struct{}

func (fixedExterns) GetChainRandomness(context.Context, crypto.DomainSeparationTag, abi.ChainEpoch, []byte) ([]byte, error) {
	return Randomness, nil
}

// Option adjusts the machine options of a harness.
type Option func(*machine.Options)

// WithPricelist replaces the flat price list.
func WithPricelist(pl gas.Pricelist) Option {
	return func(o *machine.Options) {
		o.Pricelist = pl
	}
}

// WithTracing records every gas charge.
func WithTracing() Option {
	return func(o *machine.Options) {
		o.Tracing = true
	}
}

// WithMaxCallDepth bounds the call stack.
func WithMaxCallDepth(depth uint32) Option {
	return func(o *machine.Options) {
		o.MaxCallDepth = depth
	}
}

// WithEpoch sets the current epoch.
func WithEpoch(epoch abi.ChainEpoch) Option {
	return func(o *machine.Options) {
		o.Epoch = epoch
	}
}

// Harness is a machine over an in-memory block store, serving the default
// native actors, the test actor and wasm code.
type Harness struct {
	Ctx        context.Context
	Blockstore blockstoreutil.Blockstore
	Wasm       *sandbox.WasmEngine
	Machine    *machine.Machine
}

// NewHarness builds a harness; the wasm engine is closed with the test.
func NewHarness(t testing.TB, opts ...Option) *Harness {
	ctx := context.Background()

	natives, err := sandbox.NewNativeEngine(append(register.DefaultActors(), dispatch.Actor(Actor{}))...)
	require.NoError(t, err)
	wasm, err := sandbox.NewWasmEngine(ctx, sandbox.WasmConfig{Interpreter: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = wasm.Close(ctx) })

	bs := blockstoreutil.NewMemory()
	mopts := machine.Options{
		Context: machine.Context{
			Pricelist:    FlatPricelist{},
			MaxCallDepth: constants.DefaultMaxCallDepth,
		},
		Blockstore: bs,
		Externs:    fixedExterns{},
		Natives:    natives,
		Wasm:       wasm,
	}
	for _, opt := range opts {
		opt(&mopts)
	}

	m, err := machine.New(ctx, mopts)
	require.NoError(t, err)
	return &Harness{Ctx: ctx, Blockstore: bs, Wasm: wasm, Machine: m}
}

// KeyAddress returns a secp256k1 address derived from seed.
func KeyAddress(t testing.TB, seed string) address.Address {
	addr, err := address.NewSecp256k1Address([]byte(seed))
	require.NoError(t, err)
	return addr
}

// CreateAccount installs a constructed account actor for a key address.
func (h *Harness) CreateAccount(t testing.TB, seed string, balance int64) (abi.ActorID, address.Address) {
	addr := KeyAddress(t, seed)
	head, err := h.Machine.Store().Put(h.Ctx, &account.State{Address: addr})
	require.NoError(t, err)

	act := account.ZeroState()
	act.Head = head
	act.Balance = abi.NewTokenAmount(balance)
	id, err := h.Machine.CreateActor(h.Ctx, addr, act)
	require.NoError(t, err)
	return id, addr
}

// CreateActor installs an actor with the given code under an actor address
// derived from name.
func (h *Harness) CreateActor(t testing.TB, name string, code cid.Cid, balance int64) (abi.ActorID, address.Address) {
	addr, err := address.NewActorAddress([]byte(name))
	require.NoError(t, err)
	act := tree.NewActor(code, block.EmptyArrayCid)
	act.Balance = abi.NewTokenAmount(balance)
	id, err := h.Machine.CreateActor(h.Ctx, addr, act)
	require.NoError(t, err)
	return id, addr
}

// DeployWasm stores wasm code and returns its code CID.
func (h *Harness) DeployWasm(t testing.TB, wasm []byte) cid.Cid {
	code, err := cid.V1Builder{Codec: cid.Raw, MhType: constants.DefaultHashFunction}.Sum(wasm)
	require.NoError(t, err)
	blk, err := blocks.NewBlockWithCid(wasm, code)
	require.NoError(t, err)
	require.NoError(t, h.Blockstore.Put(h.Ctx, blk))
	return code
}

// Actor loads an actor that must exist.
func (h *Harness) Actor(t testing.TB, id abi.ActorID) *tree.Actor {
	act, found, err := h.Machine.StateTree().GetActor(h.Ctx, id)
	require.NoError(t, err)
	require.True(t, found, "actor %d not found", id)
	return act
}

// Balance returns the balance of an actor as a decimal string.
func (h *Harness) Balance(t testing.TB, id abi.ActorID) string {
	return h.Actor(t, id).Balance.String()
}

// StoredInt decodes the integer state of a test actor.
func (h *Harness) StoredInt(t testing.TB, id abi.ActorID) int64 {
	var out cbg.CborInt
	require.NoError(t, h.Machine.Store().Get(h.Ctx, h.Actor(t, id).Head, &out))
	return int64(out)
}

// Encode marshals v into a dag-cbor block.
func Encode(t testing.TB, v cbg.CBORMarshaler) block.Block {
	buf := new(bytes.Buffer)
	require.NoError(t, v.MarshalCBOR(buf))
	return block.New(block.DagCBOR, buf.Bytes())
}

// DecodeInt unmarshals an integer result.
func DecodeInt(t testing.TB, blk block.Block) int64 {
	var out cbg.CborInt
	require.NoError(t, out.UnmarshalCBOR(bytes.NewReader(blk.Data)))
	return int64(out)
}
