package sandbox

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/block"
	"github.com/filecoin-project/venus-fvm/pkg/vm/dispatch"
	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
)

// NativeEngine serves actors implemented in Go.
type NativeEngine struct {
	loader dispatch.CodeLoader
}

// NewNativeEngine creates an engine over the given actors.
func NewNativeEngine(actors ...dispatch.Actor) (*NativeEngine, error) {
	loader, err := dispatch.NewBuilder().AddMany(actors...).Build()
	if err != nil {
		return nil, err
	}
	return &NativeEngine{loader: loader}, nil
}

// Module returns the module for code if it is a native actor.
func (ne *NativeEngine) Module(code cid.Cid) (Module, bool) {
	d, ok := ne.loader.GetActorImpl(code)
	if !ok {
		return nil, false
	}
	return &nativeModule{code: code, dispatcher: d}, true
}

// Codes lists the code ids served natively.
func (ne *NativeEngine) Codes() []cid.Cid {
	return ne.loader.Codes()
}

type nativeModule struct {
	code       cid.Cid
	dispatcher dispatch.Dispatcher
}

var _ Module = (*nativeModule)(nil)

func (nm *nativeModule) Instantiate(ctx context.Context, sc *syscalls.Syscalls) (Instance, error) {
	return &nativeInstance{module: nm, sc: sc}, nil
}

type nativeInstance struct {
	module *nativeModule
	sc     *syscalls.Syscalls
}

var _ Instance = (*nativeInstance)(nil)

func (ni *nativeInstance) Call(ctx context.Context, fn string, args ...uint64) (ret []uint64, err error) {
	if fn != EntryPoint || len(args) != 1 {
		return nil, aerrors.Newf(exitcode.SysErrorIllegalActor, "native actor %s only exports %q", ni.module.code, EntryPoint)
	}

	// Runtime.Abortf unwinds the actor with a panic carrying an ActorError.
	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(aerrors.ActorError); ok {
				ret, err = nil, ae
				return
			}
			panic(r)
		}
	}()

	var params []byte
	if id := block.ID(args[0]); id != block.NoBlock {
		blk, err := ni.sc.BlockGet(id)
		if err != nil {
			return nil, err
		}
		params = blk.Data
	}

	rt := &Runtime{ctx: ctx, sc: ni.sc}
	out, err := ni.module.dispatcher.Dispatch(ni.sc.MethodNumber(), rt, params)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []uint64{uint64(block.NoBlock)}, nil
	}

	id, err := ni.sc.BlockCreate(block.DagCBOR, out)
	if err != nil {
		return nil, err
	}
	return []uint64{uint64(id)}, nil
}

func (ni *nativeInstance) Close(ctx context.Context) error {
	return nil
}

func (ni *nativeInstance) String() string {
	return fmt.Sprintf("native(%s)", ni.module.code)
}
