package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-state-types/exitcode"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-cid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"golang.org/x/sync/singleflight"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
)

// DefaultModuleCacheSize is the number of compiled modules kept by default.
const DefaultModuleCacheSize = 256

// WasmConfig configures the wasm engine.
type WasmConfig struct {
	// Interpreter selects the wazero interpreter instead of the compiler.
	Interpreter bool
	// ModuleCacheSize is the number of compiled modules kept. If set to 0, a
	// default size is used. If negative, no cache is used.
	ModuleCacheSize int
	// MemoryLimitPages caps the linear memory of each instance; 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
}

// WasmEngine compiles and instantiates wasm actors. One engine serves many
// machines; host functions are registered once and find the capability record
// of the running invocation through the call context.
type WasmEngine struct {
	runtime  wazero.Runtime
	cache    *lru.Cache[cid.Cid, *compiledCode]
	compiles singleflight.Group
}

// compiledCode is a compiled module shared by the cache and the instances
// created from it. It is closed once it has been retired from the cache (or
// was never cached) and its last instance is closed.
type compiledCode struct {
	code     cid.Cid
	wasm     []byte
	compiled wazero.CompiledModule

	lk      sync.Mutex
	live    int
	retired bool
	closed  bool
}

// acquire registers a new instance; it fails once the module is closed.
func (c *compiledCode) acquire() bool {
	c.lk.Lock()
	defer c.lk.Unlock()
	if c.closed {
		return false
	}
	c.live++
	return true
}

func (c *compiledCode) release(ctx context.Context) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.live--
	c.closeIfUnused(ctx)
}

func (c *compiledCode) retire(ctx context.Context) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.retired = true
	c.closeIfUnused(ctx)
}

func (c *compiledCode) closeIfUnused(ctx context.Context) {
	if c.retired && c.live == 0 && !c.closed {
		c.closed = true
		if err := c.compiled.Close(ctx); err != nil {
			log.Warnw("closing compiled module", "code", c.code, "err", err)
		}
	}
}

// NewWasmEngine creates a wazero runtime and registers the host modules.
func NewWasmEngine(ctx context.Context, cfg WasmConfig) (*WasmEngine, error) {
	var rcfg wazero.RuntimeConfig
	if cfg.Interpreter {
		rcfg = wazero.NewRuntimeConfigInterpreter()
	} else {
		rcfg = wazero.NewRuntimeConfig()
	}
	if cfg.MemoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, rcfg)

	for name, funcs := range hostModules() {
		builder := r.NewHostModuleBuilder(name)
		for fnName, fn := range funcs {
			builder = builder.NewFunctionBuilder().WithFunc(fn).Export(fnName)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			_ = r.Close(ctx)
			return nil, fmt.Errorf("registering host module %s: %w", name, err)
		}
	}

	size := cfg.ModuleCacheSize
	if size == 0 {
		size = DefaultModuleCacheSize
	}
	var cache *lru.Cache[cid.Cid, *compiledCode]
	if size > 0 {
		var err error
		cache, err = lru.NewWithEvict[cid.Cid, *compiledCode](size, func(_ cid.Cid, c *compiledCode) {
			c.retire(context.Background())
		})
		if err != nil {
			_ = r.Close(ctx)
			return nil, err
		}
	}

	log.Infow("wasm engine ready", "interpreter", cfg.Interpreter, "moduleCache", size)
	return &WasmEngine{runtime: r, cache: cache}, nil
}

// Compile returns the compiled module for code, compiling wasm on a cache
// miss. A module that fails to compile or lacks the entry point is an
// illegal actor.
func (e *WasmEngine) Compile(ctx context.Context, code cid.Cid, wasm []byte) (Module, error) {
	if e.cache != nil {
		if cc, ok := e.cache.Get(code); ok {
			return &wasmModule{engine: e, code: cc}, nil
		}
	}

	v, err, _ := e.compiles.Do(code.KeyString(), func() (interface{}, error) {
		cc, err := e.compile(ctx, code, wasm)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			e.cache.Add(code, cc)
		} else {
			cc.retired = true
		}
		return cc, nil
	})
	if err != nil {
		return nil, err
	}

	log.Debugw("compiled actor code", "code", code, "size", len(wasm))
	return &wasmModule{engine: e, code: v.(*compiledCode)}, nil
}

func (e *WasmEngine) compile(ctx context.Context, code cid.Cid, wasm []byte) (*compiledCode, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, aerrors.Absorb(err, exitcode.SysErrorIllegalActor, fmt.Sprintf("compiling actor code %s", code))
	}
	if err := checkEntryPoint(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, aerrors.Wrapf(err, "actor code %s", code)
	}
	return &compiledCode{code: code, wasm: wasm, compiled: compiled}, nil
}

func checkEntryPoint(compiled wazero.CompiledModule) aerrors.ActorError {
	def, ok := compiled.ExportedFunctions()[EntryPoint]
	if !ok {
		return aerrors.Newf(exitcode.SysErrorIllegalActor, "missing %q export", EntryPoint)
	}
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(params) != 1 || params[0] != api.ValueTypeI32 || len(results) != 1 || results[0] != api.ValueTypeI32 {
		return aerrors.Newf(exitcode.SysErrorIllegalActor, "%q must have type (i32) -> i32", EntryPoint)
	}
	return nil
}

// Close releases the runtime and every compiled module.
func (e *WasmEngine) Close(ctx context.Context) error {
	if e.cache != nil {
		e.cache.Purge()
	}
	return e.runtime.Close(ctx)
}

type wasmModule struct {
	engine *WasmEngine
	code   *compiledCode
}

var _ Module = (*wasmModule)(nil)

func (wm *wasmModule) Instantiate(ctx context.Context, sc *syscalls.Syscalls) (Instance, error) {
	cc := wm.code
	if !cc.acquire() {
		// evicted and closed since Compile returned
		fresh, err := wm.engine.compile(ctx, cc.code, cc.wasm)
		if err != nil {
			return nil, err
		}
		fresh.retired = true
		fresh.acquire()
		cc = fresh
	}

	ctx = syscalls.WithSyscalls(ctx, sc)
	// anonymous so the same code can be live more than once on the call stack
	mod, err := wm.engine.runtime.InstantiateModule(ctx, cc.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		cc.release(ctx)
		return nil, trapError(err, "instantiating actor")
	}
	return &wasmInstance{mod: mod, sc: sc, code: cc}, nil
}

type wasmInstance struct {
	mod  api.Module
	sc   *syscalls.Syscalls
	code *compiledCode
}

var _ Instance = (*wasmInstance)(nil)

func (wi *wasmInstance) Call(ctx context.Context, fn string, args ...uint64) ([]uint64, error) {
	f := wi.mod.ExportedFunction(fn)
	if f == nil {
		return nil, aerrors.Newf(exitcode.SysErrorIllegalActor, "actor does not export %q", fn)
	}
	res, err := f.Call(syscalls.WithSyscalls(ctx, wi.sc), args...)
	if err != nil {
		return nil, trapError(err, "actor trapped")
	}
	return res, nil
}

func (wi *wasmInstance) Close(ctx context.Context) error {
	err := wi.mod.Close(ctx)
	wi.code.release(ctx)
	return err
}

// trapError recovers the ActorError a host function trapped with, or turns a
// plain wasm trap into an illegal-actor error. A host function that panicked
// with anything else panics again here, outside of wazero.
func trapError(err error, msg string) error {
	var hp hostPanic
	if errors.As(err, &hp) {
		panic(hp.value)
	}
	var ae aerrors.ActorError
	if errors.As(err, &ae) {
		return ae
	}
	return aerrors.Absorb(err, exitcode.SysErrorIllegalActor, msg)
}
