// Package wasmtest assembles small wasm modules for tests.
package wasmtest

import (
	"bytes"

	"github.com/tetratelabs/wabin/binary"
	"github.com/tetratelabs/wabin/leb128"
	"github.com/tetratelabs/wabin/wasm"
)

var (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64
)

// module is a single-memory wasm module whose defined functions all share
// the entry point signature (i32) -> i32 at type index 0.
type module struct {
	types   []*wasm.FunctionType
	imports []*wasm.Import
	body    []byte
	memory  bool
	data    []byte
	export  bool
}

func (m module) encode() []byte {
	types := append([]*wasm.FunctionType{{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}}, m.types...)
	mod := &wasm.Module{
		TypeSection:     types,
		ImportSection:   m.imports,
		FunctionSection: []wasm.Index{0},
		CodeSection:     []*wasm.Code{{Body: append(append([]byte{}, m.body...), wasm.OpcodeEnd)}},
	}
	if m.memory {
		mod.MemorySection = &wasm.Memory{Min: 1}
	}
	if m.export {
		mod.ExportSection = []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "invoke", Index: wasm.Index(len(m.imports))}}
	}
	if len(m.data) > 0 {
		mod.DataSection = []*wasm.DataSegment{{
			OffsetExpression: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: leb128.EncodeInt32(0)},
			Init:             m.data,
		}}
	}
	return binary.EncodeModule(mod)
}

// importFunc declares an imported host function of type index typ.
func importFunc(mod, name string, typ wasm.Index) *wasm.Import {
	return &wasm.Import{Type: wasm.ExternTypeFunc, Module: mod, Name: name, DescFunc: typ}
}

func code(instrs ...[]byte) []byte {
	return bytes.Join(instrs, nil)
}

func localGet(i uint32) []byte { return append([]byte{wasm.OpcodeLocalGet}, leb128.EncodeUint32(i)...) }
func i32Const(v int32) []byte  { return append([]byte{wasm.OpcodeI32Const}, leb128.EncodeInt32(v)...) }
func i64Const(v int64) []byte  { return append([]byte{wasm.OpcodeI64Const}, leb128.EncodeInt64(v)...) }
func call(i uint32) []byte     { return append([]byte{wasm.OpcodeCall}, leb128.EncodeUint32(i)...) }

// i32Load loads an aligned i32 from the address on the stack plus offset.
func i32Load(offset uint32) []byte {
	return append([]byte{wasm.OpcodeI32Load, 0x02}, leb128.EncodeUint32(offset)...)
}

var (
	drop        = []byte{wasm.OpcodeDrop}
	unreachable = []byte{wasm.OpcodeUnreachable}
)
