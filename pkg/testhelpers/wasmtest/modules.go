package wasmtest

import "github.com/tetratelabs/wabin/wasm"

// Echo returns its params block as the result.
func Echo() []byte {
	return module{body: localGet(0), export: true}.encode()
}

// ChargeAndEcho charges compute gas under the name "wasm" and then echoes
// its params.
func ChargeAndEcho(compute int64) []byte {
	return module{
		types:   []*wasm.FunctionType{{Params: []wasm.ValueType{i32, i32, i64}}},
		imports: []*wasm.Import{importFunc("gas", "charge", 1)},
		body: code(
			i32Const(0), i32Const(4), i64Const(compute), call(0),
			localGet(0),
		),
		memory: true,
		data:   []byte("wasm"),
		export: true,
	}.encode()
}

// Trap hits an unreachable instruction.
func Trap() []byte {
	return module{body: unreachable, export: true}.encode()
}

// Abort aborts with the given exit code and the message "boom".
func Abort(exitCode int32) []byte {
	return module{
		types:   []*wasm.FunctionType{{Params: []wasm.ValueType{i32, i32, i32}}},
		imports: []*wasm.Import{importFunc("vm", "abort", 1)},
		body: code(
			i32Const(exitCode), i32Const(0), i32Const(4), call(0),
			unreachable,
		),
		memory: true,
		data:   []byte("boom"),
		export: true,
	}.encode()
}

// ReceiptOffset is where Send stores the nested receipt in memory.
const ReceiptOffset = 64

// Send forwards its params block to the actor at the raw address to, sending
// value (which must fit in 63 bits) with the given method. The result is a
// raw block holding the 8 byte receipt: the little-endian exit code followed
// by the return block id.
func Send(to []byte, method uint64, value int64) []byte {
	return module{
		types: []*wasm.FunctionType{
			{Params: []wasm.ValueType{i32, i32, i64, i32, i64, i64, i32}, Results: []wasm.ValueType{i32}},
			{Params: []wasm.ValueType{i64, i32, i32, i32}, Results: []wasm.ValueType{i32}},
		},
		imports: []*wasm.Import{
			importFunc("send", "send", 1),
			importFunc("ipld", "block_create", 2),
		},
		body: code(
			i32Const(0), i32Const(int32(len(to))), i64Const(int64(method)), localGet(0),
			i64Const(0), i64Const(value), i32Const(ReceiptOffset), call(0),
			drop,
			i64Const(0x55), i32Const(ReceiptOffset), i32Const(8), i32Const(ReceiptOffset+16), call(1),
			drop,
			i32Const(ReceiptOffset+16), i32Load(0),
		),
		memory: true,
		data:   to,
		export: true,
	}.encode()
}

// NoEntryPoint exports nothing.
func NoEntryPoint() []byte {
	return module{body: localGet(0)}.encode()
}

// BlockRead reads the block whose id is its params into memory at offset 0
// with a buffer of bufLen bytes and returns the status of the read.
func BlockRead(bufLen uint32) []byte {
	return module{
		types:   []*wasm.FunctionType{{Params: []wasm.ValueType{i32, i32, i32, i32, i32}, Results: []wasm.ValueType{i32}}},
		imports: []*wasm.Import{importFunc("ipld", "block_read", 1)},
		body: code(
			localGet(0), i32Const(0), i32Const(0), i32Const(int32(bufLen)), i32Const(16), call(0),
		),
		memory: true,
		export: true,
	}.encode()
}

// SendStatus sends its params block to the actor at the raw address to with
// method 0 and no value, asking for the receipt at retOff. It returns the
// status of the send.
func SendStatus(to []byte, retOff uint32) []byte {
	return module{
		types: []*wasm.FunctionType{
			{Params: []wasm.ValueType{i32, i32, i64, i32, i64, i64, i32}, Results: []wasm.ValueType{i32}},
		},
		imports: []*wasm.Import{importFunc("send", "send", 1)},
		body: code(
			i32Const(0), i32Const(int32(len(to))), i64Const(0), localGet(0),
			i64Const(0), i64Const(0), i32Const(int32(retOff)), call(0),
		),
		memory: true,
		data:   to,
		export: true,
	}.encode()
}
