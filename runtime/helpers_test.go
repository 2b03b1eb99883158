package runtime

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-guard/wasm"
)

const (
	// foo: () -> i32 plus exports g1 (global), tab (table), mem (memory).
	hexFindExports = "0061736d010000000105016000017f030201000404017000000504010101020606017f0041000b07180403666f6f00000267310300037461620100036d656d02000a06010400412a0b"

	// (import "mod" "m" (memory 1))
	hexMemoryImport = "0061736d01000000020a01036d6f64016d020001"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func mustParse(t *testing.T, data []byte) *Module {
	t.Helper()
	m, err := Parse(data)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func mustInstantiate(t *testing.T, data []byte, opts ...InstantiateOption) *Instance {
	t.Helper()
	inst, err := mustParse(t, data).Instantiate(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close() })
	return inst
}

func body(code ...byte) wasm.FuncBody {
	return wasm.FuncBody{Code: append(code, wasm.OpEnd)}
}

func funcExport(name string, idx uint32) wasm.Export {
	return wasm.Export{Name: name, Kind: wasm.KindFunc, Idx: idx}
}

var (
	i32 = wasm.ValI32
	i64 = wasm.ValI64
	f32 = wasm.ValF32
	f64 = wasm.ValF64
)

// calcModule exports identity functions for every value type plus add,
// void and trap. It has no memory.
func calcModule() []byte {
	return (&wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{i32}, Results: []wasm.ValType{i32}},
			{Params: []wasm.ValType{i64}, Results: []wasm.ValType{i64}},
			{Params: []wasm.ValType{f32}, Results: []wasm.ValType{f32}},
			{Params: []wasm.ValType{f64}, Results: []wasm.ValType{f64}},
			{Params: []wasm.ValType{i32, i32}, Results: []wasm.ValType{i32}},
			{},
			{Params: []wasm.ValType{i32, i64, f32, f64}},
		},
		Funcs: []uint32{0, 1, 2, 3, 4, 5, 5, 6},
		Code: []wasm.FuncBody{
			body(0x20, 0x00),                   // local.get 0
			body(0x20, 0x00),                   // local.get 0
			body(0x20, 0x00),                   // local.get 0
			body(0x20, 0x00),                   // local.get 0
			body(0x20, 0x00, 0x20, 0x01, 0x6a), // i32.add
			body(),                             // nop
			body(0x00),                         // unreachable
			body(),                             // takes four params
		},
		Exports: []wasm.Export{
			funcExport("i32", 0),
			funcExport("i64", 1),
			funcExport("f32", 2),
			funcExport("f64", 3),
			funcExport("add", 4),
			funcExport("void", 5),
			funcExport("trap", 6),
			funcExport("mixed", 7),
		},
	}).Encode()
}

// memoryModule has a memory of minPages pages without a maximum and
// exports grow (i32) -> i32, load (i32) -> i32 and store (i32, i32).
func memoryModule(minPages uint32) []byte {
	return (&wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{i32}, Results: []wasm.ValType{i32}},
			{Params: []wasm.ValType{i32, i32}},
		},
		Funcs:    []uint32{0, 0, 1},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: minPages}}},
		Code: []wasm.FuncBody{
			body(0x20, 0x00, 0x40, 0x00),                   // memory.grow
			body(0x20, 0x00, 0x28, 0x02, 0x00),             // i32.load
			body(0x20, 0x00, 0x20, 0x01, 0x36, 0x02, 0x00), // i32.store
		},
		Exports: []wasm.Export{
			funcExport("grow", 0),
			funcExport("load", 1),
			funcExport("store", 2),
			{Name: "memory", Kind: wasm.KindMemory, Idx: 0},
		},
	}).Encode()
}
