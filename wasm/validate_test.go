package wasm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-guard/wasm"
)

func TestValidate_Valid(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
			{},
		},
		Funcs:    []uint32{0, 1},
		Tables:   []wasm.TableType{{ElemType: wasm.ElemTypeFuncRef, Limits: wasm.Limits{Min: 2}}},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Max: ptrTo(uint32(2))}}},
		Exports: []wasm.Export{
			{Name: "add", Kind: wasm.KindFunc, Idx: 0},
			{Name: "memory", Kind: wasm.KindMemory, Idx: 0},
		},
		Start:    ptrTo(uint32(1)),
		Elements: []wasm.Element{{Offset: wasm.I32Const(0), FuncIdxs: []uint32{0, 1}}},
		Data:     []wasm.DataSegment{{Offset: wasm.I32Const(16), Init: []byte("hi")}},
		Code: []wasm.FuncBody{
			{Code: []byte{0x20, 0x00, wasm.OpEnd}},
			{Code: []byte{wasm.OpEnd}},
		},
	}
	require.NoError(t, m.Validate())
}

func TestValidate_Errors(t *testing.T) {
	i32 := []wasm.ValType{wasm.ValI32}
	tests := []struct {
		name     string
		module   *wasm.Module
		contains string
	}{
		{
			name: "invalid type index",
			module: &wasm.Module{
				Types: []wasm.FuncType{{}},
				Funcs: []uint32{5},
			},
			contains: "invalid type index",
		},
		{
			name: "import with invalid type index",
			module: &wasm.Module{
				Imports: []wasm.Import{{Module: "env", Name: "f", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 1}}},
			},
			contains: "env.f",
		},
		{
			name: "multiple results",
			module: &wasm.Module{
				Types: []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32, wasm.ValI64}}},
			},
			contains: "multiple return values",
		},
		{
			name: "two memories",
			module: &wasm.Module{
				Memories: []wasm.MemoryType{{}, {}},
			},
			contains: "multiple memories",
		},
		{
			name: "imported and defined table",
			module: &wasm.Module{
				Imports: []wasm.Import{{Module: "env", Name: "t", Desc: wasm.ImportDesc{Kind: wasm.KindTable, Table: &wasm.TableType{ElemType: wasm.ElemTypeFuncRef}}}},
				Tables:  []wasm.TableType{{ElemType: wasm.ElemTypeFuncRef}},
			},
			contains: "multiple tables",
		},
		{
			name: "memory min above 4GiB",
			module: &wasm.Module{
				Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 65537}}},
			},
			contains: "min pages 65537 exceeds maximum",
		},
		{
			name: "memory max above 4GiB",
			module: &wasm.Module{
				Memories: []wasm.MemoryType{{Limits: wasm.Limits{Max: ptrTo(uint32(70000))}}},
			},
			contains: "max pages 70000",
		},
		{
			name: "table min above max",
			module: &wasm.Module{
				Tables: []wasm.TableType{{Limits: wasm.Limits{Min: 3, Max: ptrTo(uint32(1))}}},
			},
			contains: "min (3) exceeds max (1)",
		},
		{
			name: "global init type mismatch",
			module: &wasm.Module{
				Globals: []wasm.Global{{Type: wasm.GlobalType{ValType: wasm.ValI64}, Init: wasm.I32Const(1)}},
			},
			contains: "expected i64, got i32",
		},
		{
			name: "global init reads defined global",
			module: &wasm.Module{
				Globals: []wasm.Global{
					{Type: wasm.GlobalType{ValType: wasm.ValI32}, Init: wasm.I32Const(1)},
					{Type: wasm.GlobalType{ValType: wasm.ValI32}, Init: wasm.GlobalGet(0)},
				},
			},
			contains: "unknown global 0",
		},
		{
			name: "global init reads mutable import",
			module: &wasm.Module{
				Imports: []wasm.Import{{Module: "env", Name: "g", Desc: wasm.ImportDesc{Kind: wasm.KindGlobal, Global: &wasm.GlobalType{ValType: wasm.ValI32, Mutable: true}}}},
				Globals: []wasm.Global{{Type: wasm.GlobalType{ValType: wasm.ValI32}, Init: wasm.GlobalGet(0)}},
			},
			contains: "mutable global",
		},
		{
			name: "duplicate export",
			module: &wasm.Module{
				Types: []wasm.FuncType{{}},
				Funcs: []uint32{0},
				Code:  []wasm.FuncBody{{Code: []byte{wasm.OpEnd}}},
				Exports: []wasm.Export{
					{Name: "f", Kind: wasm.KindFunc, Idx: 0},
					{Name: "f", Kind: wasm.KindFunc, Idx: 0},
				},
			},
			contains: "duplicate export name",
		},
		{
			name: "export of missing memory",
			module: &wasm.Module{
				Exports: []wasm.Export{{Name: "mem", Kind: wasm.KindMemory, Idx: 0}},
			},
			contains: "invalid memory index",
		},
		{
			name: "start with params",
			module: &wasm.Module{
				Types: []wasm.FuncType{{Params: i32}},
				Funcs: []uint32{0},
				Code:  []wasm.FuncBody{{Code: []byte{wasm.OpEnd}}},
				Start: ptrTo(uint32(0)),
			},
			contains: "start function must have signature",
		},
		{
			name: "start out of range",
			module: &wasm.Module{
				Start: ptrTo(uint32(3)),
			},
			contains: "exceeds function count",
		},
		{
			name: "element without table",
			module: &wasm.Module{
				Elements: []wasm.Element{{Offset: wasm.I32Const(0)}},
			},
			contains: "invalid table index",
		},
		{
			name: "element with unknown function",
			module: &wasm.Module{
				Tables:   []wasm.TableType{{ElemType: wasm.ElemTypeFuncRef, Limits: wasm.Limits{Min: 1}}},
				Elements: []wasm.Element{{Offset: wasm.I32Const(0), FuncIdxs: []uint32{4}}},
			},
			contains: "invalid function index 4",
		},
		{
			name: "data without memory",
			module: &wasm.Module{
				Data: []wasm.DataSegment{{Offset: wasm.I32Const(0)}},
			},
			contains: "invalid memory index",
		},
		{
			name: "data offset not i32",
			module: &wasm.Module{
				Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
				Data:     []wasm.DataSegment{{Offset: wasm.ConstExpr{Opcode: wasm.OpI64Const}}},
			},
			contains: "expected i32, got i64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.module.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidate_ImportedGlobalInit(t *testing.T) {
	m := &wasm.Module{
		Imports: []wasm.Import{{Module: "env", Name: "base", Desc: wasm.ImportDesc{Kind: wasm.KindGlobal, Global: &wasm.GlobalType{ValType: wasm.ValI32}}}},
		Globals: []wasm.Global{{Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true}, Init: wasm.GlobalGet(0)}},
	}
	assert.NoError(t, m.Validate())
}

func TestParseModuleValidate(t *testing.T) {
	bad := &wasm.Module{Memories: []wasm.MemoryType{{}, {}}}
	_, err := wasm.ParseModuleValidate(bad.Encode())
	assert.Error(t, err)

	good := &wasm.Module{Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}}}
	m, err := wasm.ParseModuleValidate(good.Encode())
	require.NoError(t, err)
	assert.Len(t, m.Memories, 1)
}
