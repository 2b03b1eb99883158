package wasm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-guard/wasm"
)

func TestFuncTypeString(t *testing.T) {
	ft := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValF64}, Results: []wasm.ValType{wasm.ValI64}}
	assert.Equal(t, "(i32, f64) -> (i64)", ft.String())
	assert.Equal(t, "() -> ()", wasm.FuncType{}.String())
	assert.Equal(t, "unknown", wasm.ValType(0x40).String())
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "function", wasm.KindName(wasm.KindFunc))
	assert.Equal(t, "table", wasm.KindName(wasm.KindTable))
	assert.Equal(t, "memory", wasm.KindName(wasm.KindMemory))
	assert.Equal(t, "global", wasm.KindName(wasm.KindGlobal))
	assert.Equal(t, "unknown", wasm.KindName(9))
}

func TestFunctionIndexSpace(t *testing.T) {
	m := fullModule()
	assert.Equal(t, 3, m.NumFuncs())
	assert.Equal(t, 1, m.NumImportedFuncs())

	// index 0 is the import, 1 and 2 are defined
	idx, ok := m.FuncTypeIndex(0)
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	ft := m.GetFuncType(1)
	require.NotNil(t, ft)
	assert.Len(t, ft.Params, 2)

	assert.Nil(t, m.GetFuncType(3))
}

func TestGlobalIndexSpace(t *testing.T) {
	m := fullModule()
	assert.Equal(t, 2, m.NumGlobals())

	gt := m.GetGlobalType(0)
	require.NotNil(t, gt)
	assert.False(t, gt.Mutable)

	gt = m.GetGlobalType(1)
	require.NotNil(t, gt)
	assert.True(t, gt.Mutable)

	assert.Nil(t, m.GetGlobalType(2))
}

func TestAddType(t *testing.T) {
	m := &wasm.Module{}
	a := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	b := m.AddType(wasm.FuncType{})
	c := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	assert.Equal(t, uint32(0), a)
	assert.Equal(t, uint32(1), b)
	assert.Equal(t, a, c)
	assert.Len(t, m.Types, 2)
}

func TestHasTableAndMemory(t *testing.T) {
	m := &wasm.Module{}
	assert.False(t, m.HasTable())
	assert.Nil(t, m.Memory())

	m = fullModule()
	assert.True(t, m.HasTable())
	assert.NotNil(t, m.Memory())
}
