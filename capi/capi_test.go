package capi

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-guard/wasm"
)

// Fixtures shared by the package tests.
const (
	// (func $foo (export "foo") (result i32) i32.const 42)
	// plus exports g1 (global), tab (table), mem (memory).
	hexFindExports = "0061736d010000000105016000017f030201000404017000000504010101020606017f0041000b07180403666f6f00000267310300037461620100036d656d02000a06010400412a0b"

	// foo: () -> i32 and bar: (i32) -> i32, both return 42, plus g1, tab, mem.
	hexExecute = "0061736d01000000010a026000017f60017f017f03030200010404017000000504010101020606017f0041000b071e0503666f6f00000362617200010267310300037461620100036d656d02000a0b020400412a0b0400412a0b"

	// No exports. 0: () -> (), 1: () -> i32 (42), 2: (i32, i32) -> i32 div_u,
	// 3: () -> () unreachable.
	hexUnexported = "0061736d01000000010e036000006000017f60027f7f017f030504000102000a150402000b0400412a0b0700200020016e0b0300000b"

	// (import "mod" "m" (memory 1))
	hexMemoryImport = "0061736d01000000020a01036d6f64016d020001"

	// (memory 2)
	hexMemory2 = "0061736d010000000503010002"

	// (memory 0) and func 0: (i32) -> i32 doing memory.grow, not exported.
	hexMemoryGrow = "0061736d0100000001060160017f017f0302010005030100000a08010600200040000b"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// useEngine runs the test against a fresh engine built from cfg.
func useEngine(t *testing.T, cfg Config) {
	t.Helper()
	e, err := newEngine(cfg)
	require.NoError(t, err)

	currentMu.Lock()
	prev := current
	current = e
	currentMu.Unlock()

	t.Cleanup(func() {
		currentMu.Lock()
		current = prev
		currentMu.Unlock()
		require.NoError(t, e.close(context.Background()))
	})
}

func parse(t *testing.T, data []byte) ModuleHandle {
	t.Helper()
	var rec Error
	m := Parse(data, &rec)
	require.NotZero(t, m, "parse: %s", rec.MessageString())
	require.Equal(t, Success, rec.Code)
	return m
}

func instantiate(t *testing.T, data []byte) InstanceHandle {
	t.Helper()
	var rec Error
	inst := Instantiate(context.Background(), parse(t, data), nil, MemoryPagesLimitDefault, &rec)
	require.NotZero(t, inst, "instantiate: %s", rec.MessageString())
	t.Cleanup(func() { FreeInstance(inst) })
	return inst
}

func ptrTo[T any](v T) *T { return &v }

func voidType() wasm.FuncType { return wasm.FuncType{} }
