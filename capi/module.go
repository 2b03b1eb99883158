package capi

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/resource"
	"github.com/wippyai/wasm-guard/wasm"
)

// ModuleHandle is an opaque reference to a parsed module. 0 is null.
type ModuleHandle resource.Handle

// module is a parsed and validated module. It is never mutated after
// Parse, so clones and the instances built from it share nothing.
type module struct {
	parsed *wasm.Module
}

// decode parses and validates data the way Validate and Parse do.
func (e *engine) decode(data []byte, errOut *Error) *wasm.Module {
	m, err := wasm.ParseModule(data)
	if err != nil {
		setError(errOut, ErrorMalformedModule, err.Error())
		return nil
	}
	if err := m.Validate(); err != nil {
		setError(errOut, ErrorInvalidModule, err.Error())
		return nil
	}

	// Function bodies are validated by the compiler.
	ctx := context.Background()
	compiled, err := e.runtime.CompileModule(ctx, compilable(m))
	if err != nil {
		setError(errOut, ErrorInvalidModule, err.Error())
		return nil
	}
	_ = compiled.Close(ctx)
	return m
}

// Validate reports whether data is a valid module. Nothing is retained.
func Validate(data []byte, errOut *Error) bool {
	if defaultEngine().decode(data, errOut) == nil {
		return false
	}
	setSuccess(errOut)
	return true
}

// Parse parses and validates data. It returns 0 on failure.
func Parse(data []byte, errOut *Error) ModuleHandle {
	e := defaultEngine()
	m := e.decode(data, errOut)
	if m == nil {
		return 0
	}
	h := e.modules.Insert(&module{parsed: m})
	if h == 0 {
		setError(errOut, ErrorMemoryAllocationFailed, "memory allocation failed")
		return 0
	}
	setSuccess(errOut)
	Logger().Debug("module parsed", zap.Uint64("handle", uint64(h)))
	return ModuleHandle(h)
}

// CloneModule returns an independent copy of m, or 0 if the copy cannot
// be allocated.
func CloneModule(m ModuleHandle) ModuleHandle {
	e := defaultEngine()
	mod := e.mustModule(m)
	h := e.modules.Insert(&module{parsed: mod.parsed.Clone()})
	if h == 0 {
		Logger().Warn("module clone failed: handle table full", zap.Uint64("source", uint64(m)))
		return 0
	}
	return ModuleHandle(h)
}

// FreeModule releases m. Freeing 0 is a no-op. A module borrowed from an
// instance cannot be freed.
func FreeModule(m ModuleHandle) {
	if m == 0 {
		return
	}
	if _, err := defaultEngine().modules.Remove(resource.Handle(m)); err != nil {
		Logger().Warn("free module refused", zap.Uint64("handle", uint64(m)), zap.Error(err))
	}
}

func (e *engine) mustModule(m ModuleHandle) *module {
	mod, ok := e.modules.Get(resource.Handle(m))
	if !ok {
		Logger().Error("invalid module handle", zap.Uint64("handle", uint64(m)))
		panic("capi: invalid module handle")
	}
	return mod
}

// FindExportedFunctionIndex looks up a function export by exact name.
// Exports of other kinds never match.
func FindExportedFunctionIndex(m ModuleHandle, name string, idx *uint32) bool {
	mod := defaultEngine().mustModule(m)
	exp, ok := mod.parsed.FindExport(name, wasm.KindFunc)
	if !ok {
		return false
	}
	*idx = exp.Idx
	return true
}

// GetFunctionType returns the signature of function funcIdx, which
// includes imported functions. It panics for an index out of range.
func GetFunctionType(m ModuleHandle, funcIdx uint32) FunctionType {
	ft := defaultEngine().mustModule(m).parsed.GetFuncType(funcIdx)
	if ft == nil {
		panic("capi: function index out of range")
	}
	return functionType(ft)
}
