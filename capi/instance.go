package capi

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/resource"
	"github.com/wippyai/wasm-guard/wasm"
)

// InstanceHandle is an opaque reference to an instance. 0 is null.
type InstanceHandle resource.Handle

type instance struct {
	mod      api.Module
	compiled wazero.CompiledModule
	memory   api.Memory // nil without a memory
	funcs    []api.Function
	module   ModuleHandle
}

// Drop implements resource.Dropper.
func (i *instance) Drop() {
	ctx := context.Background()
	if err := i.mod.Close(ctx); err != nil {
		Logger().Warn("close instance", zap.Error(err))
	}
	if err := i.compiled.Close(ctx); err != nil {
		Logger().Warn("close compiled module", zap.Error(err))
	}
}

// instantiateError is a failure with the error code it reports.
type instantiateError struct {
	msg  string
	code ErrorCode
}

func (e *instantiateError) Error() string { return e.msg }

func instantiateFailed(format string, args ...any) error {
	return &instantiateError{code: ErrorInstantiationFailed, msg: fmt.Sprintf(format, args...)}
}

// Instantiate creates an instance of m. It always consumes m: on failure
// the module is freed, on success it is owned by the instance and
// reachable through GetInstanceModule.
//
// Host functions are not supported, so imports must match the module's
// function imports in number and modules with any import fail to
// instantiate. memoryPagesLimit caps the memory size in pages and must
// not exceed MaxMemoryPagesLimit.
func Instantiate(ctx context.Context, m ModuleHandle, imports []ImportedFunction, memoryPagesLimit uint32, errOut *Error) InstanceHandle {
	e := defaultEngine()
	h := resource.Handle(m)
	mod, ok := e.modules.Get(h)
	if !ok || e.table.Borrowed(h) {
		setError(errOut, ErrorOther, "invalid module handle")
		return 0
	}

	inst, err := e.instantiate(ctx, mod.parsed, imports, memoryPagesLimit)
	if err != nil {
		FreeModule(m)
		code := ErrorInstantiationFailed
		if ie, ok := err.(*instantiateError); ok {
			code = ie.code
		}
		setError(errOut, code, err.Error())
		return 0
	}
	inst.module = m

	ih := e.instances.Insert(inst)
	if ih == 0 {
		inst.Drop()
		FreeModule(m)
		setError(errOut, ErrorMemoryAllocationFailed, "memory allocation failed")
		return 0
	}
	e.table.Borrow(h)
	setSuccess(errOut)
	Logger().Debug("module instantiated",
		zap.Uint64("module", uint64(m)), zap.Uint64("instance", uint64(ih)))
	return InstanceHandle(ih)
}

func (e *engine) instantiate(ctx context.Context, m *wasm.Module, imports []ImportedFunction, memoryPagesLimit uint32) (*instance, error) {
	if memoryPagesLimit > MaxMemoryPagesLimit {
		return nil, instantiateFailed("hard memory limit cannot exceed %d bytes", uint64(MaxMemoryPagesLimit)*PageSize)
	}
	if err := matchImports(m, imports); err != nil {
		return nil, err
	}
	if mem := m.Memory(); mem != nil {
		l := mem.Limits
		if l.Min > memoryPagesLimit || (l.Max != nil && *l.Max > memoryPagesLimit) {
			return nil, instantiateFailed("cannot exceed hard memory limit of %d bytes", uint64(memoryPagesLimit)*PageSize)
		}
	}

	prefix := funcExportPrefixFor(m)
	compiled, err := e.runtime.CompileModule(ctx, executable(m, prefix, memoryPagesLimit))
	if err != nil {
		return nil, instantiateFailed("%v", err)
	}

	// Anonymous so any number of instances can coexist in the runtime.
	modCfg := wazero.NewModuleConfig().WithName("").WithStartFunctions()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, instantiateFailed("%v", err)
	}

	inst := &instance{mod: mod, compiled: compiled}
	inst.funcs = make([]api.Function, m.NumFuncs())
	for i := range inst.funcs {
		inst.funcs[i] = mod.ExportedFunction(funcExportName(prefix, i))
	}
	if m.Memory() != nil {
		inst.memory = mod.Memory()
	}
	return inst, nil
}

// matchImports fails for any import the module declares, since only an
// empty import list can be satisfied.
func matchImports(m *wasm.Module, imports []ImportedFunction) error {
	if n := m.NumImportedFuncs(); n != len(imports) {
		return instantiateFailed("module requires %d imported functions, %d provided", n, len(imports))
	}
	if len(imports) > 0 {
		return instantiateFailed("host functions are not supported")
	}
	if m.NumImportedTables() > 0 {
		return instantiateFailed("module defines an imported table but none was provided")
	}
	if m.NumImportedMemories() > 0 {
		return instantiateFailed("module defines an imported memory but none was provided")
	}
	if n := m.NumImportedGlobals(); n > 0 {
		return instantiateFailed("module requires %d imported globals, 0 provided", n)
	}
	return nil
}

// FreeInstance releases i and the module it owns. Freeing 0 is a no-op.
func FreeInstance(i InstanceHandle) {
	if i == 0 {
		return
	}
	e := defaultEngine()
	inst, err := e.instances.Remove(resource.Handle(i))
	if err != nil {
		Logger().Warn("free instance refused", zap.Uint64("handle", uint64(i)), zap.Error(err))
		return
	}
	e.table.ReturnBorrow(resource.Handle(inst.module))
	FreeModule(inst.module)
	Logger().Debug("instance freed", zap.Uint64("handle", uint64(i)))
}

func (e *engine) mustInstance(i InstanceHandle) *instance {
	inst, ok := e.instances.Get(resource.Handle(i))
	if !ok {
		Logger().Error("invalid instance handle", zap.Uint64("handle", uint64(i)))
		panic("capi: invalid instance handle")
	}
	return inst
}

// GetInstanceModule returns the module owned by i. The handle is
// borrowed: it stays valid until i is freed and must not be freed.
func GetInstanceModule(i InstanceHandle) ModuleHandle {
	return defaultEngine().mustInstance(i).module
}

// emptyMemory backs the data pointer of a zero-sized memory so it is
// distinguishable from no memory at all.
var emptyMemory byte

// GetInstanceMemoryData returns a pointer to the start of i's linear
// memory, or nil if i has no memory. The pointer is invalidated by
// memory growth.
func GetInstanceMemoryData(i InstanceHandle) unsafe.Pointer {
	mem := defaultEngine().mustInstance(i).memory
	if mem == nil {
		return nil
	}
	buf, ok := mem.Read(0, 1)
	if !ok {
		return unsafe.Pointer(&emptyMemory)
	}
	return unsafe.Pointer(unsafe.SliceData(buf))
}

// GetInstanceMemorySize returns the size of i's linear memory in bytes,
// 0 if it has none.
func GetInstanceMemorySize(i InstanceHandle) uint64 {
	mem := defaultEngine().mustInstance(i).memory
	if mem == nil {
		return 0
	}
	pages, _ := mem.Grow(0)
	return uint64(pages) * PageSize
}
