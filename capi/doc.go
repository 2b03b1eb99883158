// Package capi is a flat, handle-based WebAssembly engine interface.
//
// Modules and instances are opaque integer handles where 0 is null.
// Fallible calls report failures through a sentinel return value (false
// or a null handle) and an optional *Error out-record holding an error
// code and a NUL-terminated message of at most 255 bytes. Values cross
// the interface untagged; the caller supplies their types.
//
//	var err capi.Error
//	m := capi.Parse(wasmBytes, &err)
//	if m == 0 {
//	    return fmt.Errorf("%s", err.MessageString())
//	}
//	inst := capi.Instantiate(ctx, m, nil, capi.MemoryPagesLimitDefault, &err) // consumes m
//	if inst == 0 {
//	    return fmt.Errorf("%s", err.MessageString())
//	}
//	defer capi.FreeInstance(inst)
//
//	var idx uint32
//	if capi.FindExportedFunctionIndex(capi.GetInstanceModule(inst), "add", &idx) {
//	    res := capi.Execute(ctx, inst, idx, []capi.Value{capi.ValueI32(1), capi.ValueI32(2)}, 0)
//	    _ = res.Value.I32()
//	}
//
// # Ownership
//
// Instantiate always consumes its module. The module of a live instance
// is borrowed: GetInstanceModule may be used for lookups, but FreeModule
// on it is refused. Handles of freed resources never resolve again.
//
// # Undefined use
//
// Lookups on an invalid handle and index-based accessors given an index
// out of range panic. Execute does not check arguments against the
// signature; that is the caller's job.
//
// Execution runs on wazero with WebAssembly 1.0 features. Custom sections
// are kept in the parsed module but never reach the compiler.
package capi
