// Package errors provides structured error types for wasm-guard.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Kinds split into two groups: those decoded from the engine error record
// (malformed_module, invalid_module, instantiation_failed, memory_allocation_failed,
// other, unknown) and those the wrapper detects itself before or after calling the
// engine (function_not_found, argument_count_mismatch, argument_type_mismatch,
// no_memory_available, invalid_memory_offset_or_size, trapped, released).
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseExecute, errors.KindArgumentTypeMismatch).
//		Func("add").
//		Expected("i32").
//		Actual("f64").
//		Detail("argument %d", 1).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FunctionNotFound("main")
//	err := errors.InvalidMemoryOffsetOrSize(offset, length, size)
//
// Matching ignores the phase when the target has none, so the package sentinels
// work from any call site:
//
//	if errors.Is(err, wgerrors.ErrTrapped) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
