// Package wasmguard runs WebAssembly 1.0 modules behind a memory-safe,
// typed API.
//
// The engine is reached through a flat, handle-based interface where
// ownership and value types are the caller's responsibility. The runtime
// package wraps it so that handles are released exactly once, errors are
// structured, values are tagged and memory access is bounds-checked.
//
// # Architecture Overview
//
//	wasmguard/           Root package with the Memory interfaces
//	├── runtime/         Safe API: Module, Instance, Value, memory access
//	├── capi/            Flat engine interface over wazero
//	├── wasm/            WASM 1.0 binary decoding, validation, encoding
//	├── resource/        Typed handle table behind engine handles
//	├── errors/          Structured error types
//	├── config/          Layered configuration for the CLI
//	├── metrics/         Prometheus collectors for engine activity
//	└── cmd/run/         Command line runner
//
// # Quick Start
//
//	mod, err := runtime.Parse(wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx) // consumes mod
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close()
//
//	res, err := inst.Execute(ctx, "add", runtime.U32(2), runtime.U32(3))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Value.U32()) // 5
//
// # Limitations
//
// Host functions are not supported: modules that import anything fail to
// instantiate with an error listing the missing imports.
package wasmguard
