// Package runtime is a safe, typed API over the engine in package capi.
//
// # Quick Start
//
//	mod, err := runtime.Parse(wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Instantiate consumes mod, even on failure.
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close()
//
//	res, err := inst.Execute(ctx, "add", runtime.U32(1), runtime.U32(2))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Value.U32()) // 3
//
// # Ownership
//
// A Module is owned until instantiated or closed. Clone produces an
// independent module, so one parse can back several instances. An
// Instance owns its engine instance until Close. Resources that are never
// closed are released once the garbage collector finds them unreachable.
// Using a consumed module or a closed instance returns an error of kind
// released without reaching the engine.
//
// # Values
//
// Value is tagged with its type. Arguments are checked against the
// function signature, count first and then each position, before the
// engine is called. Reading a Value under a different type panics.
//
// # Memory
//
// ReadMemory and WriteMemory copy. WithMemory lends a view for the
// duration of a callback. UnsafeMemory returns a view that the next
// memory growth invalidates. All of them reject every range, empty ones
// included, when the instance has no memory, and accept an empty range
// at the end of memory.
//
// # Errors
//
// Every error is an *errors.Error; match kinds with errors.IsKind:
//
//	if errors.IsKind(err, errors.KindTrapped) {
//	    // the call trapped
//	}
package runtime
