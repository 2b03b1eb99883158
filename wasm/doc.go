// Package wasm provides WebAssembly 1.0 binary format decoding, module-level
// validation and encoding.
//
// Function bodies are kept as raw bytecode; instruction-level validation is
// left to the compiler. Everything else in the binary is decoded into
// [Module] and can be inspected, modified and re-encoded.
//
// # Parsing
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasm.ParseModule(data)
//	if err != nil {
//	    log.Fatal(err) // malformed binary
//	}
//	if err := module.Validate(); err != nil {
//	    log.Fatal(err) // well-formed but invalid module
//	}
//
// [ParseModule] errors always mean the bytes are not a well-formed binary.
// [Module.Validate] errors mean the binary decoded but breaks a validation
// rule: an unknown index, a second memory, a type mismatch in a constant
// expression, and so on.
//
// # Encoding
//
//	encoded := module.Encode()
//
// Decoding then encoding preserves module semantics. Integer immediates are
// re-encoded in their shortest LEB128 form, so the bytes may differ.
//
// # Building modules
//
// Modules can be built directly, which is how tests construct fixtures:
//
//	m := &wasm.Module{
//	    Types:   []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32}}},
//	    Funcs:   []uint32{0},
//	    Code:    []wasm.FuncBody{{Code: []byte{wasm.OpI32Const, 42, wasm.OpEnd}}},
//	    Exports: []wasm.Export{{Name: "answer", Kind: wasm.KindFunc, Idx: 0}},
//	}
//	bin := m.Encode()
package wasm
