package capi

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-guard/wasm"
)

const (
	// PageSize is the size of a linear memory page in bytes.
	PageSize = 65536
	// MaxMemoryPagesLimit is the largest accepted memory pages limit (4 GiB).
	MaxMemoryPagesLimit uint32 = 65536
	// MemoryPagesLimitDefault is the memory pages limit used when the
	// caller has no preference (256 MiB).
	MemoryPagesLimitDefault uint32 = 4096
	// CallStackLimit is the call depth at which Execute traps.
	CallStackLimit = 2048
)

// ValueType is the engine's value type byte.
type ValueType byte

const (
	ValueTypeVoid ValueType = 0
	ValueTypeI32  ValueType = 0x7f
	ValueTypeI64  ValueType = 0x7e
	ValueTypeF32  ValueType = 0x7d
	ValueTypeF64  ValueType = 0x7c
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeVoid:
		return "void"
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Value is an untagged value. Which member is meaningful depends on a
// type supplied separately, normally a function's signature.
type Value uint64

// I32 returns the value as an i32 member.
func (v Value) I32() uint32 { return api.DecodeU32(uint64(v)) }

// I64 returns the value as an i64 member.
func (v Value) I64() uint64 { return uint64(v) }

// F32 returns the value as an f32 member.
func (v Value) F32() float32 { return api.DecodeF32(uint64(v)) }

// F64 returns the value as an f64 member.
func (v Value) F64() float64 { return api.DecodeF64(uint64(v)) }

// ValueI32 sets the i32 member.
func ValueI32(v uint32) Value { return Value(api.EncodeU32(v)) }

// ValueI64 sets the i64 member.
func ValueI64(v uint64) Value { return Value(v) }

// ValueF32 sets the f32 member.
func ValueF32(v float32) Value { return Value(api.EncodeF32(v)) }

// ValueF64 sets the f64 member.
func ValueF64(v float64) Value { return Value(api.EncodeF64(v)) }

// FunctionType is a function signature. Output is ValueTypeVoid for
// functions without a result.
type FunctionType struct {
	Inputs []ValueType
	Output ValueType
}

func functionType(ft *wasm.FuncType) FunctionType {
	out := FunctionType{Output: ValueTypeVoid}
	if len(ft.Params) > 0 {
		out.Inputs = make([]ValueType, len(ft.Params))
		for i, p := range ft.Params {
			out.Inputs[i] = ValueType(p)
		}
	}
	if len(ft.Results) > 0 {
		out.Output = ValueType(ft.Results[0])
	}
	return out
}

// ExecutionResult is the outcome of Execute. A trapped result carries
// no value; HasValue is set only for functions with a non-void output.
type ExecutionResult struct {
	Value    Value
	Trapped  bool
	HasValue bool
}

// ImportedFunction describes a host function offered to Instantiate.
// Host functions are not supported; the type exists so callers can state
// the empty import list explicitly.
type ImportedFunction struct {
	Module string
	Name   string
	Type   FunctionType
}
