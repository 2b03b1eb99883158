package runtime

import (
	"fmt"
	"math"

	"github.com/wippyai/wasm-guard/capi"
)

// ValueType is a WebAssembly number type.
type ValueType byte

const (
	TypeI32 = ValueType(capi.ValueTypeI32)
	TypeI64 = ValueType(capi.ValueTypeI64)
	TypeF32 = ValueType(capi.ValueTypeF32)
	TypeF64 = ValueType(capi.ValueTypeF64)
)

func (t ValueType) String() string {
	switch t {
	case TypeI32, TypeI64, TypeF32, TypeF64:
		return capi.ValueType(t).String()
	default:
		return "invalid"
	}
}

// Value is a tagged WebAssembly value. The zero Value has no type and is
// rejected as an argument.
type Value struct {
	bits uint64
	typ  ValueType
}

// U32 returns an i32 value.
func U32(v uint32) Value { return Value{bits: uint64(v), typ: TypeI32} }

// I32 returns an i32 value from its signed interpretation.
func I32(v int32) Value { return U32(uint32(v)) }

// U64 returns an i64 value.
func U64(v uint64) Value { return Value{bits: v, typ: TypeI64} }

// I64 returns an i64 value from its signed interpretation.
func I64(v int64) Value { return U64(uint64(v)) }

// F32 returns an f32 value. NaN payloads are preserved.
func F32(v float32) Value { return Value{bits: uint64(math.Float32bits(v)), typ: TypeF32} }

// F64 returns an f64 value. NaN payloads are preserved.
func F64(v float64) Value { return Value{bits: math.Float64bits(v), typ: TypeF64} }

// Type returns the value's tag.
func (v Value) Type() ValueType { return v.typ }

func (v Value) must(t ValueType) {
	if v.typ != t {
		panic(fmt.Sprintf("wasmguard: %s value read as %s", v.typ, t))
	}
}

// U32 returns an i32 value as unsigned. It panics for other types.
func (v Value) U32() uint32 {
	v.must(TypeI32)
	return uint32(v.bits)
}

// I32 returns an i32 value as signed. It panics for other types.
func (v Value) I32() int32 { return int32(v.U32()) }

// U64 returns an i64 value as unsigned. It panics for other types.
func (v Value) U64() uint64 {
	v.must(TypeI64)
	return v.bits
}

// I64 returns an i64 value as signed. It panics for other types.
func (v Value) I64() int64 { return int64(v.U64()) }

// F32 returns an f32 value. It panics for other types.
func (v Value) F32() float32 {
	v.must(TypeF32)
	return math.Float32frombits(uint32(v.bits))
}

// F64 returns an f64 value. It panics for other types.
func (v Value) F64() float64 {
	v.must(TypeF64)
	return math.Float64frombits(v.bits)
}

func (v Value) String() string {
	switch v.typ {
	case TypeI32:
		return fmt.Sprintf("i32:%d", v.U32())
	case TypeI64:
		return fmt.Sprintf("i64:%d", v.U64())
	case TypeF32:
		return fmt.Sprintf("f32:%g", v.F32())
	case TypeF64:
		return fmt.Sprintf("f64:%g", v.F64())
	default:
		return "invalid"
	}
}

// Signature is a function signature. Functions return at most one value.
type Signature struct {
	Params    []ValueType
	Result    ValueType
	HasResult bool
}

func signature(ft capi.FunctionType) Signature {
	sig := Signature{}
	if len(ft.Inputs) > 0 {
		sig.Params = make([]ValueType, len(ft.Inputs))
		for i, in := range ft.Inputs {
			sig.Params[i] = ValueType(in)
		}
	}
	if ft.Output != capi.ValueTypeVoid {
		sig.Result = ValueType(ft.Output)
		sig.HasResult = true
	}
	return sig
}

func (s Signature) String() string {
	b := []byte{'('}
	for i, p := range s.Params {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, p.String()...)
	}
	b = append(b, ") -> "...)
	if s.HasResult {
		b = append(b, s.Result.String()...)
	} else {
		b = append(b, "()"...)
	}
	return string(b)
}
