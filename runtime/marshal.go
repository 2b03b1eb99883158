package runtime

import (
	"fmt"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

// encode writes the member of the engine value that matches v's type.
func encode(v Value) capi.Value {
	switch v.typ {
	case TypeI32:
		return capi.ValueI32(v.U32())
	case TypeI64:
		return capi.ValueI64(v.U64())
	case TypeF32:
		return capi.ValueF32(v.F32())
	case TypeF64:
		return capi.ValueF64(v.F64())
	default:
		panic(fmt.Sprintf("wasmguard: cannot encode value of type %s", v.typ))
	}
}

// decode reads the member of raw selected by t.
func decode(raw capi.Value, t ValueType) Value {
	switch t {
	case TypeI32:
		return U32(raw.I32())
	case TypeI64:
		return U64(raw.I64())
	case TypeF32:
		return F32(raw.F32())
	case TypeF64:
		return F64(raw.F64())
	default:
		panic(fmt.Sprintf("wasmguard: cannot decode value of type %s", t))
	}
}

// Raw returns v as an untagged engine value for UnsafeExecute.
func (v Value) Raw() capi.Value { return encode(v) }

// FromRaw tags an engine value returned by UnsafeExecute with the
// result type of the called function.
func FromRaw(raw capi.Value, t ValueType) Value { return decode(raw, t) }

// validateArguments checks args against params: count first, then the
// type at each position in order.
func validateArguments(name string, args []Value, params []ValueType) error {
	if len(args) != len(params) {
		return errors.ArgumentCountMismatch(name, len(params), len(args))
	}
	for i, arg := range args {
		if arg.typ != params[i] {
			return errors.ArgumentTypeMismatch(name, i, params[i].String(), arg.typ.String())
		}
	}
	return nil
}

func encodeArguments(args []Value) []capi.Value {
	raw := make([]capi.Value, len(args))
	for i, arg := range args {
		raw[i] = encode(arg)
	}
	return raw
}
