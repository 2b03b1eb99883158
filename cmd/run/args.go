package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-guard/errors"
	"github.com/wippyai/wasm-guard/runtime"
)

// parseArgs converts command line arguments to values of the given
// parameter types.
func parseArgs(name string, params []runtime.ValueType, args []string) ([]runtime.Value, error) {
	if len(args) != len(params) {
		return nil, errors.ArgumentCountMismatch(name, len(params), len(args))
	}
	values := make([]runtime.Value, len(args))
	for i, s := range args {
		v, err := parseValue(params[i], s)
		if err != nil {
			return nil, errors.New(errors.PhaseExecute, errors.KindInvalidInput).
				Func(name).
				Expected(params[i].String()).
				Actual(strconv.Quote(s)).
				Detail("argument %d", i).
				Cause(err).
				Build()
		}
		values[i] = v
	}
	return values, nil
}

// parseValue parses s as t. Integers may be written signed or unsigned
// in any base strconv accepts with base 0.
func parseValue(t runtime.ValueType, s string) (runtime.Value, error) {
	s = strings.TrimSpace(s)
	switch t {
	case runtime.TypeI32:
		if v, err := strconv.ParseInt(s, 0, 32); err == nil {
			return runtime.I32(int32(v)), nil
		}
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.U32(uint32(v)), nil
	case runtime.TypeI64:
		if v, err := strconv.ParseInt(s, 0, 64); err == nil {
			return runtime.I64(v), nil
		}
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.U64(v), nil
	case runtime.TypeF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.F32(float32(v)), nil
	case runtime.TypeF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.F64(v), nil
	default:
		return runtime.Value{}, fmt.Errorf("unsupported type %s", t)
	}
}

// parseRange parses "offset:length".
func parseRange(s string) (uint32, uint64, error) {
	off, length, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, errors.InvalidInput(errors.PhaseMemory, fmt.Sprintf("memory range %q is not offset:length", s))
	}
	offset, err := strconv.ParseUint(off, 0, 32)
	if err != nil {
		return 0, 0, errors.Wrap(errors.PhaseMemory, errors.KindInvalidInput, err, "memory range offset")
	}
	n, err := strconv.ParseUint(length, 0, 64)
	if err != nil {
		return 0, 0, errors.Wrap(errors.PhaseMemory, errors.KindInvalidInput, err, "memory range length")
	}
	return uint32(offset), n, nil
}
