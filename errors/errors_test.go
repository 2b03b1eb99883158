package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseExecute,
				Kind:     KindArgumentTypeMismatch,
				Func:     "add",
				Expected: "i32",
				Actual:   "f64",
				Detail:   "argument 1",
			},
			contains: []string{"[execute]", "argument_type_mismatch", "at add", "expected i32, got f64", " - argument 1"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMemory,
				Kind:  KindNoMemoryAvailable,
			},
			contains: []string{"[memory]", "no_memory_available"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInstantiate,
				Kind:   KindInstantiationFailed,
				Detail: "module requires 1 imported functions, 0 provided",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[instantiate]", "instantiation_failed", "0 provided", "caused by", "underlying error"},
		},
		{
			name: "only actual set",
			err: &Error{
				Phase:  PhaseExecute,
				Kind:   KindArgumentTypeMismatch,
				Actual: "i64",
			},
			contains: []string{"expected none, got i64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseParse,
		Kind:  KindMalformedModule,
		Cause: cause,
	}

	assert.ErrorIs(t, err.Unwrap(), cause)
	assert.ErrorIs(t, errors.Unwrap(err), cause)
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseExecute,
		Kind:  KindTrapped,
		Func:  "boom",
	}

	assert.True(t, err.Is(&Error{Phase: PhaseExecute, Kind: KindTrapped}), "same phase and kind")
	assert.True(t, err.Is(&Error{Kind: KindTrapped}), "target without phase matches any phase")
	assert.False(t, err.Is(&Error{Phase: PhaseInstantiate, Kind: KindTrapped}), "different phase")
	assert.False(t, err.Is(&Error{Phase: PhaseExecute, Kind: KindFunctionNotFound}), "different kind")
	assert.False(t, err.Is(errors.New("trapped")), "foreign error type")

	wrapped := fmt.Errorf("call failed: %w", err)
	assert.ErrorIs(t, wrapped, ErrTrapped)
	assert.NotErrorIs(t, wrapped, ErrFunctionNotFound)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNoMemoryAvailable, KindOf(NoMemoryAvailable()))
	assert.Equal(t, KindTrapped, KindOf(fmt.Errorf("outer: %w", Trapped("f"))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))

	assert.True(t, IsKind(FunctionNotFound("x"), KindFunctionNotFound))
	assert.False(t, IsKind(FunctionNotFound("x"), KindTrapped))
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseExecute, KindArgumentTypeMismatch).
		Func("mul").
		Expected("i64").
		Actual("f32").
		Value(2).
		Cause(cause).
		Detail("argument %d of %d", 2, 3).
		Build()

	assert.Equal(t, PhaseExecute, err.Phase)
	assert.Equal(t, KindArgumentTypeMismatch, err.Kind)
	assert.Equal(t, "mul", err.Func)
	assert.Equal(t, "i64", err.Expected)
	assert.Equal(t, "f32", err.Actual)
	assert.Equal(t, 2, err.Value)
	assert.ErrorIs(t, err.Cause, cause)
	assert.Equal(t, "argument 2 of 3", err.Detail)

	plain := New(PhaseMemory, KindInvalidMemoryOffsetOrSize).Detail("offset past end").Build()
	assert.Equal(t, "offset past end", plain.Detail)
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Engine", func(t *testing.T) {
		err := Engine(PhaseParse, KindMalformedModule, "invalid wasm magic number")
		assert.Equal(t, KindMalformedModule, err.Kind)
		assert.Equal(t, "invalid wasm magic number", err.Detail)
	})

	t.Run("UnknownCode", func(t *testing.T) {
		err := UnknownCode(PhaseParse, 42, "future failure")
		assert.Equal(t, KindUnknown, err.Kind)
		assert.Equal(t, uint32(42), err.Value)
		assert.Contains(t, err.Detail, "42")
		assert.Contains(t, err.Detail, "future failure")
	})

	t.Run("ArgumentCountMismatch", func(t *testing.T) {
		err := ArgumentCountMismatch("f", 2, 3)
		assert.Equal(t, KindArgumentCountMismatch, err.Kind)
		assert.Equal(t, "2 arguments", err.Expected)
		assert.Equal(t, "3 arguments", err.Actual)
	})

	t.Run("ArgumentTypeMismatch", func(t *testing.T) {
		err := ArgumentTypeMismatch("f", 1, "i32", "f64")
		assert.Equal(t, KindArgumentTypeMismatch, err.Kind)
		assert.Equal(t, 1, err.Value)
	})

	t.Run("InvalidMemoryOffsetOrSize", func(t *testing.T) {
		err := InvalidMemoryOffsetOrSize(65536, 1, 65536)
		assert.Equal(t, KindInvalidMemoryOffsetOrSize, err.Kind)
		assert.Contains(t, err.Detail, "65536 bytes")
	})

	t.Run("Released", func(t *testing.T) {
		err := Released(PhaseModule, "module")
		assert.Equal(t, KindReleased, err.Kind)
		assert.ErrorIs(t, err, ErrReleased)
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("disk")
		err := Wrap(PhaseLoad, KindInvalidInput, cause, "read module")
		assert.ErrorIs(t, err, cause)
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError(MissingImport{Module: "mod", Name: "m", Kind: "memory"})
		require.Len(t, err.Imports, 1)
		assert.Contains(t, err.Error(), "missing 1 import(s)")
		assert.Contains(t, err.Error(), "m (memory)")
	})

	t.Run("grouped by module", func(t *testing.T) {
		err := NewMissingImportsError(
			MissingImport{Module: "env", Name: "foo", Kind: "function"},
			MissingImport{Module: "wasi", Name: "fd_write", Kind: "function"},
			MissingImport{Module: "env", Name: "bar", Kind: "function"},
		)
		msg := err.Error()
		assert.Contains(t, msg, "missing 3 import(s)")
		assert.Contains(t, msg, "env:")
		assert.Contains(t, msg, "wasi:")
		assert.Less(t, indexOf(msg, "bar"), indexOf(msg, "wasi:"), "env imports are grouped before wasi")
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError()
		assert.Contains(t, err.Error(), "no imports specified")
	})

	t.Run("errors.Is", func(t *testing.T) {
		inner := NewMissingImportsError(MissingImport{Module: "m", Name: "f"})
		err := Wrap(PhaseInstantiate, KindInstantiationFailed, inner, "instantiate")
		assert.ErrorIs(t, err, &MissingImportsError{})
		assert.ErrorIs(t, err, ErrInstantiationFailed)
	})
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
