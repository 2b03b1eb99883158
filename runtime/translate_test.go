package runtime

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

func record(code capi.ErrorCode, msg string) *capi.Error {
	rec := &capi.Error{Code: code}
	copy(rec.Message[:], msg)
	return rec
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		code capi.ErrorCode
		kind errors.Kind
	}{
		{capi.ErrorMalformedModule, errors.KindMalformedModule},
		{capi.ErrorInvalidModule, errors.KindInvalidModule},
		{capi.ErrorInstantiationFailed, errors.KindInstantiationFailed},
		{capi.ErrorMemoryAllocationFailed, errors.KindMemoryAllocationFailed},
		{capi.ErrorOther, errors.KindOther},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := translateError(errors.PhaseParse, record(tt.code, "details here"))
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, tt.kind))

			var e *errors.Error
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, "details here", e.Detail)
			assert.Equal(t, errors.PhaseParse, e.Phase)
		})
	}
}

func TestTranslateError_Success(t *testing.T) {
	assert.NoError(t, translateError(errors.PhaseParse, record(capi.Success, "")))
}

func TestTranslateError_UnknownCode(t *testing.T) {
	err := translateError(errors.PhaseInstantiate, record(capi.ErrorCode(77), "future failure"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUnknown))
	assert.Contains(t, err.Error(), "77")
	assert.Contains(t, err.Error(), "future failure")
}

func TestTranslateError_MessageIsCopied(t *testing.T) {
	rec := record(capi.ErrorOther, "first")
	err := translateError(errors.PhaseModule, rec)
	copy(rec.Message[:], "XXXXX")
	assert.Contains(t, err.Error(), "first")
}

func TestSentinelDisagreementIsFatal(t *testing.T) {
	assert.Panics(t, func() {
		_ = failed(errors.PhaseParse, "parse", record(capi.Success, ""))
	}, "failure sentinel with a success record")
	assert.Panics(t, func() {
		succeeded("parse", record(capi.ErrorOther, "oops"))
	}, "success sentinel with a failure record")

	assert.NotPanics(t, func() {
		succeeded("parse", record(capi.Success, ""))
		_ = failed(errors.PhaseParse, "parse", record(capi.ErrorOther, "oops"))
	})
}
