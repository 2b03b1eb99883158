package runtime

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

// translateError decodes an engine error record. It returns nil for
// Success and exactly one *errors.Error otherwise. The message is copied
// out of the record.
func translateError(phase errors.Phase, rec *capi.Error) error {
	if rec.Code == capi.Success {
		return nil
	}
	msg := rec.MessageString()
	switch rec.Code {
	case capi.ErrorMalformedModule:
		return errors.Engine(phase, errors.KindMalformedModule, msg)
	case capi.ErrorInvalidModule:
		return errors.Engine(phase, errors.KindInvalidModule, msg)
	case capi.ErrorInstantiationFailed:
		return errors.Engine(phase, errors.KindInstantiationFailed, msg)
	case capi.ErrorMemoryAllocationFailed:
		return errors.Engine(phase, errors.KindMemoryAllocationFailed, msg)
	case capi.ErrorOther:
		return errors.Engine(phase, errors.KindOther, msg)
	default:
		Logger().Warn("unknown engine error code",
			zap.Uint32("code", uint32(rec.Code)), zap.String("message", msg))
		return errors.UnknownCode(phase, uint32(rec.Code), msg)
	}
}

// failed translates the record of a call whose sentinel reported
// failure. A record that claims success means the engine contract is
// broken, which is fatal.
func failed(phase errors.Phase, op string, rec *capi.Error) error {
	if err := translateError(phase, rec); err != nil {
		return err
	}
	Logger().Error("engine reported failure with a success record", zap.String("op", op))
	panic(fmt.Sprintf("wasmguard: %s failed but the error record reports success", op))
}

// succeeded checks the record of a call whose sentinel reported success.
func succeeded(op string, rec *capi.Error) {
	if rec.Code == capi.Success {
		return
	}
	Logger().Error("engine reported success with a failure record",
		zap.String("op", op), zap.Stringer("code", rec.Code), zap.String("message", rec.MessageString()))
	panic(fmt.Sprintf("wasmguard: %s succeeded but the error record reports %s", op, rec.Code))
}
