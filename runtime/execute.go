package runtime

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

// Result is the outcome of a call that did not trap. HasValue is false
// for functions without a result.
type Result struct {
	Value    Value
	HasValue bool
}

// ExecutionResult is the raw outcome of UnsafeExecute.
type ExecutionResult = capi.ExecutionResult

// CallObserver is notified after every Execute call. err is nil on
// success and carries the error kind otherwise.
type CallObserver interface {
	ObserveCall(name string, elapsed time.Duration, err error)
}

var callObserver atomic.Pointer[CallObserver]

// SetCallObserver installs o as the observer of Execute calls. nil
// removes the current observer.
func SetCallObserver(o CallObserver) {
	if o == nil {
		callObserver.Store(nil)
		return
	}
	callObserver.Store(&o)
}

func observeCall(name string, start time.Time, err error) {
	if o := callObserver.Load(); o != nil {
		(*o).ObserveCall(name, time.Since(start), err)
	}
}

// Execute calls the exported function name with args.
//
// The arguments are checked against the function's signature before the
// engine is called. A trap is returned as a trapped error. Execution
// starts at call depth zero.
func (i *Instance) Execute(ctx context.Context, name string, args ...Value) (res Result, err error) {
	start := time.Now()
	defer func() { observeCall(name, start, err) }()

	h, err := i.handle(errors.PhaseExecute)
	if err != nil {
		return Result{}, err
	}

	idx, ok := findFunction(h, name)
	if !ok {
		return Result{}, errors.FunctionNotFound(name)
	}
	sig := signature(functionSignature(h, idx))
	if err := validateArguments(name, args, sig.Params); err != nil {
		return Result{}, err
	}

	out := capi.Execute(ctx, h, idx, encodeArguments(args), 0)
	if out.Trapped {
		Logger().Debug("execution trapped", zap.String("func", name))
		return Result{}, errors.Trapped(name)
	}
	if out.HasValue != sig.HasResult {
		Logger().Error("engine result disagrees with signature",
			zap.String("func", name), zap.Stringer("signature", sig), zap.Bool("has_value", out.HasValue))
		panic(fmt.Sprintf("wasmguard: %s with signature %s returned has_value=%t", name, sig, out.HasValue))
	}
	if !out.HasValue {
		return Result{}, nil
	}
	return Result{Value: decode(out.Value, sig.Result), HasValue: true}, nil
}

// UnsafeExecute calls function idx, exported or not, with raw arguments
// at call depth depth. Nothing is checked: idx must be a valid function
// index, args must match its signature and depth must be below
// capi.CallStackLimit. It exists for callers re-entering execution that
// track depth themselves. A released instance reports a trap.
func (i *Instance) UnsafeExecute(ctx context.Context, idx uint32, args []capi.Value, depth int) ExecutionResult {
	h, err := i.handle(errors.PhaseExecute)
	if err != nil {
		return ExecutionResult{Trapped: true}
	}
	return capi.Execute(ctx, h, idx, args, depth)
}
