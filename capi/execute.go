package capi

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/resource"
)

var trapped = ExecutionResult{Trapped: true}

// Execute calls function funcIdx of i, imported or not, exported or not.
// depth is the call depth of the caller; execution traps once it reaches
// CallStackLimit. Arguments must match the function's signature in
// number and type; nothing is checked beyond what keeps the engine intact.
func Execute(ctx context.Context, i InstanceHandle, funcIdx uint32, args []Value, depth int) ExecutionResult {
	e := defaultEngine()
	inst, ok := e.instances.Get(resource.Handle(i))
	if !ok {
		Logger().Error("execute on invalid instance handle", zap.Uint64("handle", uint64(i)))
		return trapped
	}
	e.executions.Add(1)

	if depth >= CallStackLimit {
		e.traps.Add(1)
		return trapped
	}
	if int(funcIdx) >= len(inst.funcs) || inst.funcs[funcIdx] == nil {
		Logger().Error("execute with invalid function index", zap.Uint32("func", funcIdx))
		e.traps.Add(1)
		return trapped
	}

	params := make([]uint64, len(args))
	for j, a := range args {
		params[j] = uint64(a)
	}
	results, err := inst.funcs[funcIdx].Call(ctx, params...)
	if err != nil {
		Logger().Debug("execution trapped", zap.Uint32("func", funcIdx), zap.Error(err))
		e.traps.Add(1)
		return trapped
	}
	if len(results) == 0 {
		return ExecutionResult{}
	}
	return ExecutionResult{Value: Value(results[0]), HasValue: true}
}
