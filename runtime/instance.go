package runtime

import (
	goruntime "runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

type instanceResource struct {
	mu       sync.Mutex
	handle   capi.InstanceHandle
	released bool
}

func (r *instanceResource) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	capi.FreeInstance(r.handle)
	r.released = true
	Logger().Debug("instance released", zap.Uint64("handle", uint64(r.handle)))
}

// Instance is an instantiated module with its memory, globals and table.
//
// Close releases it; after that every method returns a released error.
// An Instance must not be used from more than one goroutine at a time.
type Instance struct {
	res *instanceResource
}

func newInstance(h capi.InstanceHandle) *Instance {
	i := &Instance{res: &instanceResource{handle: h}}
	goruntime.AddCleanup(i, (*instanceResource).release, i.res)
	return i
}

// handle returns the engine handle of a live instance.
func (i *Instance) handle(phase errors.Phase) (capi.InstanceHandle, error) {
	i.res.mu.Lock()
	defer i.res.mu.Unlock()
	if i.res.released {
		return 0, errors.Released(phase, "instance")
	}
	return i.res.handle, nil
}

// Close releases the instance. Further calls do nothing.
func (i *Instance) Close() error {
	i.res.release()
	return nil
}

// FindExportedFunctionIndex returns the index of the function exported
// as name. Exports of other kinds with the same name do not match.
func (i *Instance) FindExportedFunctionIndex(name string) (uint32, bool) {
	h, err := i.handle(errors.PhaseExecute)
	if err != nil {
		return 0, false
	}
	return findFunction(h, name)
}

func findFunction(h capi.InstanceHandle, name string) (uint32, bool) {
	// The instance module is borrowed and never freed here.
	var idx uint32
	ok := capi.FindExportedFunctionIndex(capi.GetInstanceModule(h), name, &idx)
	return idx, ok
}

// functionSignature is only valid for an index returned by findFunction.
func functionSignature(h capi.InstanceHandle, idx uint32) capi.FunctionType {
	return capi.GetFunctionType(capi.GetInstanceModule(h), idx)
}

// Signature returns the signature of the exported function name.
func (i *Instance) Signature(name string) (Signature, error) {
	h, err := i.handle(errors.PhaseExecute)
	if err != nil {
		return Signature{}, err
	}
	idx, ok := findFunction(h, name)
	if !ok {
		return Signature{}, errors.FunctionNotFound(name)
	}
	return signature(functionSignature(h, idx)), nil
}

// Exports lists the exports of the instantiated module.
func (i *Instance) Exports() ([]Export, error) {
	h, err := i.handle(errors.PhaseExecute)
	if err != nil {
		return nil, err
	}
	return exportsOf(capi.GetInstanceModule(h)), nil
}
