package runtime

import (
	"context"
	goruntime "runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

type moduleState uint8

const (
	moduleOwned moduleState = iota
	moduleConsumed
	moduleReleased
)

// moduleResource is the engine module owned by a Module. It is separate
// from Module so the GC cleanup can release it.
type moduleResource struct {
	mu     sync.Mutex
	handle capi.ModuleHandle
	state  moduleState
}

func (r *moduleResource) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != moduleOwned {
		return
	}
	capi.FreeModule(r.handle)
	r.state = moduleReleased
	Logger().Debug("module released", zap.Uint64("handle", uint64(r.handle)))
}

// Module is a parsed and validated module that has not been instantiated.
//
// A Module is owned until it is instantiated, which consumes it whether
// or not instantiation succeeds, or until Close releases it. After that
// every method returns a released error. It is safe for concurrent use.
type Module struct {
	res *moduleResource
}

func newModule(h capi.ModuleHandle) *Module {
	m := &Module{res: &moduleResource{handle: h}}
	goruntime.AddCleanup(m, (*moduleResource).release, m.res)
	return m
}

// Validate reports whether data is a valid module without keeping it.
func Validate(data []byte) error {
	var rec capi.Error
	if !capi.Validate(data, &rec) {
		return failed(errors.PhaseValidate, "validate", &rec)
	}
	succeeded("validate", &rec)
	return nil
}

// Parse parses and validates data.
func Parse(data []byte) (*Module, error) {
	var rec capi.Error
	h := capi.Parse(data, &rec)
	if h == 0 {
		return nil, failed(errors.PhaseParse, "parse", &rec)
	}
	succeeded("parse", &rec)
	return newModule(h), nil
}

// use runs fn with the module handle while the module is owned.
func (m *Module) use(phase errors.Phase, fn func(capi.ModuleHandle) error) error {
	m.res.mu.Lock()
	defer m.res.mu.Unlock()
	if m.res.state != moduleOwned {
		return errors.Released(phase, "module")
	}
	return fn(m.res.handle)
}

// Clone returns an independent copy of the module.
func (m *Module) Clone() (*Module, error) {
	var clone *Module
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		c := capi.CloneModule(h)
		if c == 0 {
			return errors.Engine(errors.PhaseModule, errors.KindMemoryAllocationFailed, "module clone could not be allocated")
		}
		clone = newModule(c)
		return nil
	})
	return clone, err
}

// InstantiateOption configures Instantiate.
type InstantiateOption func(*instantiateConfig)

type instantiateConfig struct {
	memoryPagesLimit uint32
}

// WithMemoryPagesLimit caps the instance's linear memory at pages pages
// of 64 KiB. The default is capi.MemoryPagesLimitDefault (256 MiB); the
// maximum is capi.MaxMemoryPagesLimit (4 GiB).
func WithMemoryPagesLimit(pages uint32) InstantiateOption {
	return func(c *instantiateConfig) {
		c.memoryPagesLimit = pages
	}
}

// Instantiate creates an instance of the module. It consumes the module
// even when it fails; use Clone first to instantiate more than once.
// Modules with imports always fail, host functions are not supported.
func (m *Module) Instantiate(ctx context.Context, opts ...InstantiateOption) (*Instance, error) {
	cfg := instantiateConfig{memoryPagesLimit: capi.MemoryPagesLimitDefault}
	for _, opt := range opts {
		opt(&cfg)
	}

	m.res.mu.Lock()
	defer m.res.mu.Unlock()
	if m.res.state != moduleOwned {
		return nil, errors.Released(errors.PhaseInstantiate, "module")
	}
	h := m.res.handle
	missing := missingImports(h)

	// The engine takes ownership before reporting the outcome.
	m.res.state = moduleConsumed

	var rec capi.Error
	ih := capi.Instantiate(ctx, h, nil, cfg.memoryPagesLimit, &rec)
	if ih == 0 {
		err := failed(errors.PhaseInstantiate, "instantiate", &rec)
		if e, ok := err.(*errors.Error); ok && len(missing) > 0 {
			e.Cause = errors.NewMissingImportsError(missing...)
		}
		return nil, err
	}
	succeeded("instantiate", &rec)
	Logger().Debug("module instantiated",
		zap.Uint64("module", uint64(h)), zap.Uint64("instance", uint64(ih)))
	return newInstance(ih), nil
}

// Close releases the module if it is still owned. Closing a consumed or
// released module does nothing.
func (m *Module) Close() error {
	m.res.release()
	return nil
}
