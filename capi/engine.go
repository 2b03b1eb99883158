package capi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/resource"
)

// Resource type IDs reported in lifecycle events.
const (
	TypeModule   uint32 = 1
	TypeInstance uint32 = 2
)

// Config holds engine-wide settings.
type Config struct {
	// CompilationCacheDir persists compiled code across processes.
	// Empty keeps the cache in memory.
	CompilationCacheDir string

	// MaxHandles bounds the number of live modules and instances.
	// 0 means unbounded.
	MaxHandles int
}

type engine struct {
	runtime   wazero.Runtime
	cache     wazero.CompilationCache
	table     *resource.Table
	modules   *resource.TypedTable[*module]
	instances *resource.TypedTable[*instance]

	executions atomic.Uint64
	traps      atomic.Uint64
}

var (
	current   *engine
	currentMu sync.Mutex
	engineCfg Config
)

// Configure sets the engine configuration.
// It must be called before any other engine operation.
func Configure(cfg Config) error {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current != nil {
		return fmt.Errorf("engine already started")
	}
	engineCfg = cfg
	return nil
}

func defaultEngine() *engine {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current == nil {
		e, err := newEngine(engineCfg)
		if err != nil {
			// An unusable cache directory must not make the engine unusable.
			Logger().Warn("compilation cache unavailable, using in-memory cache",
				zap.String("dir", engineCfg.CompilationCacheDir), zap.Error(err))
			e, _ = newEngine(Config{MaxHandles: engineCfg.MaxHandles})
		}
		current = e
	}
	return current
}

func newEngine(cfg Config) (*engine, error) {
	cache := wazero.NewCompilationCache()
	if cfg.CompilationCacheDir != "" {
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(cfg.CompilationCacheDir)
		if err != nil {
			return nil, fmt.Errorf("compilation cache: %w", err)
		}
	}

	runtimeCfg := wazero.NewRuntimeConfig().
		WithCoreFeatures(api.CoreFeaturesV1).
		WithCompilationCache(cache)

	table := resource.NewTable(resource.WithCapacity(cfg.MaxHandles))
	return &engine{
		runtime:   wazero.NewRuntimeWithConfig(context.Background(), runtimeCfg),
		cache:     cache,
		table:     table,
		modules:   resource.NewTypedTable[*module](table, TypeModule),
		instances: resource.NewTypedTable[*instance](table, TypeInstance),
	}, nil
}

func (e *engine) close(ctx context.Context) error {
	if err := e.table.Close(); err != nil {
		return err
	}
	if err := e.runtime.Close(ctx); err != nil {
		return err
	}
	return e.cache.Close(ctx)
}

// Shutdown releases every live module and instance and the underlying
// runtime. The next engine call starts a fresh engine. Handles issued
// before Shutdown must not be used afterwards, since the fresh engine
// can issue the same values.
func Shutdown(ctx context.Context) error {
	currentMu.Lock()
	e := current
	current = nil
	currentMu.Unlock()
	if e == nil {
		return nil
	}
	return e.close(ctx)
}

// Stats is a snapshot of engine activity.
type Stats struct {
	Modules    int
	Instances  int
	Executions uint64
	Traps      uint64
}

// GetStats returns a snapshot of live handles and execution counters.
func GetStats() Stats {
	e := defaultEngine()
	return Stats{
		Modules:    e.modules.Len(),
		Instances:  e.instances.Len(),
		Executions: e.executions.Load(),
		Traps:      e.traps.Load(),
	}
}

// Subscribe registers an observer for module and instance lifecycle
// events and returns a function that removes it. Event.TypeID is
// TypeModule or TypeInstance.
func Subscribe(o resource.Observer) (cancel func()) {
	return defaultEngine().table.Subscribe(o)
}
