// Package config loads wasm-guard settings from defaults, an optional
// YAML file and WASMGUARD_ environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

const (
	// DefaultConfigPath is read when no path is given. A missing file is
	// not an error.
	DefaultConfigPath = "~/.wasm-guard/config.yaml"

	// EnvPrefix is the prefix of environment overrides. Nested keys are
	// separated by a double underscore, for example
	// WASMGUARD_ENGINE__MEMORY_PAGES_LIMIT.
	EnvPrefix = "WASMGUARD_"
)

// Config holds all wasm-guard settings.
type Config struct {
	Engine  EngineConfig  `koanf:"engine"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// EngineConfig holds engine and instantiation settings.
type EngineConfig struct {
	// Hard memory limit applied to every instance, in 64 KiB pages.
	MemoryPagesLimit uint32 `koanf:"memory_pages_limit" validate:"min=1,max=65536"`

	// Initial call depth for calls made through the unchecked entry point.
	CallDepth int `koanf:"call_depth" validate:"min=0,max=2047"`

	// Upper bound on live module and instance handles; 0 is unbounded.
	MaxHandles int `koanf:"max_handles" validate:"min=0"`

	// Directory of the compilation cache; empty keeps it in memory.
	CacheDir string `koanf:"cache_dir"`
}

// LogConfig selects the logger built by NewLogger.
type LogConfig struct {
	Level       string `koanf:"level" validate:"oneof=debug info warn error"`
	Development bool   `koanf:"development"`
}

// MetricsConfig toggles metrics collection.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MemoryPagesLimit: capi.MemoryPagesLimitDefault,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads the configuration. An empty path reads DefaultConfigPath if
// it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(newStructProvider(DefaultConfig()), nil); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load defaults")
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	path = expandHome(path)

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load config file "+path)
		}
	} else if explicit {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "config file not readable")
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load environment")
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			Result:           &cfg,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		},
	}); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "invalid config")
	}
	return nil
}

// EngineOptions returns the engine settings in the form capi.Configure takes.
func (c *Config) EngineOptions() capi.Config {
	return capi.Config{
		CompilationCacheDir: expandHome(c.Engine.CacheDir),
		MaxHandles:          c.Engine.MaxHandles,
	}
}

// NewLogger builds a zap logger for the configured level.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// envKey maps WASMGUARD_ENGINE__CACHE_DIR to engine.cache_dir.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// structProvider feeds a struct to koanf as its flattened koanf-tagged map.
type structProvider struct {
	cfg any
}

func newStructProvider(cfg any) *structProvider {
	return &structProvider{cfg: cfg}
}

// Read implements koanf.Provider.
func (s *structProvider) Read() (map[string]any, error) {
	var out map[string]any
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "koanf",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(s.cfg); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadBytes implements koanf.Provider.
func (s *structProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not supported for struct provider")
}
