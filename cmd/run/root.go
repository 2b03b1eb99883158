package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/config"
	"github.com/wippyai/wasm-guard/metrics"
	"github.com/wippyai/wasm-guard/runtime"
)

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "wasm-guard",
		Short: "Validate, inspect and run WebAssembly modules",
		Long: `wasm-guard runs WebAssembly 1.0 modules through a memory-safe engine wrapper.

Modules must not import anything: host functions, imported memories, tables and
globals are not supported. Every instance runs under a hard memory limit.`,
		Example: `  # Check that modules are valid
  wasm-guard validate a.wasm b.wasm

  # List types, imports and exports
  wasm-guard inspect math.wasm

  # Call an exported function
  wasm-guard call math.wasm add 1 2

  # Call with a smaller memory limit and print the metrics afterwards
  wasm-guard call --memory-pages-limit 16 --metrics math.wasm fib 20`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd.Flags())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to the configuration file (default "+config.DefaultConfigPath+")")
	flags.Uint32("memory-pages-limit", capi.MemoryPagesLimitDefault, "hard memory limit per instance in 64 KiB pages")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("metrics", false, "print metrics to stderr when the command finishes")

	root.AddCommand(
		newValidateCommand(a),
		newInspectCommand(a),
		newCallCommand(a),
		newInteractiveCommand(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and wires the
// logger, the engine and metrics.
func (a *app) setup(flags *pflag.FlagSet) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, flags); err != nil {
		return err
	}
	a.cfg = cfg

	log, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	a.log = log
	capi.SetLogger(log.Named("capi"))
	runtime.SetLogger(log.Named("runtime"))

	if err := capi.Configure(cfg.EngineOptions()); err != nil {
		log.Warn("engine settings not applied", zap.Error(err))
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		a.metrics.Start()
	}
	return nil
}

func (a *app) teardown(cmd *cobra.Command) error {
	if a.metrics != nil {
		a.metrics.Stop()
		if err := a.metrics.WriteText(cmd.ErrOrStderr()); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return nil
}

// applyFlags copies the flags set on the command line over cfg and
// validates the result.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "memory-pages-limit":
			cfg.Engine.MemoryPagesLimit, err = flags.GetUint32(f.Name)
		case "log-level":
			cfg.Log.Level, err = flags.GetString(f.Name)
		case "metrics":
			cfg.Metrics.Enabled, err = flags.GetBool(f.Name)
		case "depth":
			cfg.Engine.CallDepth, err = flags.GetInt(f.Name)
		}
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func readModule(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	return data, nil
}

func instantiate(ctx context.Context, cfg *config.Config, path string) (*runtime.Instance, error) {
	data, err := readModule(path)
	if err != nil {
		return nil, err
	}
	mod, err := runtime.Parse(data)
	if err != nil {
		return nil, err
	}
	return mod.Instantiate(ctx, runtime.WithMemoryPagesLimit(cfg.Engine.MemoryPagesLimit))
}
