package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
	"github.com/wippyai/wasm-guard/runtime"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.wasm>...",
		Short: "Check that modules are well-formed and valid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				data, err := readModule(path)
				if err == nil {
					err = runtime.Validate(data)
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d modules failed validation", failed, len(args))
			}
			return nil
		},
	}
}

func newInspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.wasm>",
		Short: "List a module's types, imports, exports and globals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readModule(args[0])
			if err != nil {
				return err
			}
			mod, err := runtime.Parse(data)
			if err != nil {
				return err
			}
			defer mod.Close()
			return printModule(cmd.OutOrStdout(), args[0], mod)
		},
	}
}

func printModule(w io.Writer, name string, mod *runtime.Module) error {
	types, err := mod.Types()
	if err != nil {
		return err
	}
	imports, err := mod.Imports()
	if err != nil {
		return err
	}
	exports, err := mod.Exports()
	if err != nil {
		return err
	}
	globals, err := mod.Globals()
	if err != nil {
		return err
	}
	hasMemory, err := mod.HasMemory()
	if err != nil {
		return err
	}
	hasTable, err := mod.HasTable()
	if err != nil {
		return err
	}
	start, hasStart, err := mod.StartFunction()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Module: %s\n", name)
	fmt.Fprintf(w, "Memory: %t\n", hasMemory)
	fmt.Fprintf(w, "Table: %t\n", hasTable)
	if hasStart {
		fmt.Fprintf(w, "Start: func %d\n", start)
	}

	fmt.Fprintf(w, "\nTypes (%d):\n", len(types))
	for i, t := range types {
		fmt.Fprintf(w, "  %d: %s\n", i, t)
	}

	fmt.Fprintf(w, "\nImports (%d):\n", len(imports))
	for _, imp := range imports {
		fmt.Fprintf(w, "  %s.%s %s\n", imp.Module, imp.Name, describeImport(imp))
	}

	fmt.Fprintf(w, "\nExports (%d):\n", len(exports))
	for _, exp := range exports {
		line := fmt.Sprintf("  %s %s %d", exp.Name, exp.Kind, exp.Index)
		if exp.Kind == runtime.ExternFunction {
			if sig, err := mod.Signature(exp.Name); err == nil {
				line += " " + sig.String()
			}
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\nGlobals (%d):\n", len(globals))
	for i, g := range globals {
		mut := ""
		if g.Mutable {
			mut = "mut "
		}
		fmt.Fprintf(w, "  %d: %s%s\n", i, mut, g.Type)
	}
	return nil
}

func describeImport(imp runtime.Import) string {
	switch imp.Kind {
	case runtime.ExternFunction:
		return "function " + imp.Signature.String()
	case runtime.ExternTable, runtime.ExternMemory:
		s := fmt.Sprintf("%s min=%d", imp.Kind, imp.Limits.Min)
		if imp.Limits.HasMax {
			s += fmt.Sprintf(" max=%d", imp.Limits.Max)
		}
		return s
	case runtime.ExternGlobal:
		if imp.Global.Mutable {
			return "global mut " + imp.Global.Type.String()
		}
		return "global " + imp.Global.Type.String()
	default:
		return imp.Kind.String()
	}
}

func newCallCommand(a *app) *cobra.Command {
	var dump string

	cmd := &cobra.Command{
		Use:   "call <file.wasm> <function> [args...]",
		Short: "Instantiate a module and call one exported function",
		Long: `Instantiate a module and call one exported function.

Arguments are parsed according to the function's parameter types. Integers
accept decimal, hex (0x) and negative values; floats accept anything
strconv.ParseFloat does, including inf and nan.

With --depth greater than zero the call goes through the unchecked entry
point starting at that call depth.`,
		Example: `  wasm-guard call math.wasm add 1 2
  wasm-guard call math.wasm scale -- -1.5
  wasm-guard call buf.wasm fill 0 16 --dump 0:16`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inst, err := instantiate(ctx, a.cfg, args[0])
			if err != nil {
				return err
			}
			defer inst.Close()

			name := args[1]
			sig, err := inst.Signature(name)
			if err != nil {
				return err
			}
			values, err := parseArgs(name, sig.Params, args[2:])
			if err != nil {
				return err
			}

			a.log.Debug("calling", zap.String("func", name), zap.Stringer("signature", sig))
			res, err := call(ctx, inst, name, sig, values, a.cfg.Engine.CallDepth)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatResult(res))

			if dump != "" {
				offset, length, err := parseRange(dump)
				if err != nil {
					return err
				}
				data, err := inst.ReadMemory(offset, length)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), hex.Dump(data))
			}
			return nil
		},
	}

	cmd.Flags().Int("depth", 0, "initial call depth; above zero uses the unchecked entry point")
	cmd.Flags().StringVar(&dump, "dump", "", "hex dump a memory range offset:length after the call")
	return cmd
}

// call runs name through Execute, or through UnsafeExecute at depth when
// depth is positive.
func call(ctx context.Context, inst *runtime.Instance, name string, sig runtime.Signature, args []runtime.Value, depth int) (runtime.Result, error) {
	if depth <= 0 {
		return inst.Execute(ctx, name, args...)
	}
	idx, ok := inst.FindExportedFunctionIndex(name)
	if !ok {
		return runtime.Result{}, errors.FunctionNotFound(name)
	}
	raw := make([]capi.Value, len(args))
	for i, v := range args {
		raw[i] = v.Raw()
	}
	out := inst.UnsafeExecute(ctx, idx, raw, depth)
	if out.Trapped {
		return runtime.Result{}, errors.Trapped(name)
	}
	if !out.HasValue {
		return runtime.Result{}, nil
	}
	return runtime.Result{Value: runtime.FromRaw(out.Value, sig.Result), HasValue: true}, nil
}

func formatResult(res runtime.Result) string {
	if !res.HasValue {
		return "(no result)"
	}
	return res.Value.String()
}

func newInteractiveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive <file.wasm>",
		Short: "Pick and call exported functions in a terminal UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), a.cfg, args[0])
		},
	}
}
