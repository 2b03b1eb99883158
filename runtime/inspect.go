package runtime

import (
	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

// ExternKind is the kind of an import or export.
type ExternKind = capi.ExternalKind

const (
	ExternFunction = capi.ExternalKindFunction
	ExternTable    = capi.ExternalKindTable
	ExternMemory   = capi.ExternalKindMemory
	ExternGlobal   = capi.ExternalKindGlobal
)

// Limits are table or memory limits in elements or pages.
type Limits = capi.Limits

// GlobalType is the type of a global.
type GlobalType struct {
	Type    ValueType
	Mutable bool
}

// Import describes an import. Signature is set for functions, Limits for
// tables and memories, Global for globals.
type Import struct {
	Module    string
	Name      string
	Signature Signature
	Limits    Limits
	Global    GlobalType
	Kind      ExternKind
}

// Export describes an export. Index is in the index space of Kind.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

func importsOf(h capi.ModuleHandle) []Import {
	n := capi.GetImportCount(h)
	imports := make([]Import, 0, n)
	for i := uint32(0); i < n; i++ {
		d := capi.GetImportDescription(h, i)
		imp := Import{Module: d.Module, Name: d.Name, Kind: d.Kind}
		switch d.Kind {
		case capi.ExternalKindFunction:
			imp.Signature = signature(d.Function)
		case capi.ExternalKindTable:
			imp.Limits = d.Table
		case capi.ExternalKindMemory:
			imp.Limits = d.Memory
		case capi.ExternalKindGlobal:
			imp.Global = GlobalType{Type: ValueType(d.Global.Type), Mutable: d.Global.Mutable}
		}
		imports = append(imports, imp)
	}
	return imports
}

func missingImports(h capi.ModuleHandle) []errors.MissingImport {
	var missing []errors.MissingImport
	for _, imp := range importsOf(h) {
		missing = append(missing, errors.MissingImport{Module: imp.Module, Name: imp.Name, Kind: imp.Kind.String()})
	}
	return missing
}

// Imports lists the module's imports in declaration order.
func (m *Module) Imports() ([]Import, error) {
	var imports []Import
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		imports = importsOf(h)
		return nil
	})
	return imports, err
}

// Exports lists the module's exports in declaration order.
func (m *Module) Exports() ([]Export, error) {
	var exports []Export
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		exports = exportsOf(h)
		return nil
	})
	return exports, err
}

func exportsOf(h capi.ModuleHandle) []Export {
	n := capi.GetExportCount(h)
	exports := make([]Export, 0, n)
	for i := uint32(0); i < n; i++ {
		d := capi.GetExportDescription(h, i)
		exports = append(exports, Export{Name: d.Name, Kind: d.Kind, Index: d.Index})
	}
	return exports
}

// Types lists the entries of the module's type section.
func (m *Module) Types() ([]Signature, error) {
	var types []Signature
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		n := capi.GetTypeCount(h)
		types = make([]Signature, 0, n)
		for i := uint32(0); i < n; i++ {
			types = append(types, signature(capi.GetType(h, i)))
		}
		return nil
	})
	return types, err
}

// Globals lists the types of the global index space, imports first.
func (m *Module) Globals() ([]GlobalType, error) {
	var globals []GlobalType
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		n := capi.GetGlobalCount(h)
		globals = make([]GlobalType, 0, n)
		for i := uint32(0); i < n; i++ {
			gt := capi.GetGlobalType(h, i)
			globals = append(globals, GlobalType{Type: ValueType(gt.Type), Mutable: gt.Mutable})
		}
		return nil
	})
	return globals, err
}

// HasMemory reports whether the module defines or imports a memory.
func (m *Module) HasMemory() (bool, error) {
	var ok bool
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		ok = capi.ModuleHasMemory(h)
		return nil
	})
	return ok, err
}

// HasTable reports whether the module defines or imports a table.
func (m *Module) HasTable() (bool, error) {
	var ok bool
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		ok = capi.ModuleHasTable(h)
		return nil
	})
	return ok, err
}

// StartFunction returns the index of the module's start function.
func (m *Module) StartFunction() (uint32, bool, error) {
	var idx uint32
	var ok bool
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		ok = capi.ModuleHasStartFunction(h, &idx)
		return nil
	})
	return idx, ok, err
}

// Signature returns the signature of the exported function name.
func (m *Module) Signature(name string) (Signature, error) {
	var sig Signature
	err := m.use(errors.PhaseModule, func(h capi.ModuleHandle) error {
		var idx uint32
		if !capi.FindExportedFunctionIndex(h, name, &idx) {
			return errors.FunctionNotFound(name)
		}
		sig = signature(capi.GetFunctionType(h, idx))
		return nil
	})
	return sig, err
}
