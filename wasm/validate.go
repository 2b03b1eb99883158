package wasm

import "fmt"

// Validate checks the module-level structure of a decoded module against
// the WebAssembly 1.0 validation rules. Function bodies are validated by
// the compiler, not here.
func (m *Module) Validate() error {
	checks := []func() error{
		m.validateTypes,
		m.validateTypeIndices,
		m.validateTables,
		m.validateMemories,
		m.validateGlobals,
		m.validateExports,
		m.validateStart,
		m.validateElements,
		m.validateData,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// ParseModuleValidate parses a WebAssembly binary and validates it.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) validateTypes() error {
	for i, ft := range m.Types {
		if len(ft.Results) > 1 {
			return fmt.Errorf("type %d: multiple return values are not supported, got %d results", i, len(ft.Results))
		}
	}
	return nil
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(len(m.Types))
	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return fmt.Errorf("function %d references invalid type index %d", i, typeIdx)
		}
	}
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= numTypes {
			return fmt.Errorf("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
	}
	return nil
}

func (m *Module) validateTables() error {
	if n := m.NumImportedTables() + len(m.Tables); n > 1 {
		return fmt.Errorf("multiple tables are not supported, got %d", n)
	}
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindTable {
			if err := validateLimits("imported table", imp.Desc.Table.Limits, 0); err != nil {
				return err
			}
		}
	}
	for _, t := range m.Tables {
		if err := validateLimits("table", t.Limits, 0); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) validateMemories() error {
	if n := m.NumImportedMemories() + len(m.Memories); n > 1 {
		return fmt.Errorf("multiple memories are not supported, got %d", n)
	}
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory {
			if err := validateLimits("imported memory", imp.Desc.Memory.Limits, MemoryMaxPages); err != nil {
				return err
			}
		}
	}
	for _, mem := range m.Memories {
		if err := validateLimits("memory", mem.Limits, MemoryMaxPages); err != nil {
			return err
		}
	}
	return nil
}

// validateLimits checks min <= max and, when bound is non-zero, both against bound.
func validateLimits(what string, l Limits, bound uint32) error {
	if bound != 0 {
		if l.Min > bound {
			return fmt.Errorf("%s: min pages %d exceeds maximum %d", what, l.Min, bound)
		}
		if l.Max != nil && *l.Max > bound {
			return fmt.Errorf("%s: max pages %d exceeds maximum %d", what, *l.Max, bound)
		}
	}
	if l.Max != nil && l.Min > *l.Max {
		return fmt.Errorf("%s: limits min (%d) exceeds max (%d)", what, l.Min, *l.Max)
	}
	return nil
}

func (m *Module) validateGlobals() error {
	numImported := uint32(m.NumImportedGlobals())
	for i, g := range m.Globals {
		if err := m.validateConstExpr(g.Init, g.Type.ValType, numImported); err != nil {
			return fmt.Errorf("global %d: %w", i, err)
		}
	}
	return nil
}

// validateConstExpr checks that expr produces want. global.get may only
// reference immutable imported globals.
func (m *Module) validateConstExpr(expr ConstExpr, want ValType, numImportedGlobals uint32) error {
	var got ValType
	switch expr.Opcode {
	case OpI32Const:
		got = ValI32
	case OpI64Const:
		got = ValI64
	case OpF32Const:
		got = ValF32
	case OpF64Const:
		got = ValF64
	case OpGlobalGet:
		idx := uint32(expr.Bits)
		if idx >= numImportedGlobals {
			return fmt.Errorf("constant expression references unknown global %d", idx)
		}
		gt := m.GetGlobalType(idx)
		if gt.Mutable {
			return fmt.Errorf("constant expression references mutable global %d", idx)
		}
		got = gt.ValType
	default:
		return fmt.Errorf("invalid constant expression opcode 0x%02x", expr.Opcode)
	}
	if got != want {
		return fmt.Errorf("type mismatch in constant expression: expected %s, got %s", want, got)
	}
	return nil
}

func (m *Module) validateExports() error {
	numFuncs := uint32(m.NumFuncs())
	numTables := uint32(m.NumImportedTables() + len(m.Tables))
	numMemories := uint32(m.NumImportedMemories() + len(m.Memories))
	numGlobals := uint32(m.NumGlobals())

	seen := make(map[string]struct{}, len(m.Exports))
	for i, exp := range m.Exports {
		if _, dup := seen[exp.Name]; dup {
			return fmt.Errorf("duplicate export name %q at index %d", exp.Name, i)
		}
		seen[exp.Name] = struct{}{}

		var limit uint32
		switch exp.Kind {
		case KindFunc:
			limit = numFuncs
		case KindTable:
			limit = numTables
		case KindMemory:
			limit = numMemories
		case KindGlobal:
			limit = numGlobals
		}
		if exp.Idx >= limit {
			return fmt.Errorf("export %d (%s) references invalid %s index %d", i, exp.Name, KindName(exp.Kind), exp.Idx)
		}
	}
	return nil
}

func (m *Module) validateStart() error {
	if m.Start == nil {
		return nil
	}
	ft := m.GetFuncType(*m.Start)
	if ft == nil {
		return fmt.Errorf("start function index %d exceeds function count %d", *m.Start, m.NumFuncs())
	}
	if len(ft.Params) != 0 || len(ft.Results) != 0 {
		return fmt.Errorf("start function must have signature () -> (), got %s", ft)
	}
	return nil
}

func (m *Module) validateElements() error {
	numTables := uint32(m.NumImportedTables() + len(m.Tables))
	numFuncs := uint32(m.NumFuncs())
	numImportedGlobals := uint32(m.NumImportedGlobals())
	for i, elem := range m.Elements {
		if elem.TableIdx >= numTables {
			return fmt.Errorf("element %d references invalid table index %d", i, elem.TableIdx)
		}
		if err := m.validateConstExpr(elem.Offset, ValI32, numImportedGlobals); err != nil {
			return fmt.Errorf("element %d offset: %w", i, err)
		}
		for j, funcIdx := range elem.FuncIdxs {
			if funcIdx >= numFuncs {
				return fmt.Errorf("element %d, entry %d references invalid function index %d", i, j, funcIdx)
			}
		}
	}
	return nil
}

func (m *Module) validateData() error {
	numMemories := uint32(m.NumImportedMemories() + len(m.Memories))
	numImportedGlobals := uint32(m.NumImportedGlobals())
	for i, seg := range m.Data {
		if seg.MemIdx >= numMemories {
			return fmt.Errorf("data segment %d references invalid memory index %d", i, seg.MemIdx)
		}
		if err := m.validateConstExpr(seg.Offset, ValI32, numImportedGlobals); err != nil {
			return fmt.Errorf("data segment %d offset: %w", i, err)
		}
	}
	return nil
}
