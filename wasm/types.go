package wasm

import "strings"

// Module represents a decoded WebAssembly 1.0 module
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // Type indices for declared functions
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elements []Element
	Code     []FuncBody
	Data     []DataSegment

	CustomSections []CustomSection
}

// ValType represents a WebAssembly value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

func isNumType(b byte) bool {
	switch ValType(b) {
	case ValI32, ValI64, ValF32, ValF64:
		return true
	}
	return false
}

// FuncType represents a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) String() string {
	var b strings.Builder
	b.WriteString("(")
	for i, p := range ft.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> (")
	for i, r := range ft.Results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.String())
	}
	b.WriteString(")")
	return b.String()
}

// Equal reports whether two signatures are identical.
func (ft FuncType) Equal(other FuncType) bool {
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i := range ft.Params {
		if ft.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range ft.Results {
		if ft.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

// Import represents an imported function, table, memory, or global.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ImportDesc describes an imported item. Exactly one of the type fields
// is meaningful, selected by Kind.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	TypeIdx uint32
	Kind    byte
}

// TableType describes a funcref table.
type TableType struct {
	Limits   Limits
	ElemType byte
}

// MemoryType describes a linear memory in pages.
type MemoryType struct {
	Limits Limits
}

// Limits describes size constraints for tables and memories.
type Limits struct {
	Max *uint32
	Min uint32
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global is a module-defined global with its initializer.
type Global struct {
	Type GlobalType
	Init ConstExpr
}

// ConstExpr is a WebAssembly 1.0 constant expression: a single
// constant or global.get instruction followed by end.
type ConstExpr struct {
	Opcode byte
	// Bits holds the constant: sign-extended integer for i32/i64,
	// IEEE 754 bits for f32/f64, global index for global.get.
	Bits uint64
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Element is an active element segment initializing a table range.
type Element struct {
	Offset   ConstExpr
	FuncIdxs []uint32
	TableIdx uint32
}

// FuncBody holds a function's local declarations and raw bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // Raw code bytes including the final end opcode
}

// LocalEntry represents a group of locals with the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataSegment is an active data segment initializing a memory range.
type DataSegment struct {
	Offset ConstExpr
	Init   []byte
	MemIdx uint32
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

func (m *Module) countImports(kind byte) int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == kind {
			count++
		}
	}
	return count
}

// NumImportedFuncs returns the number of imported functions
func (m *Module) NumImportedFuncs() int { return m.countImports(KindFunc) }

// NumImportedTables returns the number of imported tables
func (m *Module) NumImportedTables() int { return m.countImports(KindTable) }

// NumImportedMemories returns the number of imported memories
func (m *Module) NumImportedMemories() int { return m.countImports(KindMemory) }

// NumImportedGlobals returns the number of imported globals
func (m *Module) NumImportedGlobals() int { return m.countImports(KindGlobal) }

// NumFuncs returns the size of the function index space.
func (m *Module) NumFuncs() int {
	return m.NumImportedFuncs() + len(m.Funcs)
}

// NumGlobals returns the size of the global index space.
func (m *Module) NumGlobals() int {
	return m.NumImportedGlobals() + len(m.Globals)
}

// FuncTypeIndex returns the type index of the function at funcIdx.
func (m *Module) FuncTypeIndex(funcIdx uint32) (uint32, bool) {
	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		if funcIdx == 0 {
			return imp.Desc.TypeIdx, true
		}
		funcIdx--
	}
	if int(funcIdx) >= len(m.Funcs) {
		return 0, false
	}
	return m.Funcs[funcIdx], true
}

// GetFuncType returns the signature of the function at funcIdx, or nil.
func (m *Module) GetFuncType(funcIdx uint32) *FuncType {
	typeIdx, ok := m.FuncTypeIndex(funcIdx)
	if !ok || int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

// GetGlobalType returns the type of the global at globalIdx, or nil.
func (m *Module) GetGlobalType(globalIdx uint32) *GlobalType {
	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindGlobal {
			continue
		}
		if globalIdx == 0 {
			return imp.Desc.Global
		}
		globalIdx--
	}
	if int(globalIdx) >= len(m.Globals) {
		return nil
	}
	return &m.Globals[globalIdx].Type
}

// Memory returns the module's memory type, imported or defined, or nil.
func (m *Module) Memory() *MemoryType {
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory {
			return imp.Desc.Memory
		}
	}
	if len(m.Memories) > 0 {
		return &m.Memories[0]
	}
	return nil
}

// HasTable reports whether the module imports or defines a table.
func (m *Module) HasTable() bool {
	return m.NumImportedTables()+len(m.Tables) > 0
}

// FindExport returns the export with the given name and kind.
func (m *Module) FindExport(name string, kind byte) (Export, bool) {
	for _, exp := range m.Exports {
		if exp.Name == name && exp.Kind == kind {
			return exp, true
		}
	}
	return Export{}, false
}

// AddType adds a function type and returns its index, reusing an existing equal one
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	c := &Module{
		Types:    make([]FuncType, len(m.Types)),
		Imports:  make([]Import, len(m.Imports)),
		Funcs:    append([]uint32(nil), m.Funcs...),
		Tables:   append([]TableType(nil), m.Tables...),
		Memories: append([]MemoryType(nil), m.Memories...),
		Globals:  append([]Global(nil), m.Globals...),
		Exports:  append([]Export(nil), m.Exports...),
		Elements: make([]Element, len(m.Elements)),
		Code:     make([]FuncBody, len(m.Code)),
		Data:     make([]DataSegment, len(m.Data)),
	}
	for i, t := range m.Types {
		c.Types[i] = FuncType{
			Params:  append([]ValType(nil), t.Params...),
			Results: append([]ValType(nil), t.Results...),
		}
	}
	for i, imp := range m.Imports {
		c.Imports[i] = imp
		if imp.Desc.Table != nil {
			t := *imp.Desc.Table
			t.Limits = t.Limits.clone()
			c.Imports[i].Desc.Table = &t
		}
		if imp.Desc.Memory != nil {
			mem := *imp.Desc.Memory
			mem.Limits = mem.Limits.clone()
			c.Imports[i].Desc.Memory = &mem
		}
		if imp.Desc.Global != nil {
			g := *imp.Desc.Global
			c.Imports[i].Desc.Global = &g
		}
	}
	for i := range c.Tables {
		c.Tables[i].Limits = c.Tables[i].Limits.clone()
	}
	for i := range c.Memories {
		c.Memories[i].Limits = c.Memories[i].Limits.clone()
	}
	if m.Start != nil {
		start := *m.Start
		c.Start = &start
	}
	for i, e := range m.Elements {
		c.Elements[i] = Element{Offset: e.Offset, TableIdx: e.TableIdx, FuncIdxs: append([]uint32(nil), e.FuncIdxs...)}
	}
	for i, body := range m.Code {
		c.Code[i] = FuncBody{
			Locals: append([]LocalEntry(nil), body.Locals...),
			Code:   append([]byte(nil), body.Code...),
		}
	}
	for i, d := range m.Data {
		c.Data[i] = DataSegment{Offset: d.Offset, MemIdx: d.MemIdx, Init: append([]byte(nil), d.Init...)}
	}
	for _, cs := range m.CustomSections {
		c.CustomSections = append(c.CustomSections, CustomSection{Name: cs.Name, Data: append([]byte(nil), cs.Data...)})
	}
	return c
}

func (l Limits) clone() Limits {
	if l.Max != nil {
		maxVal := *l.Max
		l.Max = &maxVal
	}
	return l
}
