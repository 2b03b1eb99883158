package capi

import "github.com/wippyai/wasm-guard/wasm"

// ExternalKind is the kind of an import or export.
type ExternalKind uint8

const (
	ExternalKindFunction ExternalKind = ExternalKind(wasm.KindFunc)
	ExternalKindTable    ExternalKind = ExternalKind(wasm.KindTable)
	ExternalKindMemory   ExternalKind = ExternalKind(wasm.KindMemory)
	ExternalKindGlobal   ExternalKind = ExternalKind(wasm.KindGlobal)
)

func (k ExternalKind) String() string {
	return wasm.KindName(byte(k))
}

// Limits are table or memory limits. Max is meaningful only if HasMax.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

func limits(l wasm.Limits) Limits {
	out := Limits{Min: l.Min}
	if l.Max != nil {
		out.Max = *l.Max
		out.HasMax = true
	}
	return out
}

// GlobalType is the type of a global.
type GlobalType struct {
	Type    ValueType
	Mutable bool
}

// ImportDescription describes one import. Only the member matching Kind
// is set.
type ImportDescription struct {
	Module   string
	Name     string
	Function FunctionType
	Table    Limits
	Memory   Limits
	Global   GlobalType
	Kind     ExternalKind
}

// ExportDescription describes one export. Index is in the index space
// of Kind.
type ExportDescription struct {
	Name  string
	Kind  ExternalKind
	Index uint32
}

// GetTypeCount returns the number of entries in the type section.
func GetTypeCount(m ModuleHandle) uint32 {
	return uint32(len(defaultEngine().mustModule(m).parsed.Types))
}

// GetType returns type section entry typeIdx.
func GetType(m ModuleHandle, typeIdx uint32) FunctionType {
	types := defaultEngine().mustModule(m).parsed.Types
	if int(typeIdx) >= len(types) {
		panic("capi: type index out of range")
	}
	return functionType(&types[typeIdx])
}

// GetImportCount returns the number of imports.
func GetImportCount(m ModuleHandle) uint32 {
	return uint32(len(defaultEngine().mustModule(m).parsed.Imports))
}

// GetImportDescription returns import importIdx.
func GetImportDescription(m ModuleHandle, importIdx uint32) ImportDescription {
	parsed := defaultEngine().mustModule(m).parsed
	if int(importIdx) >= len(parsed.Imports) {
		panic("capi: import index out of range")
	}
	imp := parsed.Imports[importIdx]
	desc := ImportDescription{
		Module: imp.Module,
		Name:   imp.Name,
		Kind:   ExternalKind(imp.Desc.Kind),
	}
	switch imp.Desc.Kind {
	case wasm.KindFunc:
		desc.Function = functionType(&parsed.Types[imp.Desc.TypeIdx])
	case wasm.KindTable:
		desc.Table = limits(imp.Desc.Table.Limits)
	case wasm.KindMemory:
		desc.Memory = limits(imp.Desc.Memory.Limits)
	case wasm.KindGlobal:
		desc.Global = GlobalType{Type: ValueType(imp.Desc.Global.ValType), Mutable: imp.Desc.Global.Mutable}
	}
	return desc
}

// GetExportCount returns the number of exports.
func GetExportCount(m ModuleHandle) uint32 {
	return uint32(len(defaultEngine().mustModule(m).parsed.Exports))
}

// GetExportDescription returns export exportIdx.
func GetExportDescription(m ModuleHandle, exportIdx uint32) ExportDescription {
	exports := defaultEngine().mustModule(m).parsed.Exports
	if int(exportIdx) >= len(exports) {
		panic("capi: export index out of range")
	}
	exp := exports[exportIdx]
	return ExportDescription{Name: exp.Name, Kind: ExternalKind(exp.Kind), Index: exp.Idx}
}

// GetGlobalCount returns the size of the global index space, imported
// globals included.
func GetGlobalCount(m ModuleHandle) uint32 {
	return uint32(defaultEngine().mustModule(m).parsed.NumGlobals())
}

// GetGlobalType returns the type of global globalIdx.
func GetGlobalType(m ModuleHandle, globalIdx uint32) GlobalType {
	gt := defaultEngine().mustModule(m).parsed.GetGlobalType(globalIdx)
	if gt == nil {
		panic("capi: global index out of range")
	}
	return GlobalType{Type: ValueType(gt.ValType), Mutable: gt.Mutable}
}

// ModuleHasTable reports whether the module defines or imports a table.
func ModuleHasTable(m ModuleHandle) bool {
	return defaultEngine().mustModule(m).parsed.HasTable()
}

// ModuleHasMemory reports whether the module defines or imports a memory.
func ModuleHasMemory(m ModuleHandle) bool {
	return defaultEngine().mustModule(m).parsed.Memory() != nil
}

// ModuleHasStartFunction reports whether the module has a start function
// and stores its index in funcIdx.
func ModuleHasStartFunction(m ModuleHandle, funcIdx *uint32) bool {
	start := defaultEngine().mustModule(m).parsed.Start
	if start == nil {
		return false
	}
	if funcIdx != nil {
		*funcIdx = *start
	}
	return true
}
