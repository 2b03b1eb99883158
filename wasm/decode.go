package wasm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	wasmbin "github.com/wippyai/wasm-guard/wasm/internal/binary"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// ParseModule decodes a WebAssembly 1.0 binary module.
// Every error it returns describes a malformed binary; structural
// checks that need the whole module live in Validate.
func ParseModule(data []byte) (*Module, error) {
	r := wasmbin.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	var lastID byte

	for r.Remaining() > 0 {
		sectionID, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("section header", err)
		}
		if sectionID > SectionData {
			return nil, r.WrapError("section header", fmt.Errorf("malformed section id 0x%02x", sectionID))
		}
		if sectionID != SectionCustom {
			if sectionID <= lastID {
				return nil, fmt.Errorf("section %d appears out of order", sectionID)
			}
			lastID = sectionID
		}

		sectionSize, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		sr, err := r.Sub(int(sectionSize))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}

		var name string
		switch sectionID {
		case SectionCustom:
			name, err = "custom section", parseCustomSection(sr, m)
		case SectionType:
			name, err = "type section", parseTypeSection(sr, m)
		case SectionImport:
			name, err = "import section", parseImportSection(sr, m)
		case SectionFunction:
			name, err = "function section", parseFunctionSection(sr, m)
		case SectionTable:
			name, err = "table section", parseTableSection(sr, m)
		case SectionMemory:
			name, err = "memory section", parseMemorySection(sr, m)
		case SectionGlobal:
			name, err = "global section", parseGlobalSection(sr, m)
		case SectionExport:
			name, err = "export section", parseExportSection(sr, m)
		case SectionStart:
			name, err = "start section", parseStartSection(sr, m)
		case SectionElement:
			name, err = "element section", parseElementSection(sr, m)
		case SectionCode:
			name, err = "code section", parseCodeSection(sr, m)
		case SectionData:
			name, err = "data section", parseDataSection(sr, m)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if sr.Remaining() != 0 {
			return nil, fmt.Errorf("%s: section size mismatch, %d trailing bytes", name, sr.Remaining())
		}
	}

	if len(m.Funcs) != len(m.Code) {
		return nil, fmt.Errorf("function and code section have inconsistent lengths: %d and %d", len(m.Funcs), len(m.Code))
	}

	return m, nil
}

func parseCustomSection(r *wasmbin.Reader, m *Module) error {
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	rest, err := r.ReadRemaining()
	if err != nil {
		return err
	}
	m.CustomSections = append(m.CustomSections, CustomSection{Name: name, Data: rest})
	return nil
}

// readCount reads a vector length and rejects lengths that cannot fit
// in the remaining bytes, each element taking at least minSize bytes.
func readCount(r *wasmbin.Reader, minSize int) (uint32, error) {
	count, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	if uint64(count)*uint64(minSize) > uint64(r.Remaining()) {
		return 0, fmt.Errorf("vector length %d exceeds remaining %d bytes", count, r.Remaining())
	}
	return count, nil
}

func parseTypeSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 3)
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			return fmt.Errorf("type %d: expected functype (0x60), got 0x%02x", i, form)
		}
		params, err := readValTypes(r)
		if err != nil {
			return fmt.Errorf("type %d params: %w", i, err)
		}
		results, err := readValTypes(r)
		if err != nil {
			return fmt.Errorf("type %d results: %w", i, err)
		}
		m.Types[i] = FuncType{Params: params, Results: results}
	}
	return nil
}

func readValTypes(r *wasmbin.Reader) ([]ValType, error) {
	count, err := readCount(r, 1)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	types := make([]ValType, count)
	for i := range types {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if !isNumType(b) {
			return nil, fmt.Errorf("invalid value type 0x%02x", b)
		}
		types[i] = ValType(b)
	}
	return types, nil
}

func parseImportSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 4)
	if err != nil {
		return err
	}
	m.Imports = make([]Import, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}

		imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}
		switch kind {
		case KindFunc:
			imp.Desc.TypeIdx, err = r.ReadU32()
		case KindTable:
			var table TableType
			table, err = readTableType(r)
			imp.Desc.Table = &table
		case KindMemory:
			var memory MemoryType
			memory, err = readMemoryType(r)
			imp.Desc.Memory = &memory
		case KindGlobal:
			var global GlobalType
			global, err = readGlobalType(r)
			imp.Desc.Global = &global
		default:
			return fmt.Errorf("import %d: malformed import kind 0x%02x", i, kind)
		}
		if err != nil {
			return fmt.Errorf("import %d (%s.%s): %w", i, module, name, err)
		}
		m.Imports[i] = imp
	}
	return nil
}

func parseFunctionSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 1)
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, count)
	for i := range m.Funcs {
		if m.Funcs[i], err = r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}

func parseTableSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 3)
	if err != nil {
		return err
	}
	m.Tables = make([]TableType, count)
	for i := range m.Tables {
		if m.Tables[i], err = readTableType(r); err != nil {
			return err
		}
	}
	return nil
}

func parseMemorySection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 2)
	if err != nil {
		return err
	}
	m.Memories = make([]MemoryType, count)
	for i := range m.Memories {
		if m.Memories[i], err = readMemoryType(r); err != nil {
			return err
		}
	}
	return nil
}

func parseGlobalSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 4)
	if err != nil {
		return err
	}
	m.Globals = make([]Global, count)
	for i := range m.Globals {
		globalType, err := readGlobalType(r)
		if err != nil {
			return err
		}
		init, err := readConstExpr(r)
		if err != nil {
			return fmt.Errorf("global %d init: %w", i, err)
		}
		m.Globals[i] = Global{Type: globalType, Init: init}
	}
	return nil
}

func parseExportSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 3)
	if err != nil {
		return err
	}
	m.Exports = make([]Export, count)
	for i := range m.Exports {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		if kind > KindGlobal {
			return fmt.Errorf("export %q: malformed export kind 0x%02x", name, kind)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Exports[i] = Export{Name: name, Kind: kind, Idx: idx}
	}
	return nil
}

func parseStartSection(r *wasmbin.Reader, m *Module) error {
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Start = &idx
	return nil
}

func parseElementSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 4)
	if err != nil {
		return err
	}
	m.Elements = make([]Element, count)
	for i := range m.Elements {
		tableIdx, err := r.ReadU32()
		if err != nil {
			return err
		}
		offset, err := readConstExpr(r)
		if err != nil {
			return fmt.Errorf("element %d offset: %w", i, err)
		}
		n, err := readCount(r, 1)
		if err != nil {
			return err
		}
		funcs := make([]uint32, n)
		for j := range funcs {
			if funcs[j], err = r.ReadU32(); err != nil {
				return err
			}
		}
		m.Elements[i] = Element{TableIdx: tableIdx, Offset: offset, FuncIdxs: funcs}
	}
	return nil
}

func parseCodeSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 2)
	if err != nil {
		return err
	}
	m.Code = make([]FuncBody, count)
	for i := range m.Code {
		bodySize, err := r.ReadU32()
		if err != nil {
			return err
		}
		br, err := r.Sub(int(bodySize))
		if err != nil {
			return fmt.Errorf("function body %d: %w", i, err)
		}
		body, err := readFuncBody(br)
		if err != nil {
			return fmt.Errorf("function body %d: %w", i, err)
		}
		m.Code[i] = body
	}
	return nil
}

func readFuncBody(r *wasmbin.Reader) (FuncBody, error) {
	groups, err := readCount(r, 2)
	if err != nil {
		return FuncBody{}, err
	}
	var locals []LocalEntry
	var total uint64
	for j := uint32(0); j < groups; j++ {
		n, err := r.ReadU32()
		if err != nil {
			return FuncBody{}, err
		}
		total += uint64(n)
		if total > math.MaxUint32 {
			return FuncBody{}, errors.New("too many locals")
		}
		t, err := r.ReadByte()
		if err != nil {
			return FuncBody{}, err
		}
		if !isNumType(t) {
			return FuncBody{}, fmt.Errorf("invalid local type 0x%02x", t)
		}
		locals = append(locals, LocalEntry{Count: n, ValType: ValType(t)})
	}
	code, err := r.ReadRemaining()
	if err != nil {
		return FuncBody{}, err
	}
	if len(code) == 0 || code[len(code)-1] != OpEnd {
		return FuncBody{}, errors.New("function body must end with end opcode")
	}
	return FuncBody{Locals: locals, Code: code}, nil
}

func parseDataSection(r *wasmbin.Reader, m *Module) error {
	count, err := readCount(r, 4)
	if err != nil {
		return err
	}
	m.Data = make([]DataSegment, count)
	for i := range m.Data {
		memIdx, err := r.ReadU32()
		if err != nil {
			return err
		}
		offset, err := readConstExpr(r)
		if err != nil {
			return fmt.Errorf("data segment %d offset: %w", i, err)
		}
		n, err := r.ReadU32()
		if err != nil {
			return err
		}
		init, err := r.ReadBytes(int(n))
		if err != nil {
			return fmt.Errorf("data segment %d: %w", i, err)
		}
		m.Data[i] = DataSegment{MemIdx: memIdx, Offset: offset, Init: init}
	}
	return nil
}

func readLimits(r *wasmbin.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	if flags != LimitsNoMax && flags != LimitsHasMax {
		return Limits{}, fmt.Errorf("malformed limits flags 0x%02x", flags)
	}
	var l Limits
	if l.Min, err = r.ReadU32(); err != nil {
		return Limits{}, err
	}
	if flags == LimitsHasMax {
		maxVal, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		l.Max = &maxVal
	}
	return l, nil
}

func readTableType(r *wasmbin.Reader) (TableType, error) {
	elemType, err := r.ReadByte()
	if err != nil {
		return TableType{}, err
	}
	if elemType != ElemTypeFuncRef {
		return TableType{}, fmt.Errorf("malformed table element type 0x%02x", elemType)
	}
	limits, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: elemType, Limits: limits}, nil
}

func readMemoryType(r *wasmbin.Reader) (MemoryType, error) {
	limits, err := readLimits(r)
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Limits: limits}, nil
}

func readGlobalType(r *wasmbin.Reader) (GlobalType, error) {
	valType, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if !isNumType(valType) {
		return GlobalType{}, fmt.Errorf("invalid global type 0x%02x", valType)
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, fmt.Errorf("malformed mutability 0x%02x", mut)
	}
	return GlobalType{ValType: ValType(valType), Mutable: mut == 1}, nil
}

func readConstExpr(r *wasmbin.Reader) (ConstExpr, error) {
	op, err := r.ReadByte()
	if err != nil {
		return ConstExpr{}, err
	}
	expr := ConstExpr{Opcode: op}
	switch op {
	case OpI32Const:
		v, err := r.ReadS32()
		if err != nil {
			return ConstExpr{}, err
		}
		expr.Bits = uint64(int64(v))
	case OpI64Const:
		v, err := r.ReadS64()
		if err != nil {
			return ConstExpr{}, err
		}
		expr.Bits = uint64(v)
	case OpF32Const:
		b, err := r.ReadBytes(4)
		if err != nil {
			return ConstExpr{}, err
		}
		expr.Bits = uint64(binary.LittleEndian.Uint32(b))
	case OpF64Const:
		b, err := r.ReadBytes(8)
		if err != nil {
			return ConstExpr{}, err
		}
		expr.Bits = binary.LittleEndian.Uint64(b)
	case OpGlobalGet:
		idx, err := r.ReadU32()
		if err != nil {
			return ConstExpr{}, err
		}
		expr.Bits = uint64(idx)
	default:
		return ConstExpr{}, fmt.Errorf("constant expression required, got opcode 0x%02x", op)
	}
	end, err := r.ReadByte()
	if err != nil {
		return ConstExpr{}, err
	}
	if end != OpEnd {
		return ConstExpr{}, fmt.Errorf("constant expression must end with end opcode, got 0x%02x", end)
	}
	return expr, nil
}
