package wasm

import (
	"encoding/binary"

	wasmbin "github.com/wippyai/wasm-guard/wasm/internal/binary"
)

// Encode encodes the module to WebAssembly binary format.
// Custom sections are emitted after all known sections.
func (m *Module) Encode() []byte {
	w := wasmbin.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(m.Types) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.Byte(FuncTypeByte)
			writeValTypes(sec, ft.Params)
			writeValTypes(sec, ft.Results)
		}
		w.Section(SectionType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.WriteName(imp.Module)
			sec.WriteName(imp.Name)
			sec.Byte(imp.Desc.Kind)
			switch imp.Desc.Kind {
			case KindFunc:
				sec.WriteU32(imp.Desc.TypeIdx)
			case KindTable:
				writeTableType(sec, *imp.Desc.Table)
			case KindMemory:
				writeLimits(sec, imp.Desc.Memory.Limits)
			case KindGlobal:
				writeGlobalType(sec, *imp.Desc.Global)
			}
		}
		w.Section(SectionImport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			sec.WriteU32(typeIdx)
		}
		w.Section(SectionFunction, sec.Bytes())
	}

	if len(m.Tables) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Tables)))
		for _, t := range m.Tables {
			writeTableType(sec, t)
		}
		w.Section(SectionTable, sec.Bytes())
	}

	if len(m.Memories) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			writeLimits(sec, mem.Limits)
		}
		w.Section(SectionMemory, sec.Bytes())
	}

	if len(m.Globals) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			writeGlobalType(sec, g.Type)
			writeConstExpr(sec, g.Init)
		}
		w.Section(SectionGlobal, sec.Bytes())
	}

	if len(m.Exports) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.WriteName(exp.Name)
			sec.Byte(exp.Kind)
			sec.WriteU32(exp.Idx)
		}
		w.Section(SectionExport, sec.Bytes())
	}

	if m.Start != nil {
		sec := wasmbin.NewWriter()
		sec.WriteU32(*m.Start)
		w.Section(SectionStart, sec.Bytes())
	}

	if len(m.Elements) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Elements)))
		for _, elem := range m.Elements {
			sec.WriteU32(elem.TableIdx)
			writeConstExpr(sec, elem.Offset)
			sec.WriteU32(uint32(len(elem.FuncIdxs)))
			for _, idx := range elem.FuncIdxs {
				sec.WriteU32(idx)
			}
		}
		w.Section(SectionElement, sec.Bytes())
	}

	if len(m.Code) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Code)))
		for _, body := range m.Code {
			bw := wasmbin.NewWriter()
			bw.WriteU32(uint32(len(body.Locals)))
			for _, l := range body.Locals {
				bw.WriteU32(l.Count)
				bw.Byte(byte(l.ValType))
			}
			bw.WriteBytes(body.Code)
			sec.WriteU32(uint32(bw.Len()))
			sec.WriteBytes(bw.Bytes())
		}
		w.Section(SectionCode, sec.Bytes())
	}

	if len(m.Data) > 0 {
		sec := wasmbin.NewWriter()
		sec.WriteU32(uint32(len(m.Data)))
		for _, seg := range m.Data {
			sec.WriteU32(seg.MemIdx)
			writeConstExpr(sec, seg.Offset)
			sec.WriteU32(uint32(len(seg.Init)))
			sec.WriteBytes(seg.Init)
		}
		w.Section(SectionData, sec.Bytes())
	}

	for _, cs := range m.CustomSections {
		sec := wasmbin.NewWriter()
		sec.WriteName(cs.Name)
		sec.WriteBytes(cs.Data)
		w.Section(SectionCustom, sec.Bytes())
	}

	return w.Bytes()
}

func writeValTypes(w *wasmbin.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeLimits(w *wasmbin.Writer, l Limits) {
	if l.Max != nil {
		w.Byte(LimitsHasMax)
		w.WriteU32(l.Min)
		w.WriteU32(*l.Max)
		return
	}
	w.Byte(LimitsNoMax)
	w.WriteU32(l.Min)
}

func writeTableType(w *wasmbin.Writer, t TableType) {
	elemType := t.ElemType
	if elemType == 0 {
		elemType = ElemTypeFuncRef
	}
	w.Byte(elemType)
	writeLimits(w, t.Limits)
}

func writeGlobalType(w *wasmbin.Writer, g GlobalType) {
	w.Byte(byte(g.ValType))
	if g.Mutable {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

func writeConstExpr(w *wasmbin.Writer, e ConstExpr) {
	w.Byte(e.Opcode)
	switch e.Opcode {
	case OpI32Const:
		w.WriteS32(int32(e.Bits))
	case OpI64Const:
		w.WriteS64(int64(e.Bits))
	case OpF32Const:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(e.Bits))
		w.WriteBytes(buf[:])
	case OpF64Const:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], e.Bits)
		w.WriteBytes(buf[:])
	case OpGlobalGet:
		w.WriteU32(uint32(e.Bits))
	}
	w.Byte(OpEnd)
}

// I32Const returns the constant expression (i32.const v).
func I32Const(v int32) ConstExpr {
	return ConstExpr{Opcode: OpI32Const, Bits: uint64(int64(v))}
}

// GlobalGet returns the constant expression (global.get idx).
func GlobalGet(idx uint32) ConstExpr {
	return ConstExpr{Opcode: OpGlobalGet, Bits: uint64(idx)}
}
