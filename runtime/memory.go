package runtime

import (
	"encoding/binary"
	"math/bits"
	"unsafe"

	wasmguard "github.com/wippyai/wasm-guard"
	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
)

// MemoryRange is a validated half-open byte range [Offset, End) of
// linear memory.
type MemoryRange struct {
	Offset uint64
	End    uint64
}

// Len returns the number of bytes in the range.
func (r MemoryRange) Len() uint64 { return r.End - r.Offset }

// checkedRange validates [offset, offset+length) against a memory at data
// of size bytes. A nil data pointer means there is no memory at all and
// rejects every range, including empty ones. An empty range at size is
// valid.
func checkedRange(data unsafe.Pointer, size uint64, offset uint32, length uint64) (MemoryRange, error) {
	if data == nil {
		return MemoryRange{}, errors.NoMemoryAvailable()
	}
	end, carry := bits.Add64(uint64(offset), length, 0)
	if carry != 0 || end > size {
		return MemoryRange{}, errors.InvalidMemoryOffsetOrSize(offset, length, size)
	}
	return MemoryRange{Offset: uint64(offset), End: end}, nil
}

// view returns the bytes of r in the memory at data.
func view(data unsafe.Pointer, r MemoryRange) []byte {
	if r.Len() == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Add(data, r.Offset)), r.Len())
}

// memoryView aliases [offset, offset+length) of the instance's memory.
func (i *Instance) memoryView(offset uint32, length uint64) ([]byte, error) {
	h, err := i.handle(errors.PhaseMemory)
	if err != nil {
		return nil, err
	}
	data := capi.GetInstanceMemoryData(h)
	r, err := checkedRange(data, capi.GetInstanceMemorySize(h), offset, length)
	if err != nil {
		return nil, err
	}
	return view(data, r), nil
}

// MemorySize returns the current size of the instance's memory in bytes.
func (i *Instance) MemorySize() (uint64, error) {
	h, err := i.handle(errors.PhaseMemory)
	if err != nil {
		return 0, err
	}
	if capi.GetInstanceMemoryData(h) == nil {
		return 0, errors.NoMemoryAvailable()
	}
	return capi.GetInstanceMemorySize(h), nil
}

// ReadMemory copies length bytes starting at offset out of memory.
func (i *Instance) ReadMemory(offset uint32, length uint64) ([]byte, error) {
	v, err := i.memoryView(offset, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// WriteMemory copies data into memory starting at offset.
func (i *Instance) WriteMemory(offset uint32, data []byte) error {
	v, err := i.memoryView(offset, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(v, data)
	return nil
}

// WithMemory calls fn with a mutable view of [offset, offset+length).
// The view is valid only during fn, and fn must not execute functions of
// the instance since they can grow and move memory.
func (i *Instance) WithMemory(offset uint32, length uint64, fn func(view []byte) error) error {
	v, err := i.memoryView(offset, length)
	if err != nil {
		return err
	}
	return fn(v)
}

// UnsafeMemory returns a view aliasing [offset, offset+length) of memory.
// Any call that can grow memory invalidates it, and using it afterwards
// reads or writes stale bytes. Prefer WithMemory.
func (i *Instance) UnsafeMemory(offset uint32, length uint64) ([]byte, error) {
	return i.memoryView(offset, length)
}

// Memory returns typed little-endian access to the instance's memory.
func (i *Instance) Memory() *Memory {
	return &Memory{inst: i}
}

// Memory is bounds-checked little-endian access to an instance's linear
// memory. Every access revalidates against the current memory size.
type Memory struct {
	inst *Instance
}

var (
	_ wasmguard.Memory      = (*Memory)(nil)
	_ wasmguard.MemorySizer = (*Memory)(nil)
)

// Size returns the current memory size in bytes.
func (m *Memory) Size() (uint64, error) {
	return m.inst.MemorySize()
}

// Read copies length bytes starting at offset.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	return m.inst.ReadMemory(offset, uint64(length))
}

// Write copies data to offset.
func (m *Memory) Write(offset uint32, data []byte) error {
	return m.inst.WriteMemory(offset, data)
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	v, err := m.inst.memoryView(offset, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Memory) ReadU16(offset uint32) (uint16, error) {
	v, err := m.inst.memoryView(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	v, err := m.inst.memoryView(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	v, err := m.inst.memoryView(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Memory) WriteU8(offset uint32, value uint8) error {
	v, err := m.inst.memoryView(offset, 1)
	if err != nil {
		return err
	}
	v[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Memory) WriteU16(offset uint32, value uint16) error {
	v, err := m.inst.memoryView(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(v, value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Memory) WriteU32(offset uint32, value uint32) error {
	v, err := m.inst.memoryView(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(v, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Memory) WriteU64(offset uint32, value uint64) error {
	v, err := m.inst.memoryView(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(v, value)
	return nil
}
