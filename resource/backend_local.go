package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("resource backend closed")
	ErrExhausted         = errors.New("resource backend capacity exhausted")
	ErrOutstandingBorrow = errors.New("cannot drop resource with outstanding borrows")
	ErrInvalidHandle     = errors.New("invalid resource handle")
)

// LocalBackend is an in-memory slot store with generation-checked
// handles and borrow tracking.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	capacity int
	live     int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	typeID      uint32
	generation  uint32
	borrowCount uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend. A capacity of zero
// means unbounded.
func NewLocalBackend(capacity int) *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
		capacity: capacity,
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	if b.capacity > 0 && b.live >= b.capacity {
		return 0, ErrExhausted
	}
	b.live++

	if n := len(b.freeList); n > 0 {
		slot := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		e := &b.entries[slot]
		e.typeID = typeID
		e.value = value
		e.valid = true
		return makeHandle(slot, e.generation), nil
	}

	b.entries = append(b.entries, entry{typeID: typeID, value: value, valid: true})
	return makeHandle(uint32(len(b.entries)-1), 0), nil
}

// lookup returns the live entry for handle. Callers hold b.mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	slot, ok := handle.slot()
	if !ok || int(slot) >= len(b.entries) {
		return nil
	}
	e := &b.entries[slot]
	if !e.valid || e.generation != handle.generation() {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.typeID, true
}

// Drop removes a resource and returns its value and type ID.
// The slot generation advances so the handle never resolves again.
func (b *LocalBackend) Drop(handle Handle) (any, uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, 0, ErrInvalidHandle
	}
	if e.borrowCount > 0 {
		return nil, 0, ErrOutstandingBorrow
	}

	value, typeID := e.value, e.typeID
	e.valid = false
	e.value = nil
	e.generation++
	b.live--
	slot, _ := handle.slot()
	b.freeList = append(b.freeList, slot)

	return value, typeID, nil
}

// Borrow increments the borrow count for a handle.
func (b *LocalBackend) Borrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return false
	}
	e.borrowCount++
	return true
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.borrowCount == 0 {
		return false
	}
	e.borrowCount--
	return true
}

// Borrows returns the outstanding borrow count for a handle.
func (b *LocalBackend) Borrows(handle Handle) uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if e := b.lookup(handle); e != nil {
		return e.borrowCount
	}
	return 0
}

// Len returns the number of live resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all live resources.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i), e.generation), e.typeID, e.value) {
				return
			}
		}
	}
}

// Close releases all resources, calling Drop on values that implement Dropper.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				d.Drop()
			}
		}
	}

	b.entries = nil
	b.freeList = nil
	b.live = 0
	return nil
}
