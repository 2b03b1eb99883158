package resource

import (
	"sync"
)

// Table maps handles to typed values and notifies observers of their
// lifecycle. It is safe for concurrent use.
type Table struct {
	backend   *LocalBackend
	observers map[uint64]Observer
	order     []uint64
	nextObs   uint64
	obsMu     sync.RWMutex
}

// Option configures a Table.
type Option func(*tableConfig)

type tableConfig struct {
	capacity int
}

// WithCapacity bounds the number of live resources. Inserts beyond it fail.
func WithCapacity(n int) Option {
	return func(c *tableConfig) {
		c.capacity = n
	}
}

// NewTable creates a new table backed by a LocalBackend.
func NewTable(opts ...Option) *Table {
	var cfg tableConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Table{
		backend:   NewLocalBackend(cfg.capacity),
		observers: make(map[uint64]Observer),
	}
}

// Insert adds a value and returns its handle, or 0 if the table is
// closed or full.
func (t *Table) Insert(typeID uint32, value any) Handle {
	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}
	t.notify(Event{Type: EventCreated, Handle: handle, TypeID: typeID, Value: value})
	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it was inserted with typeID.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actual, ok := t.backend.TypeID(handle)
	if !ok || actual != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Remove drops a resource and returns its value. Borrowed resources
// cannot be removed.
func (t *Table) Remove(handle Handle) (any, error) {
	value, typeID, err := t.backend.Drop(handle)
	if err != nil {
		return nil, err
	}
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: handle, TypeID: typeID, Value: value})
	return value, nil
}

// RemoveTyped drops a resource only if it was inserted with typeID.
func (t *Table) RemoveTyped(handle Handle, typeID uint32) (any, error) {
	actual, ok := t.backend.TypeID(handle)
	if !ok || actual != typeID {
		return nil, ErrInvalidHandle
	}
	return t.Remove(handle)
}

// Borrow marks handle as borrowed; it cannot be removed until every
// borrow is returned.
func (t *Table) Borrow(handle Handle) bool {
	if !t.backend.Borrow(handle) {
		return false
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{Type: EventBorrowed, Handle: handle, TypeID: typeID})
	return true
}

// ReturnBorrow releases one borrow of handle.
func (t *Table) ReturnBorrow(handle Handle) bool {
	if !t.backend.ReturnBorrow(handle) {
		return false
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{Type: EventBorrowReturned, Handle: handle, TypeID: typeID})
	return true
}

// Borrowed reports whether handle has outstanding borrows.
func (t *Table) Borrowed(handle Handle) bool {
	return t.backend.Borrows(handle) > 0
}

// Subscribe adds an observer for lifecycle events and returns a
// function that removes it.
func (t *Table) Subscribe(o Observer) (cancel func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()

	t.nextObs++
	id := t.nextObs
	t.observers[id] = o
	t.order = append(t.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { t.unsubscribe(id) })
	}
}

func (t *Table) unsubscribe(id uint64) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()

	delete(t.observers, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Count returns the number of live resources of typeID.
func (t *Table) Count(typeID uint32) int {
	n := 0
	t.backend.Each(func(_ Handle, id uint32, _ any) bool {
		if id == typeID {
			n++
		}
		return true
	})
	return n
}

// Clear drops all resources that are not borrowed.
func (t *Table) Clear() {
	// Collect handles first to avoid holding the backend lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, _ uint32, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		_, _ = t.Remove(h)
	}
}

// Close releases all resources and stops accepting inserts.
func (t *Table) Close() error {
	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, id := range t.order {
		t.observers[id].OnResourceEvent(e)
	}
}

// TypedTable is a type-safe view over the resources of one type ID in a Table.
type TypedTable[T any] struct {
	table  *Table
	typeID uint32
}

// NewTypedTable returns a view of table restricted to typeID.
func NewTypedTable[T any](table *Table, typeID uint32) *TypedTable[T] {
	return &TypedTable[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle, or 0 on failure.
func (t *TypedTable[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle.
func (t *TypedTable[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Remove drops a resource and returns its value.
func (t *TypedTable[T]) Remove(handle Handle) (T, error) {
	var zero T
	v, err := t.table.RemoveTyped(handle, t.typeID)
	if err != nil {
		return zero, err
	}
	typed, _ := v.(T)
	return typed, nil
}

// Len returns the number of live resources of this type.
func (t *TypedTable[T]) Len() int {
	return t.table.Count(t.typeID)
}

// Each iterates over the live resources of this type.
func (t *TypedTable[T]) Each(fn func(Handle, T) bool) {
	t.table.backend.Each(func(h Handle, id uint32, v any) bool {
		if id != t.typeID {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}
