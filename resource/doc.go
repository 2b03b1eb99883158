// Package resource provides the typed handle table behind the engine's
// opaque module and instance handles.
//
// A handle is an integer; 0 is never valid. Each handle carries the type
// ID it was inserted with and the generation of its slot, so a handle of
// the wrong type or one whose resource was already dropped simply fails
// to resolve instead of reaching another value.
//
//	table := resource.NewTable()
//	h := table.Insert(typeModule, mod)
//
//	v, ok := table.GetTyped(h, typeModule)   // ok
//	_, ok = table.GetTyped(h, typeInstance)  // !ok
//
//	_, err := table.Remove(h)                // drops
//	_, err = table.Remove(h)                 // ErrInvalidHandle
//
// # Typed views
//
// TypedTable restricts a shared table to one type ID:
//
//	modules := resource.NewTypedTable[*module](table, typeModule)
//	h := modules.Insert(m)
//	m, ok := modules.Get(h)
//
// # Borrows
//
// A borrowed handle stays resolvable but cannot be removed until every
// borrow is returned. The engine borrows an instance's module for the
// lifetime of the instance.
//
// # Observers
//
// Observers receive created, dropped, borrowed and borrow-returned events
// synchronously:
//
//	cancel := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %d", e.Type, e.Handle)
//	}))
//	defer cancel()
package resource
