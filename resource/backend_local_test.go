package resource

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend(0)

	h, err := b.Create(7, "value")
	require.NoError(t, err)
	require.NotZero(t, h)

	v, ok := b.Get(h)
	require.True(t, ok)
	assert.Equal(t, "value", v)

	typeID, ok := b.TypeID(h)
	require.True(t, ok)
	assert.Equal(t, uint32(7), typeID)

	v, typeID, err = b.Drop(h)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, uint32(7), typeID)

	_, ok = b.Get(h)
	assert.False(t, ok)
}

func TestLocalBackend_HandleReuse(t *testing.T) {
	b := NewLocalBackend(0)

	h1, _ := b.Create(1, "a")
	_, _, err := b.Drop(h1)
	require.NoError(t, err)

	h2, _ := b.Create(1, "b")
	slot1, _ := h1.slot()
	slot2, _ := h2.slot()
	assert.Equal(t, slot1, slot2, "slot is reused")
	assert.Equal(t, h1.generation()+1, h2.generation())

	_, _, err = b.Drop(h1)
	assert.ErrorIs(t, err, ErrInvalidHandle, "stale handle cannot drop the new resource")
	assert.Equal(t, 1, b.Len())
}

func TestLocalBackend_MultipleBorrows(t *testing.T) {
	b := NewLocalBackend(0)
	h, _ := b.Create(1, "x")

	require.True(t, b.Borrow(h))
	require.True(t, b.Borrow(h))
	assert.Equal(t, uint32(2), b.Borrows(h))

	_, _, err := b.Drop(h)
	assert.ErrorIs(t, err, ErrOutstandingBorrow)

	require.True(t, b.ReturnBorrow(h))
	_, _, err = b.Drop(h)
	assert.ErrorIs(t, err, ErrOutstandingBorrow)

	require.True(t, b.ReturnBorrow(h))
	_, _, err = b.Drop(h)
	assert.NoError(t, err)
}

func TestLocalBackend_Capacity(t *testing.T) {
	b := NewLocalBackend(1)
	_, err := b.Create(1, nil)
	require.NoError(t, err)
	_, err = b.Create(1, nil)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend(0)
	h, _ := b.Create(1, "x")

	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "second close is a no-op")

	_, ok := b.Get(h)
	assert.False(t, ok)
	_, err := b.Create(1, "y")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, b.Len())
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend(0)
	h1, _ := b.Create(1, "a")
	h2, _ := b.Create(2, "b")
	h3, _ := b.Create(1, "c")
	_, _, _ = b.Drop(h2)

	got := map[Handle]any{}
	b.Each(func(h Handle, _ uint32, v any) bool {
		got[h] = v
		return true
	})
	assert.Equal(t, map[Handle]any{h1: "a", h3: "c"}, got)

	var n int
	b.Each(func(Handle, uint32, any) bool {
		n++
		return false
	})
	assert.Equal(t, 1, n, "iteration stops when fn returns false")
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h, err := b.Create(1, j)
				if err != nil {
					t.Error(err)
					return
				}
				if _, ok := b.Get(h); !ok {
					t.Error("created handle did not resolve")
					return
				}
				if _, _, err := b.Drop(h); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, b.Len())
}

func TestHandleEncoding(t *testing.T) {
	h := makeHandle(0, 0)
	assert.Equal(t, Handle(1), h)

	slot, ok := h.slot()
	require.True(t, ok)
	assert.Equal(t, uint32(0), slot)

	h = makeHandle(5, 3)
	slot, _ = h.slot()
	assert.Equal(t, uint32(5), slot)
	assert.Equal(t, uint32(3), h.generation())

	_, ok = Handle(0).slot()
	assert.False(t, ok)
	_, ok = Handle(1 << 32).slot()
	assert.False(t, ok, "generation without slot is invalid")
}
