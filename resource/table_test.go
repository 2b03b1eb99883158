package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	typeA uint32 = 1
	typeB uint32 = 2
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(typeA, "test")
	require.NotZero(t, h)

	val, ok := table.Get(h)
	require.True(t, ok)
	assert.Equal(t, "test", val)

	_, ok = table.GetTyped(h, typeA)
	assert.True(t, ok)
	_, ok = table.GetTyped(h, typeB)
	assert.False(t, ok, "wrong type must not resolve")

	val, err := table.Remove(h)
	require.NoError(t, err)
	assert.Equal(t, "test", val)
	assert.Zero(t, table.Len())

	_, err = table.Remove(h)
	assert.ErrorIs(t, err, ErrInvalidHandle, "double remove")
}

func TestTable_StaleHandleAfterReuse(t *testing.T) {
	table := NewTable()

	h1 := table.Insert(typeA, "first")
	_, err := table.Remove(h1)
	require.NoError(t, err)

	h2 := table.Insert(typeA, "second")
	require.NotZero(t, h2)
	assert.NotEqual(t, h1, h2, "reused slot gets a new generation")

	_, ok := table.Get(h1)
	assert.False(t, ok, "stale handle must not resolve to the new value")
	v, ok := table.Get(h2)
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestTable_ZeroHandle(t *testing.T) {
	table := NewTable()
	_, ok := table.Get(0)
	assert.False(t, ok)
	_, err := table.Remove(0)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.False(t, table.Borrow(0))
}

func TestTable_RemoveTyped(t *testing.T) {
	table := NewTable()
	h := table.Insert(typeA, 1)

	_, err := table.RemoveTyped(h, typeB)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.Equal(t, 1, table.Len())

	_, err = table.RemoveTyped(h, typeA)
	assert.NoError(t, err)
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	cancel := table.Subscribe(obs)

	h := table.Insert(typeA, "x")
	require.True(t, table.Borrow(h))
	require.True(t, table.ReturnBorrow(h))
	_, err := table.Remove(h)
	require.NoError(t, err)

	require.Len(t, obs.events, 4)
	assert.Equal(t, EventCreated, obs.events[0].Type)
	assert.Equal(t, "x", obs.events[0].Value)
	assert.Equal(t, EventBorrowed, obs.events[1].Type)
	assert.Equal(t, EventBorrowReturned, obs.events[2].Type)
	assert.Equal(t, EventDropped, obs.events[3].Type)
	for _, e := range obs.events {
		assert.Equal(t, h, e.Handle)
		assert.Equal(t, typeA, e.TypeID)
	}

	cancel()
	cancel()
	table.Insert(typeA, "y")
	assert.Len(t, obs.events, 4, "no events after cancel")
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	var created int
	cancel := table.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == EventCreated {
			created++
		}
	}))
	defer cancel()

	table.Insert(typeA, 1)
	table.Insert(typeB, 2)
	assert.Equal(t, 2, created)
}

func TestTable_BorrowBlocksRemove(t *testing.T) {
	table := NewTable()
	h := table.Insert(typeA, "m")
	require.True(t, table.Borrow(h))
	assert.True(t, table.Borrowed(h))

	_, err := table.Remove(h)
	assert.ErrorIs(t, err, ErrOutstandingBorrow)

	require.True(t, table.ReturnBorrow(h))
	assert.False(t, table.ReturnBorrow(h), "no borrow left to return")
	assert.False(t, table.Borrowed(h))

	_, err = table.Remove(h)
	assert.NoError(t, err)
}

func TestTable_Capacity(t *testing.T) {
	table := NewTable(WithCapacity(2))
	h1 := table.Insert(typeA, 1)
	h2 := table.Insert(typeA, 2)
	require.NotZero(t, h1)
	require.NotZero(t, h2)

	assert.Zero(t, table.Insert(typeA, 3), "full table returns the null handle")

	_, err := table.Remove(h1)
	require.NoError(t, err)
	assert.NotZero(t, table.Insert(typeA, 3))
}

func TestTable_Count(t *testing.T) {
	table := NewTable()
	table.Insert(typeA, 1)
	table.Insert(typeA, 2)
	table.Insert(typeB, 3)
	assert.Equal(t, 2, table.Count(typeA))
	assert.Equal(t, 1, table.Count(typeB))
	assert.Equal(t, 3, table.Len())
}

func TestTable_Clear(t *testing.T) {
	table := NewTable()
	table.Insert(typeA, 1)
	borrowed := table.Insert(typeA, 2)
	require.True(t, table.Borrow(borrowed))

	table.Clear()
	assert.Equal(t, 1, table.Len(), "borrowed resource survives Clear")
}

type dropCounter struct {
	drops int
}

func (d *dropCounter) Drop() {
	d.drops++
}

func TestTable_Dropper(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}
	h := table.Insert(typeA, d)

	_, err := table.Remove(h)
	require.NoError(t, err)
	assert.Equal(t, 1, d.drops)

	d2 := &dropCounter{}
	table.Insert(typeA, d2)
	require.NoError(t, table.Close())
	assert.Equal(t, 1, d2.drops, "Close drops live resources")
	assert.Zero(t, table.Insert(typeA, 1), "closed table rejects inserts")
}

func TestTypedTable(t *testing.T) {
	table := NewTable()
	strs := NewTypedTable[string](table, typeA)
	ints := NewTypedTable[int](table, typeB)

	hs := strs.Insert("hello")
	hi := ints.Insert(42)

	s, ok := strs.Get(hs)
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	_, ok = strs.Get(hi)
	assert.False(t, ok, "typed view rejects handles of other types")

	_, err := strs.Remove(hi)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	var seen []int
	ints.Each(func(_ Handle, v int) bool {
		seen = append(seen, v)
		return true
	})
	assert.Equal(t, []int{42}, seen)
	assert.Equal(t, 1, strs.Len())

	v, err := ints.Remove(hi)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Zero(t, ints.Len())
}
