package tablehook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func funcTable(t *testing.T) uintptr {
	t.Helper()

	_, table := pageMem(t, int(pageSize))
	for i, e := range entries() {
		WriteWord(SlotAddr(table, i), e)
	}
	return table
}

func TestFuncTableHook(t *testing.T) {
	table := funcTable(t)

	h, err := NewFuncTableHook(table, ordCount, map[testOrdinal]uintptr{
		ordFirst: FuncAddr(negated),
		ordThird: FuncAddr(negated),
	})
	require.Nil(t, err)

	assert.Equal(t, -9, Slot[method](table, ordFirst)(0, 9))
	assert.Equal(t, 209, Slot[method](table, ordSecond)(0, 9))
	assert.Equal(t, -9, Slot[method](table, ordThird)(0, 9))

	assert.Equal(t, entries(), h.Snapshot())
	assert.Equal(t, FuncAddr(entry2), h.Original(ordThird))
	assert.Equal(t, uintptr(0), h.Original(ordCount))
	assert.Equal(t, table, h.Table())

	forward := Func[method](h.Original(ordFirst))
	assert.Equal(t, 109, forward(0, 9))

	require.Nil(t, h.Unhook())
	for i, e := range entries() {
		assert.Equal(t, e, Entry(table, i))
	}
	assert.ErrorIs(t, h.Unhook(), ErrAlreadyRestored)
}

func TestFuncTableSnapshotIsCopy(t *testing.T) {
	table := funcTable(t)

	h, err := NewFuncTableHook(table, ordCount, map[testOrdinal]uintptr{ordSecond: FuncAddr(negated)})
	require.Nil(t, err)
	defer h.Unhook()

	snap := h.Snapshot()
	snap[ordSecond] = 0
	assert.Equal(t, FuncAddr(entry1), h.Original(ordSecond))
}

func TestFuncTableRejectsBeforeWriting(t *testing.T) {
	table := funcTable(t)

	_, err := NewFuncTableHook(table, ordCount, map[testOrdinal]uintptr{
		ordFirst: FuncAddr(negated),
		ordCount: FuncAddr(negated),
	})
	assert.ErrorIs(t, err, ErrOrdinalRange)

	_, err = NewFuncTableHook(table, ordCount, map[testOrdinal]uintptr{ordSecond: 0})
	assert.ErrorIs(t, err, ErrNullPointer)

	_, err = NewFuncTableHook(0, ordCount, map[testOrdinal]uintptr{ordSecond: FuncAddr(negated)})
	assert.ErrorIs(t, err, ErrNullPointer)

	for i, e := range entries() {
		assert.Equal(t, e, Entry(table, i))
	}
}
