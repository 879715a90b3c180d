package tablehook

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// pageMem returns size bytes of page memory released when the test ends.
func pageMem(t *testing.T, size int) ([]byte, uintptr) {
	t.Helper()

	addr, err := defaultAllocator.Alloc(size)
	require.Nil(t, err)
	t.Cleanup(func() {
		_ = defaultAllocator.Free(addr, size)
	})

	return makeSliceFromPointer(addr, size), addr
}

// fakeObject lays out an object whose first word points at a table holding
// entries. Both live in page memory.
func fakeObject(t *testing.T, entries ...uintptr) (object, table uintptr) {
	t.Helper()

	_, base := pageMem(t, int(pageSize))
	object = base
	table = base + 256

	for i, e := range entries {
		WriteWord(SlotAddr(table, i), e)
	}
	WriteWord(object, table)
	return object, table
}

type testOrdinal int

const (
	ordFirst testOrdinal = iota
	ordSecond
	ordThird
	ordCount
)

type method func(this uintptr, x int) int

//go:noinline
func entry0(this uintptr, x int) int { return x + 100 }

//go:noinline
func entry1(this uintptr, x int) int { return x + 200 }

//go:noinline
func entry2(this uintptr, x int) int { return x + 300 }

func entries() []uintptr {
	return []uintptr{FuncAddr(entry0), FuncAddr(entry1), FuncAddr(entry2)}
}

func ptrOf(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}
