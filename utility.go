package tablehook

import (
	"os"
	"unsafe"
)

var pageSize = uintptr(os.Getpagesize())

func makeSliceFromPointer(p uintptr, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), length)
}

func getPageAddr(ptr uintptr) uintptr {
	return ptr &^ (pageSize - 1)
}

// pagesOf lists the start of every page touched by [addr, addr+length).
func pagesOf(addr uintptr, length int) []uintptr {
	var pages []uintptr
	for p := getPageAddr(addr); p < addr+uintptr(length); p += pageSize {
		pages = append(pages, p)
	}
	return pages
}

// CopyMemory writes data to location, making the touched pages writable for
// the duration of the copy.
func CopyMemory(location uintptr, data []byte) error {
	return withWritable(location, len(data), func() {
		copy(makeSliceFromPointer(location, len(data)), data)
	})
}

// ReadMemory copies length bytes starting at location.
func ReadMemory(location uintptr, length int) []byte {
	out := make([]byte, length)
	copy(out, makeSliceFromPointer(location, length))
	return out
}
