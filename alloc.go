package tablehook

import (
	"sync"
)

// Allocator hands out memory outside the Go heap. Cloned dispatch tables
// live there because their address is stored into foreign objects.
type Allocator interface {
	Alloc(size int) (uintptr, error)
	Free(addr uintptr, size int) error
}

// PageAllocator maps whole pages per allocation.
type PageAllocator struct {
	lock   sync.Mutex
	blocks map[uintptr][]byte
}

var defaultAllocator = &PageAllocator{}

func roundToPage(size int) int {
	ps := int(pageSize)
	return (size + ps - 1) / ps * ps
}
