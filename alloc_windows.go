package tablehook

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

func (a *PageAllocator) Alloc(size int) (uintptr, error) {
	if size <= 0 {
		return 0, errors.Errorf("invalid allocation size %d", size)
	}

	n := roundToPage(size)
	addr, err := windows.VirtualAlloc(0, uintptr(n), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, errors.Wrapf(err, "VirtualAlloc %d bytes", n)
	}

	a.lock.Lock()
	defer a.lock.Unlock()
	if a.blocks == nil {
		a.blocks = make(map[uintptr][]byte)
	}
	a.blocks[addr] = makeSliceFromPointer(addr, n)

	return addr, nil
}

func (a *PageAllocator) Free(addr uintptr, size int) error {
	a.lock.Lock()
	_, ok := a.blocks[addr]
	delete(a.blocks, addr)
	a.lock.Unlock()

	if !ok {
		return errors.Errorf("free of unknown block %#x", addr)
	}
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}
