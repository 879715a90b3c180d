//go:build !windows

package tablehook

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func (a *PageAllocator) Alloc(size int) (uintptr, error) {
	if size <= 0 {
		return 0, errors.Errorf("invalid allocation size %d", size)
	}

	mem, err := unix.Mmap(-1, 0, roundToPage(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, errors.Wrapf(err, "mmap %d bytes", size)
	}

	addr := uintptr(unsafe.Pointer(&mem[0]))

	a.lock.Lock()
	defer a.lock.Unlock()
	if a.blocks == nil {
		a.blocks = make(map[uintptr][]byte)
	}
	a.blocks[addr] = mem

	return addr, nil
}

func (a *PageAllocator) Free(addr uintptr, size int) error {
	a.lock.Lock()
	mem, ok := a.blocks[addr]
	delete(a.blocks, addr)
	a.lock.Unlock()

	if !ok {
		return errors.Errorf("free of unknown block %#x", addr)
	}
	return unix.Munmap(mem)
}
