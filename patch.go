package tablehook

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Patch is a single in-place write of a T whose previous value is kept so
// it can be written back.
//
// Patches carry no locking; callers serialize NewPatch and Restore on a given
// address.
type Patch[T any] struct {
	addr     uintptr
	old      T
	restored bool
}

// NewPatch writes value at addr and returns a handle holding the value that
// was there before. Nothing is written when addr is null or not aligned for T.
func NewPatch[T any](addr uintptr, value T) (*Patch[T], error) {
	if err := CheckPointer[T](addr); err != nil {
		return nil, err
	}

	old, err := swap(addr, value)
	if err != nil {
		return nil, err
	}

	return &Patch[T]{addr: addr, old: old}, nil
}

// Restore writes the captured value back. It must run before any memory the
// patched value points at is released.
func (p *Patch[T]) Restore() error {
	if p.restored {
		return ErrAlreadyRestored
	}

	if _, err := swap(p.addr, p.old); err != nil {
		return err
	}
	p.restored = true
	return nil
}

func (p *Patch[T]) Address() uintptr { return p.addr }

// Old returns the value that was at the address before the patch.
func (p *Patch[T]) Old() T { return p.old }

func (p *Patch[T]) Restored() bool { return p.restored }

func swap[T any](addr uintptr, value T) (old T, err error) {
	size := int(unsafe.Sizeof(value))
	err = withWritable(addr, size, func() {
		ptr := (*T)(unsafe.Pointer(addr))
		old = *ptr
		*ptr = value
	})
	if err != nil {
		return old, errors.Wrapf(err, "patch %d bytes at %#x", size, addr)
	}
	return old, nil
}

// CheckPointer fails with ErrNullPointer for a null addr and with an
// *AlignmentError when addr is not aligned for T.
func CheckPointer[T any](addr uintptr) error {
	if addr == 0 {
		return ErrNullPointer
	}

	var zero T
	align := unsafe.Alignof(zero)
	if rem := addr % align; rem != 0 {
		return &AlignmentError{Address: addr, Required: align, Offset: align - rem}
	}
	return nil
}
