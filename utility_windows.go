package tablehook

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// withWritable runs fn with [addr, addr+length) writable.
func withWritable(addr uintptr, length int, fn func()) error {
	var oldPerms uint32
	err := windows.VirtualProtect(addr, uintptr(length), windows.PAGE_EXECUTE_READWRITE, &oldPerms)
	if err != nil {
		return errors.Wrapf(err, "VirtualProtect %#x", addr)
	}

	fn()

	// the write has happened; a protection that cannot be put back is
	// only reported
	var tmp uint32
	if err := windows.VirtualProtect(addr, uintptr(length), oldPerms, &tmp); err != nil {
		logger.WithError(err).WithField("address", hex(addr)).Warn("page left writable")
	}
	return nil
}
