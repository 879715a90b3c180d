package tablehook

import (
	"syscall"
)

func callNative(fn uintptr, args ...uintptr) (uintptr, error) {
	ret, _, _ := syscall.SyscallN(fn, args...)
	return ret, nil
}
