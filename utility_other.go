//go:build !linux && !windows

package tablehook

func withWritable(addr uintptr, length int, fn func()) error {
	return ErrUnsupported
}
