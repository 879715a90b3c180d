//go:build !windows && !((darwin || freebsd || linux) && (amd64 || arm64))

package tablehook

func callNative(fn uintptr, args ...uintptr) (uintptr, error) {
	return 0, ErrUnsupported
}
