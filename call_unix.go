//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package tablehook

import (
	"github.com/ebitengine/purego"
)

func callNative(fn uintptr, args ...uintptr) (uintptr, error) {
	ret, _, _ := purego.SyscallN(fn, args...)
	return ret, nil
}
