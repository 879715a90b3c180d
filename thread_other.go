//go:build !linux && !windows

package tablehook

// No portable thread id is available here; every caller looks like the
// hook thread.
func currentThreadID() int64 {
	return 1
}
