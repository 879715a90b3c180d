package tablehook

import (
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestThreadVerifierOSThreads(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log, hook := test.NewNullLogger()
	v := NewThreadVerifier(ThreadPolicyLog, logrus.NewEntry(log))
	assert.True(t, v.Check())

	done := make(chan bool)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		done <- v.Check()
	}()

	assert.False(t, <-done)
	assert.True(t, v.Check())
	assert.Equal(t, uint64(1), v.Mismatches())
	assert.Len(t, hook.AllEntries(), 1)
}
