package tablehook

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedThread(v *ThreadVerifier, tid *int64) {
	v.current = func() int64 { return *tid }
}

func TestThreadVerifierLog(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	v := NewThreadVerifier(ThreadPolicyLog, logrus.NewEntry(log))
	tid := int64(11)
	fixedThread(v, &tid)

	_, ok := v.Bound()
	assert.False(t, ok)

	assert.True(t, v.Check())
	assert.True(t, v.Check())
	bound, ok := v.Bound()
	assert.True(t, ok)
	assert.Equal(t, int64(11), bound)
	hook.Reset()

	tid = 12
	assert.False(t, v.Check())
	assert.False(t, v.Check())
	require.Len(t, hook.AllEntries(), 2)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.ErrorLevel, e.Level)
		assert.Equal(t, int64(12), e.Data["thread"])
		assert.Equal(t, int64(11), e.Data["bound"])
	}
	assert.Equal(t, uint64(2), v.Mismatches())

	tid = 11
	assert.True(t, v.Check())
	assert.Len(t, hook.AllEntries(), 2)
}

func TestThreadVerifierPanic(t *testing.T) {
	log, hook := test.NewNullLogger()
	v := NewThreadVerifier(ThreadPolicyPanic, logrus.NewEntry(log))
	tid := int64(3)
	fixedThread(v, &tid)

	assert.True(t, v.Check())
	tid = 4
	assert.Panics(t, func() { v.Check() })
	assert.Equal(t, uint64(1), v.Mismatches())
	assert.Len(t, hook.AllEntries(), 1)
}

func TestParseThreadPolicy(t *testing.T) {
	p, err := ParseThreadPolicy("PANIC")
	require.Nil(t, err)
	assert.Equal(t, ThreadPolicyPanic, p)
	assert.Equal(t, "panic", p.String())

	p, err = ParseThreadPolicy("")
	require.Nil(t, err)
	assert.Equal(t, ThreadPolicyLog, p)

	_, err = ParseThreadPolicy("ignore")
	assert.Error(t, err)
	assert.Equal(t, "ThreadPolicy(7)", ThreadPolicy(7).String())
}
