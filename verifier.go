package tablehook

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ThreadPolicy decides what a ThreadVerifier does on a mismatch.
type ThreadPolicy int

const (
	// ThreadPolicyLog logs the mismatch and carries on.
	ThreadPolicyLog ThreadPolicy = iota
	// ThreadPolicyPanic logs the mismatch and panics.
	ThreadPolicyPanic
)

func (p ThreadPolicy) String() string {
	switch p {
	case ThreadPolicyLog:
		return "log"
	case ThreadPolicyPanic:
		return "panic"
	}
	return fmt.Sprintf("ThreadPolicy(%d)", int(p))
}

func ParseThreadPolicy(s string) (ThreadPolicy, error) {
	switch strings.ToLower(s) {
	case "", "log":
		return ThreadPolicyLog, nil
	case "panic":
		return ThreadPolicyPanic, nil
	}
	return 0, errors.Errorf("unknown thread policy %q", s)
}

// ThreadVerifier records the OS thread of its first Check and reports every
// later Check made from another thread. It only detects; it synchronizes
// nothing.
type ThreadVerifier struct {
	policy     ThreadPolicy
	log        *logrus.Entry
	current    func() int64
	bound      atomic.Int64
	mismatches atomic.Uint64
}

// NewThreadVerifier returns a verifier logging through log, or the package
// logger when log is nil.
func NewThreadVerifier(policy ThreadPolicy, log *logrus.Entry) *ThreadVerifier {
	if log == nil {
		log = logger
	}
	return &ThreadVerifier{policy: policy, log: log, current: currentThreadID}
}

// Check binds the verifier to the calling thread on first use and returns
// false, after one diagnostic, when called from any other thread.
func (v *ThreadVerifier) Check() bool {
	tid := v.current()
	if v.bound.CompareAndSwap(0, tid) {
		v.log.WithField("thread", tid).Debug("hook thread recorded")
		return true
	}

	bound := v.bound.Load()
	if bound == tid {
		return true
	}

	n := v.mismatches.Add(1)
	v.log.WithFields(logrus.Fields{
		"thread":     tid,
		"bound":      bound,
		"mismatches": n,
	}).Error("hooked code running on a thread other than the hook thread")

	if v.policy == ThreadPolicyPanic {
		panic(fmt.Sprintf("tablehook: thread %d is not the hook thread %d", tid, bound))
	}
	return false
}

// Bound returns the recorded thread, false while still unset.
func (v *ThreadVerifier) Bound() (int64, bool) {
	tid := v.bound.Load()
	return tid, tid != 0
}

func (v *ThreadVerifier) Mismatches() uint64 {
	return v.mismatches.Load()
}
