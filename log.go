package tablehook

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

var logger = logrus.NewEntry(logrus.StandardLogger()).WithField("pkg", "tablehook")

// SetLogger replaces the entry every component logs through.
func SetLogger(l *logrus.Entry) {
	if l == nil {
		l = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = l.WithField("pkg", "tablehook")
}

func hex(addr uintptr) string {
	return fmt.Sprintf("%#x", addr)
}
