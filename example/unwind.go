package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
)

// waitContext returns a context that is done once the user asks to unhook:
// on SIGINT/SIGTERM, or on a line read from stdin.
func waitContext(parent context.Context, kind string) (context.Context, context.CancelFunc, error) {
	switch kind {
	case "signal":
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		log.Info("hooked, send SIGINT or SIGTERM to unhook")
		return ctx, stop, nil

	case "stdin":
		ctx, cancel := context.WithCancel(parent)
		go func() {
			defer cancel()
			r := bufio.NewReader(os.Stdin)
			if _, err := r.ReadString('\n'); err != nil {
				log.WithError(err).Warn("stdin closed")
			}
		}()
		log.Info("hooked, press enter to unhook")
		return ctx, cancel, nil
	}

	return nil, nil, errors.Errorf("unknown wait mode %q", kind)
}
