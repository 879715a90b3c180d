package tablehook

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
)

// InstallFunc resolves what it needs and installs hooks through s.
type InstallFunc func(ctx context.Context, s *Session) error

// Run installs hooks with install, waits for ctx to be done and removes
// every hook again. Hooks are removed on every way out: a failed install, a
// normal stop, or a panic, which is re-raised once teardown has run.
func (s *Session) Run(ctx context.Context, install InstallFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("panic while hooked, tearing down")
			if terr := s.Teardown(); terr != nil {
				s.log.WithError(terr).Error("teardown after panic")
			}
			panic(r)
		}
	}()

	if err := install(ctx, s); err != nil {
		s.log.WithError(err).Error("hook installation failed")
		if terr := s.Teardown(); terr != nil {
			return stderrors.Join(err, terr)
		}
		return err
	}

	s.log.WithField("hooks", len(s.Installed())).Info("hooks installed, waiting for stop")
	<-ctx.Done()
	s.log.Info("stopping")

	return s.Teardown()
}

// Teardown removes all hooks, newest first. A hook that fails to come out
// does not stop the others; it stays recorded, with its addresses claimed,
// so a later Teardown retries it. All failures are returned together.
func (s *Session) Teardown() error {
	s.lock.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.lock.Unlock()

	var errs []error
	var stuck []installed
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.undo(); err != nil {
			s.log.WithError(err).WithField("hook", h.name).Error("unhook failed")
			errs = append(errs, errors.Wrapf(err, "unhook %s", h.name))
			stuck = append([]installed{h}, stuck...)
			continue
		}
		s.release(h.addr...)
		s.log.WithField("hook", h.name).Info("unhooked")
	}

	if len(stuck) > 0 {
		s.lock.Lock()
		s.hooks = append(stuck, s.hooks...)
		s.lock.Unlock()
	}

	return stderrors.Join(errs...)
}

// Close is Teardown, for use with defer.
func (s *Session) Close() error {
	return s.Teardown()
}
