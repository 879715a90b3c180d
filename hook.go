package tablehook

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Unhooker is an installed hook that can be taken back out.
type Unhooker interface {
	Unhook() error
}

// Config carries the settings of a Session.
type Config struct {
	ThreadPolicy ThreadPolicy
	// Allocator backs cloned dispatch tables; PageAllocator when nil.
	Allocator Allocator
	// Logger defaults to the package logger.
	Logger *logrus.Entry
}

type installed struct {
	name string
	addr []uintptr
	undo func() error
}

// Session owns every hook installed through it and removes them in reverse
// order of installation. It is also the context handed to replacement
// functions: they reach their originals and the verifier through it rather
// than through package state.
type Session struct {
	cfg      Config
	log      *logrus.Entry
	Verifier *ThreadVerifier

	lock    sync.Mutex
	hooks   []installed
	claimed map[uintptr]string
	values  map[string]interface{}
}

func NewSession(cfg Config) *Session {
	if cfg.Allocator == nil {
		cfg.Allocator = defaultAllocator
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}

	return &Session{
		cfg:      cfg,
		log:      cfg.Logger,
		Verifier: NewThreadVerifier(cfg.ThreadPolicy, cfg.Logger),
		claimed:  make(map[uintptr]string),
		values:   make(map[string]interface{}),
	}
}

func (s *Session) Logger() *logrus.Entry { return s.log }

// claim reserves addrs for the hook called name. Nothing is reserved when
// any of them is already taken.
func (s *Session) claim(name string, addrs ...uintptr) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, a := range addrs {
		if owner, ok := s.claimed[a]; ok {
			return errors.Wrapf(ErrDoubleHook, "%s: %#x already hooked by %s", name, a, owner)
		}
	}
	for _, a := range addrs {
		s.claimed[a] = name
	}
	return nil
}

func (s *Session) release(addrs ...uintptr) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, a := range addrs {
		delete(s.claimed, a)
	}
}

func (s *Session) push(name string, addrs []uintptr, undo func() error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.hooks = append(s.hooks, installed{name: name, addr: addrs, undo: undo})
}

// Store keeps v under key for replacement functions to pick up with Load.
func (s *Session) Store(key string, v interface{}) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.values[key] = v
}

// Load returns the value stored under key, false when it is missing or not
// a T.
func Load[T any](s *Session, key string) (T, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	v, ok := s.values[key].(T)
	return v, ok
}

// Track hands an Unhooker installed elsewhere to the session.
func (s *Session) Track(name string, addr uintptr, h Unhooker) error {
	if err := s.claim(name, addr); err != nil {
		return err
	}
	s.push(name, []uintptr{addr}, h.Unhook)
	return nil
}

// Installed lists the hook names in installation order.
func (s *Session) Installed() []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	names := make([]string, 0, len(s.hooks))
	for _, h := range s.hooks {
		names = append(names, h.name)
	}
	return names
}

// InstallVTable hooks the dispatch table of object and records the hook.
func InstallVTable[O ~int](s *Session, name string, object uintptr, entries O, overrides map[O]uintptr) (*VTableHook[O], error) {
	if err := s.claim(name, object); err != nil {
		return nil, err
	}

	h, err := NewVTableHook(object, entries, overrides, WithAllocator(s.cfg.Allocator))
	if err != nil {
		s.release(object)
		return nil, errors.Wrap(err, name)
	}

	s.push(name, []uintptr{object}, h.Unhook)
	s.log.WithField("hook", name).Info("installed")
	return h, nil
}

// InstallFuncTable hooks entries of a flat function table and records the
// hook. Every overridden slot is claimed separately.
func InstallFuncTable[O ~int](s *Session, name string, table uintptr, entries O, overrides map[O]uintptr) (*FuncTableHook[O], error) {
	var slots []uintptr
	for _, ord := range sortedOrdinals(overrides) {
		slots = append(slots, SlotAddr(table, ord))
	}
	if err := s.claim(name, slots...); err != nil {
		return nil, err
	}

	h, err := NewFuncTableHook(table, entries, overrides)
	if err != nil {
		s.release(slots...)
		return nil, errors.Wrap(err, name)
	}

	s.push(name, slots, h.Unhook)
	s.log.WithField("hook", name).Info("installed")
	return h, nil
}

// InstallPatch applies a single patch and records it.
func InstallPatch[T any](s *Session, name string, addr uintptr, value T) (*Patch[T], error) {
	if err := s.claim(name, addr); err != nil {
		return nil, err
	}

	p, err := NewPatch(addr, value)
	if err != nil {
		s.release(addr)
		return nil, errors.Wrap(err, name)
	}

	s.push(name, []uintptr{addr}, p.Restore)
	s.log.WithField("hook", name).Info("installed")
	return p, nil
}
