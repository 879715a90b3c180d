package tablehook

import (
	"bytes"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CreateInterfaceSymbol is the exported interface factory.
const CreateInterfaceSymbol = "CreateInterface"

// Factory creates named interfaces. The name is NUL terminated and status
// receives the factory's return code.
type Factory interface {
	Create(name *byte, status *int32) uintptr
}

// FactoryFunc adapts a Go function to Factory.
type FactoryFunc func(name *byte, status *int32) uintptr

func (f FactoryFunc) Create(name *byte, status *int32) uintptr {
	return f(name, status)
}

// nativeFactory calls an exported factory through the C calling convention.
type nativeFactory struct {
	addr uintptr
}

func (f nativeFactory) Create(name *byte, status *int32) uintptr {
	ret, err := callNative(f.addr, uintptr(unsafe.Pointer(name)), uintptr(unsafe.Pointer(status)))
	if err != nil {
		logger.WithError(err).WithField("address", hex(f.addr)).Error("call interface factory")
		return 0
	}
	return ret
}

// FactoryModule is a module together with the address of its exported
// interface factory.
type FactoryModule struct {
	*Module
	factory uintptr
}

// OpenFactoryModule resolves a loaded module and its CreateInterface export.
func OpenFactoryModule(name string) (*FactoryModule, error) {
	m, err := FindModule(name)
	if err != nil {
		return nil, err
	}

	factory, err := m.Proc(CreateInterfaceSymbol)
	if err != nil {
		return nil, err
	}

	return &FactoryModule{Module: m, factory: factory}, nil
}

func (fm *FactoryModule) Factory() Factory {
	return nativeFactory{addr: fm.factory}
}

// Interface asks the module's factory for name and returns the object
// address, checked to be non null and word aligned.
func (fm *FactoryModule) Interface(name string) (uintptr, error) {
	return createInterface[uintptr](fm.Factory(), fm.Name, name)
}

// CreateInterface asks f for the interface called name and returns it as a
// *T. The layout of T is taken on trust; only null and alignment are
// checked. Factories hand out singletons, so the pointer stays valid for the
// life of the process.
func CreateInterface[T any](f Factory, module, name string) (*T, error) {
	addr, err := createInterface[T](f, module, name)
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(addr)), nil
}

func createInterface[T any](f Factory, module, name string) (uintptr, error) {
	cname, err := cString(name)
	if err != nil {
		return 0, &ModuleError{Module: module, Err: err}
	}

	var status int32
	addr := f.Create(&cname[0], &status)
	runtime.KeepAlive(cname)

	entry := logger.WithFields(logrus.Fields{
		"module":    module,
		"interface": name,
		"status":    status,
		"address":   hex(addr),
	})

	if addr == 0 {
		entry.Error("interface factory returned null")
		return 0, &ModuleError{Module: module, Err: errors.Wrapf(ErrNullInterface, "interface %q", name)}
	}
	if err := CheckPointer[T](addr); err != nil {
		entry.WithError(err).Error("interface factory returned bad pointer")
		return 0, &ModuleError{Module: module, Err: fmt.Errorf("%w %q: %w", ErrBadInterface, name, err)}
	}

	entry.Info("interface created")
	return addr, nil
}

// cString returns s as NUL terminated bytes.
func cString(s string) ([]byte, error) {
	if i := bytes.IndexByte([]byte(s), 0); i >= 0 {
		return nil, &StrConversionError{Name: s, Index: i}
	}

	b := make([]byte, len(s)+1)
	copy(b, s)
	return b, nil
}
