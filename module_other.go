//go:build !linux && !windows

package tablehook

func FindModule(name string) (*Module, error) {
	return nil, &ModuleError{Module: name, Err: ErrUnsupported}
}

func (m *Module) Proc(symbol string) (uintptr, error) {
	return 0, &ModuleError{Module: m.Name, Err: ErrUnsupported}
}

func (m *Module) Exports() ([]Export, error) {
	return nil, &ModuleError{Module: m.Name, Err: ErrUnsupported}
}
