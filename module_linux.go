package tablehook

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/brahma-adshonor/tablehook/internal/procmaps"
)

// FindModule resolves a loaded shared object or executable by file name or
// full path, as listed in /proc/self/maps.
func FindModule(name string) (*Module, error) {
	regions, err := procmaps.Self()
	if err != nil {
		return nil, &ModuleError{Module: name, Err: fmt.Errorf("%w: %v", ErrModuleInfo, err)}
	}

	m := &Module{Name: name}
	var spans []span
	for _, r := range regions {
		if !r.Matches(name) {
			continue
		}

		if m.Path == "" || r.Start < m.Base {
			m.Base = r.Start
		}
		if m.Path == "" {
			m.Path = r.Path
		}
		if r.End > m.End {
			m.End = r.End
		}
		if r.Readable() {
			spans = append(spans, span{start: r.Start, end: r.End})
		}
	}

	if m.Path == "" {
		return nil, &ModuleError{Module: name, Err: ErrNullModule}
	}
	if len(spans) == 0 {
		return nil, &ModuleError{Module: name, Err: fmt.Errorf("%w: no readable mapping", ErrModuleInfo)}
	}

	m.Size = m.End - m.Base
	m.spans = mergeSpans(spans)

	m.log().WithField("base", hex(m.Base)).WithField("size", m.Size).Info("module resolved")
	return m, nil
}

func (m *Module) symbols() (*ElfInfo, error) {
	m.symOnce.Do(func() {
		if m.Path == "" {
			m.symErr = errors.New("module has no backing file")
			return
		}
		m.syms, m.symErr = NewElfInfo(m.Path)
	})
	return m.syms, m.symErr
}

// bias converts link time addresses of the image into runtime addresses.
func (m *Module) bias(ei *ElfInfo) uintptr {
	return m.Base - uintptr(ei.LoadBase)
}

// Proc returns the runtime address of an exported symbol.
func (m *Module) Proc(symbol string) (uintptr, error) {
	ei, err := m.symbols()
	if err != nil {
		return 0, &ModuleError{Module: m.Name, Err: errors.Wrapf(ErrSymbolNotFound, "%s: %v", symbol, err)}
	}

	value, ok := ei.Lookup(symbol)
	if !ok {
		return 0, &ModuleError{Module: m.Name, Err: errors.Wrap(ErrSymbolNotFound, symbol)}
	}

	addr := m.bias(ei) + uintptr(value)
	m.log().WithField("symbol", symbol).WithField("address", hex(addr)).Debug("symbol resolved")
	return addr, nil
}

// Exports lists the dynamic symbols of the image. ELF has no export
// ordinals, so Ordinal is always zero.
func (m *Module) Exports() ([]Export, error) {
	ei, err := m.symbols()
	if err != nil {
		return nil, &ModuleError{Module: m.Name, Err: err}
	}

	bias := m.bias(ei)
	out := make([]Export, 0, len(ei.Dynamic))
	for _, s := range ei.Dynamic {
		out = append(out, Export{Name: s.Name, Address: bias + uintptr(s.Value)})
	}
	return out, nil
}
