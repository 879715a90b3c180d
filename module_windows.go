package tablehook

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/Binject/debug/pe"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// FindModule resolves a module already loaded into the process.
func FindModule(name string) (*Module, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, &ModuleError{Module: name, Err: ErrNullModule}
	}

	var handle windows.Handle
	err = windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, namep, &handle)
	if err != nil || handle == 0 {
		return nil, &ModuleError{Module: name, Err: ErrNullModule}
	}

	var info windows.ModuleInfo
	err = windows.GetModuleInformation(windows.CurrentProcess(), handle, &info, uint32(unsafe.Sizeof(info)))
	if err != nil {
		return nil, &ModuleError{Module: name, Err: fmt.Errorf("%w: %v", ErrModuleInfo, err)}
	}

	m := NewModule(name, info.BaseOfDll, uintptr(info.SizeOfImage))
	m.handle = uintptr(handle)

	m.log().WithField("base", hex(m.Base)).WithField("size", m.Size).Info("module resolved")
	return m, nil
}

// Proc returns the address of an exported procedure.
func (m *Module) Proc(symbol string) (uintptr, error) {
	if m.handle == 0 {
		return 0, &ModuleError{Module: m.Name, Err: errors.Wrapf(ErrSymbolNotFound, "%s: module has no handle", symbol)}
	}

	addr, err := windows.GetProcAddress(windows.Handle(m.handle), symbol)
	if err != nil || addr == 0 {
		return 0, &ModuleError{Module: m.Name, Err: errors.Wrap(ErrSymbolNotFound, symbol)}
	}

	m.log().WithField("symbol", symbol).WithField("address", hex(addr)).Debug("symbol resolved")
	return addr, nil
}

// Exports parses the export directory of the mapped image.
func (m *Module) Exports() ([]Export, error) {
	file, err := pe.NewFileFromMemory(&memoryReaderAt{data: makeSliceFromPointer(m.Base, int(m.Size))})
	if err != nil {
		return nil, &ModuleError{Module: m.Name, Err: errors.Wrap(err, "parse image")}
	}
	defer file.Close()

	exports, err := file.Exports()
	if err != nil {
		return nil, &ModuleError{Module: m.Name, Err: errors.Wrap(err, "read exports")}
	}

	out := make([]Export, 0, len(exports))
	for _, e := range exports {
		out = append(out, Export{Name: e.Name, Ordinal: e.Ordinal, Address: m.Base + uintptr(e.VirtualAddress)})
	}
	return out, nil
}

type memoryReaderAt struct {
	data []byte
}

func (r *memoryReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 || off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n = copy(p, r.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}
