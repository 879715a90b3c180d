package tablehook

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Module is a loaded image of the current process. Only address metadata
// is held; the mapped memory belongs to the loader.
type Module struct {
	Name string
	Path string
	Base uintptr
	Size uintptr
	End  uintptr

	handle uintptr
	spans  []span

	symOnce sync.Once
	syms    *ElfInfo
	symErr  error
}

// span is a readable stretch of the image.
type span struct {
	start uintptr
	end   uintptr
}

// Export is one exported symbol of a module.
type Export struct {
	Name    string
	// Ordinal is the PE export ordinal; zero for ELF images.
	Ordinal uint32
	Address uintptr
}

// NewModule describes an image already mapped at [base, base+size), all of
// it readable.
func NewModule(name string, base, size uintptr) *Module {
	return &Module{
		Name:  name,
		Base:  base,
		Size:  size,
		End:   base + size,
		spans: []span{{start: base, end: base + size}},
	}
}

// mergeSpans sorts spans and joins the ones that touch.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var out []span
	for _, s := range spans {
		if n := len(out); n > 0 && out[n-1].end >= s.start {
			if s.end > out[n-1].end {
				out[n-1].end = s.end
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func (m *Module) log() *logrus.Entry {
	return logger.WithField("module", m.Name)
}

// Contains reports whether addr lies inside the image.
func (m *Module) Contains(addr uintptr) bool {
	return addr >= m.Base && addr < m.End
}

// FindBytes returns the address of the first occurrence of pattern in the
// image. Unreadable gaps of the image are skipped.
func (m *Module) FindBytes(pattern []byte) (uintptr, bool) {
	if len(pattern) == 0 {
		return 0, false
	}

	for _, s := range m.spans {
		mem := makeSliceFromPointer(s.start, int(s.end-s.start))
		if idx := bytes.Index(mem, pattern); idx >= 0 {
			return s.start + uintptr(idx), true
		}
	}
	return 0, false
}

// FindString searches for the raw bytes of s. Append "\x00" to s when the
// terminator has to match as well.
func (m *Module) FindString(s string) (uintptr, bool) {
	return m.FindBytes([]byte(s))
}

// Locate is FindBytes reporting a miss as ErrPatternNotFound, with what
// naming the pattern in the error.
func (m *Module) Locate(what string, pattern []byte) (uintptr, error) {
	addr, ok := m.FindBytes(pattern)
	if !ok {
		return 0, &ModuleError{Module: m.Name, Err: errors.Wrap(ErrPatternNotFound, what)}
	}

	m.log().WithFields(logrus.Fields{"pattern": what, "address": hex(addr)}).Debug("pattern found")
	return addr, nil
}

// FindPushReference finds a `push imm32` instruction whose immediate is
// addr. Only addresses below 4GiB can be referenced this way.
func (m *Module) FindPushReference(addr uintptr) (uintptr, bool) {
	if uint64(addr) > 0xffffffff {
		return 0, false
	}

	code := []byte{opPushImm32, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(code[1:], uint32(addr))
	return m.FindBytes(code)
}

// ReadPointer reads a possibly unaligned pointer stored at addr and checks
// the value is non null and word aligned.
func (m *Module) ReadPointer(addr uintptr) (uintptr, error) {
	if !m.Contains(addr) || !m.Contains(addr+wordSize-1) {
		return 0, &ModuleError{Module: m.Name, Err: errors.Errorf("pointer slot %#x outside the image", addr)}
	}

	raw := ReadMemory(addr, int(wordSize))
	var v uintptr
	if wordSize == 8 {
		v = uintptr(binary.LittleEndian.Uint64(raw))
	} else {
		v = uintptr(binary.LittleEndian.Uint32(raw))
	}

	if err := CheckPointer[uintptr](v); err != nil {
		return 0, &ModuleError{Module: m.Name, Err: errors.Wrapf(err, "pointer read at %#x", addr)}
	}
	return v, nil
}
