package tablehook

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Pattern is a byte signature where some positions match anything.
type Pattern struct {
	Bytes []byte
	// Mask[i] is true when Bytes[i] has to match.
	Mask []bool
}

// ParsePattern reads a signature like "68 ?? ?? ?? ?? E8". "?" and "??"
// are wildcards.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	for _, tok := range strings.Fields(s) {
		if tok == "?" || tok == "??" {
			p.Bytes = append(p.Bytes, 0)
			p.Mask = append(p.Mask, false)
			continue
		}

		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return Pattern{}, errors.Wrapf(err, "pattern token %q", tok)
		}
		p.Bytes = append(p.Bytes, byte(b))
		p.Mask = append(p.Mask, true)
	}

	if len(p.Bytes) == 0 {
		return Pattern{}, errors.New("empty pattern")
	}
	return p, nil
}

// MustParsePattern is ParsePattern for signatures fixed at compile time.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) matches(window []byte) bool {
	for i, b := range p.Bytes {
		if p.Mask[i] && window[i] != b {
			return false
		}
	}
	return true
}

// FindPattern returns the first address where p matches.
func (m *Module) FindPattern(p Pattern) (uintptr, bool) {
	n := len(p.Bytes)
	if n == 0 || len(p.Mask) != n {
		return 0, false
	}

	for _, s := range m.spans {
		mem := makeSliceFromPointer(s.start, int(s.end-s.start))
		for i := 0; i+n <= len(mem); i++ {
			if p.matches(mem[i : i+n]) {
				return s.start + uintptr(i), true
			}
		}
	}
	return 0, false
}
