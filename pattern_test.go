package tablehook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("68 ?? ? 34 e8")
	require.Nil(t, err)
	assert.Equal(t, []byte{0x68, 0, 0, 0x34, 0xe8}, p.Bytes)
	assert.Equal(t, []bool{true, false, false, true, true}, p.Mask)

	_, err = ParsePattern("68 zz")
	assert.Error(t, err)

	_, err = ParsePattern("  ")
	assert.Error(t, err)

	assert.Panics(t, func() { MustParsePattern("100") })
}

func TestFindPattern(t *testing.T) {
	m, _ := image(t, func(mem []byte) {
		copy(mem[10:], []byte{0x68, 0x11, 0x22, 0x33, 0x44, 0x90})
		copy(mem[50:], []byte{0x68, 0xaa, 0xbb, 0xcc, 0xdd, 0xe8})
	})

	addr, ok := m.FindPattern(MustParsePattern("68 ?? ?? ?? ?? E8"))
	assert.True(t, ok)
	assert.Equal(t, m.Base+50, addr)

	_, ok = m.FindPattern(MustParsePattern("68 ?? ?? ?? ?? CC"))
	assert.False(t, ok)

	_, ok = m.FindPattern(Pattern{Bytes: []byte{0x68}, Mask: nil})
	assert.False(t, ok)
}
