package tablehook

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// image returns a module over one page of memory filled by fill.
func image(t *testing.T, fill func(mem []byte)) (*Module, []byte) {
	t.Helper()

	mem, base := pageMem(t, int(pageSize))
	fill(mem)
	return NewModule("image.so", base, uintptr(len(mem))), mem
}

func TestFindBytes(t *testing.T) {
	m, _ := image(t, func(mem []byte) {
		copy(mem[100:], "\xde\xad\xbe\xef")
		copy(mem[200:], "\xde\xad\xbe\xef")
	})

	addr, ok := m.FindBytes([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.True(t, ok)
	assert.Equal(t, m.Base+100, addr)

	_, ok = m.FindBytes([]byte{0xfe, 0xed, 0xfa, 0xce})
	assert.False(t, ok)

	_, ok = m.FindBytes(nil)
	assert.False(t, ok)

	_, err := m.Locate("magic", []byte{0xfe, 0xed})
	assert.ErrorIs(t, err, ErrPatternNotFound)
	var merr *ModuleError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "image.so", merr.Module)
}

func TestFindString(t *testing.T) {
	m, _ := image(t, func(mem []byte) {
		copy(mem[40:], "ScreenFadeX")
		copy(mem[80:], "ScreenFade\x00")
	})

	addr, ok := m.FindString("ScreenFade")
	assert.True(t, ok)
	assert.Equal(t, m.Base+40, addr)

	addr, ok = m.FindString("ScreenFade\x00")
	assert.True(t, ok)
	assert.Equal(t, m.Base+80, addr)

	_, ok = m.FindString("FadeScreen")
	assert.False(t, ok)
}

func TestFindPushReferenceAndReadPointer(t *testing.T) {
	const str = 0x12345678

	var target uintptr
	m, mem := image(t, func(mem []byte) {
		copy(mem[300:], []byte{0x90, opPushImm32, 0x78, 0x56, 0x34, 0x12, 0xe8})
	})
	target = m.Base + 0x200
	binary.LittleEndian.PutUint64(mem[0x101:], uint64(target))

	push, ok := m.FindPushReference(str)
	assert.True(t, ok)
	assert.Equal(t, m.Base+301, push)

	_, ok = m.FindPushReference(0x1_0000_0000)
	assert.False(t, ok)

	if wordSize == 8 {
		ptr, err := m.ReadPointer(m.Base + 0x101)
		require.Nil(t, err)
		assert.Equal(t, target, ptr)
	}

	_, err := m.ReadPointer(m.Base + 0x400)
	assert.ErrorIs(t, err, ErrNullPointer)

	binary.LittleEndian.PutUint64(mem[0x500:], uint64(target+3))
	_, err = m.ReadPointer(m.Base + 0x500)
	assert.ErrorIs(t, err, ErrUnalignedPointer)

	_, err = m.ReadPointer(m.End - 2)
	assert.Error(t, err)
}

func TestMergeSpans(t *testing.T) {
	spans := mergeSpans([]span{{0x3000, 0x4000}, {0x1000, 0x2000}, {0x2000, 0x2800}, {0x5000, 0x6000}})
	assert.Equal(t, []span{{0x1000, 0x2800}, {0x3000, 0x4000}, {0x5000, 0x6000}}, spans)
}

func TestFindBytesSkipsGaps(t *testing.T) {
	mem, base := pageMem(t, 2*int(pageSize))
	copy(mem[pageSize+16:], "needle")
	copy(mem[16:], "needle")

	m := NewModule("gappy", base, 2*pageSize)
	m.spans = []span{{start: base + pageSize, end: base + 2*pageSize}}

	addr, ok := m.FindString("needle")
	assert.True(t, ok)
	assert.Equal(t, base+pageSize+16, addr)
}
