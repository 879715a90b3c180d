package tablehook

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goString(p *byte) string {
	var b []byte
	for ; *p != 0; p = (*byte)(unsafe.Add(unsafe.Pointer(p), 1)) {
		b = append(b, *p)
	}
	return string(b)
}

type panel struct {
	vtable uintptr
}

func TestCreateInterface(t *testing.T) {
	object, table := fakeObject(t, entries()...)

	var asked []string
	factory := FactoryFunc(func(name *byte, status *int32) uintptr {
		asked = append(asked, goString(name))
		*status = 0
		if goString(name) == "VGUI_Panel007" {
			return object
		}
		*status = 1
		return 0
	})

	p, err := CreateInterface[panel](factory, "vgui2.so", "VGUI_Panel007")
	require.Nil(t, err)
	assert.Equal(t, table, p.vtable)
	assert.Equal(t, object, uintptr(unsafe.Pointer(p)))

	_, err = CreateInterface[panel](factory, "vgui2.so", "VGUI_Panel008")
	assert.ErrorIs(t, err, ErrNullInterface)
	var merr *ModuleError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "vgui2.so", merr.Module)

	assert.Equal(t, []string{"VGUI_Panel007", "VGUI_Panel008"}, asked)
}

func TestCreateInterfaceBadName(t *testing.T) {
	called := false
	factory := FactoryFunc(func(name *byte, status *int32) uintptr {
		called = true
		return 0
	})

	_, err := CreateInterface[panel](factory, "client.so", "VClient\x00017")
	assert.ErrorIs(t, err, ErrStrConversion)
	var serr *StrConversionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 7, serr.Index)
	assert.False(t, called)
}

func TestCreateInterfaceMisaligned(t *testing.T) {
	_, base := pageMem(t, int(pageSize))
	factory := FactoryFunc(func(name *byte, status *int32) uintptr {
		return base + 1
	})

	_, err := CreateInterface[panel](factory, "client.so", "VClient017")
	assert.ErrorIs(t, err, ErrBadInterface)
	assert.ErrorIs(t, err, ErrUnalignedPointer)

	var aerr *AlignmentError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, base+1, aerr.Address)

	b, err := CreateInterface[byte](factory, "client.so", "VClient017")
	require.Nil(t, err)
	assert.Equal(t, base+1, uintptr(unsafe.Pointer(b)))
}

func TestCString(t *testing.T) {
	b, err := cString("abc")
	require.Nil(t, err)
	assert.Equal(t, []byte("abc\x00"), b)

	b, err = cString("")
	require.Nil(t, err)
	assert.Equal(t, []byte{0}, b)
}
