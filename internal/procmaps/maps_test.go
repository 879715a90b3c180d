package procmaps

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `55d4c0a00000-55d4c0a02000 r--p 00000000 fd:01 1835015                    /usr/bin/cat
55d4c0a02000-55d4c0a07000 r-xp 00002000 fd:01 1835015                    /usr/bin/cat
7f2b5c200000-7f2b5c228000 r--p 00000000 fd:01 1841338                    /usr/lib/x86_64-linux-gnu/libc.so.6
7f2b5c228000-7f2b5c3bd000 r-xp 00028000 fd:01 1841338                    /usr/lib/x86_64-linux-gnu/libc.so.6
7f2b5c3bd000-7f2b5c415000 ---p 001bd000 fd:01 1841338                    /usr/lib/x86_64-linux-gnu/libc.so.6
7f2b5c415000-7f2b5c419000 rw-p 00214000 fd:01 1841338                    /usr/lib/x86_64-linux-gnu/libc.so.6
7f2b5c419000-7f2b5c426000 rw-p 00000000 00:00 0
7ffd3a1f0000-7ffd3a211000 rw-p 00000000 00:00 0                          [stack]
7f2b5c500000-7f2b5c501000 r--p 00000000 fd:01 42                         /tmp/with space.so (deleted)
`

func TestParse(t *testing.T) {
	regions, err := Parse(strings.NewReader(sample))
	require.Nil(t, err)
	require.Equal(t, 9, len(regions))

	libc := regions[3]
	assert.Equal(t, uintptr(0x7f2b5c228000), libc.Start)
	assert.Equal(t, uintptr(0x7f2b5c3bd000), libc.End)
	assert.Equal(t, uint64(0x28000), libc.Offset)
	assert.True(t, libc.Readable())
	assert.False(t, libc.Writable())
	assert.True(t, libc.Executable())
	assert.True(t, libc.Matches("libc.so.6"))
	assert.True(t, libc.Matches("/usr/lib/x86_64-linux-gnu/libc.so.6"))
	assert.False(t, libc.Matches("libc.so"))

	assert.False(t, regions[4].Readable())
	assert.Equal(t, "", regions[6].Path)
	assert.False(t, regions[6].Matches(""))
	assert.Equal(t, "[stack]", regions[7].Path)
	assert.Equal(t, "/tmp/with space.so", regions[8].Path)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader("zz-10 r--p 0 0 0\n"))
	assert.NotNil(t, err)

	_, err = Parse(strings.NewReader("1000 r--p\n"))
	assert.NotNil(t, err)
}

func TestFind(t *testing.T) {
	regions, err := Parse(strings.NewReader(sample))
	require.Nil(t, err)

	r, ok := Find(regions, 0x55d4c0a02010)
	require.True(t, ok)
	assert.Equal(t, "r-xp", r.Perms)

	_, ok = Find(regions, 0x10)
	assert.False(t, ok)
}

func TestSelf(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("procfs is linux only")
	}

	regions, err := Self()
	require.Nil(t, err)
	assert.NotEmpty(t, regions)
}
