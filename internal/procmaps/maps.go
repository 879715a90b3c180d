// Package procmaps reads the memory map of the current process from
// /proc/self/maps.
package procmaps

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Region is one line of /proc/<pid>/maps.
type Region struct {
	Start  uintptr
	End    uintptr
	Perms  string
	Offset uint64
	Path   string
}

func (r Region) Size() uintptr { return r.End - r.Start }

func (r Region) Readable() bool { return len(r.Perms) > 0 && r.Perms[0] == 'r' }

func (r Region) Writable() bool { return len(r.Perms) > 1 && r.Perms[1] == 'w' }

func (r Region) Executable() bool { return len(r.Perms) > 2 && r.Perms[2] == 'x' }

func (r Region) Contains(addr uintptr) bool { return addr >= r.Start && addr < r.End }

// Matches reports whether the region backs the file name, compared either
// against the full path or its base name.
func (r Region) Matches(name string) bool {
	if r.Path == "" || name == "" {
		return false
	}
	return r.Path == name || filepath.Base(r.Path) == name
}

// Self reads the maps of the calling process.
func Self() ([]Region, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

func Parse(r io.Reader) ([]Region, error) {
	var regions []Region

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		region, err := parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("maps line %d: %w", line, err)
		}
		regions = append(regions, region)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return regions, nil
}

func parseLine(text string) (Region, error) {
	// start-end perms offset dev inode [path]
	fields := strings.Fields(text)
	if len(fields) < 5 {
		return Region{}, fmt.Errorf("malformed entry %q", text)
	}

	bounds := strings.SplitN(fields[0], "-", 2)
	if len(bounds) != 2 {
		return Region{}, fmt.Errorf("malformed range %q", fields[0])
	}

	start, err := strconv.ParseUint(bounds[0], 16, 64)
	if err != nil {
		return Region{}, err
	}
	end, err := strconv.ParseUint(bounds[1], 16, 64)
	if err != nil {
		return Region{}, err
	}
	offset, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return Region{}, err
	}

	region := Region{
		Start:  uintptr(start),
		End:    uintptr(end),
		Perms:  fields[1],
		Offset: offset,
	}

	// paths may contain spaces, e.g. "/tmp/a b.so (deleted)"
	if len(fields) > 5 {
		idx := strings.Index(text, fields[5])
		region.Path = strings.TrimSuffix(text[idx:], " (deleted)")
	}

	return region, nil
}

// Find returns the region containing addr.
func Find(regions []Region, addr uintptr) (Region, bool) {
	for _, r := range regions {
		if r.Contains(addr) {
			return r, true
		}
	}
	return Region{}, false
}
