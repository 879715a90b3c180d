package tablehook

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/brahma-adshonor/tablehook/internal/procmaps"
)

type pageProt struct {
	page uintptr
	prot int
}

func protOf(r procmaps.Region) int {
	prot := unix.PROT_NONE
	if r.Readable() {
		prot |= unix.PROT_READ
	}
	if r.Writable() {
		prot |= unix.PROT_WRITE
	}
	if r.Executable() {
		prot |= unix.PROT_EXEC
	}
	return prot
}

var setPageProt = func(page uintptr, prot int) error {
	return unix.Mprotect(makeSliceFromPointer(page, int(pageSize)), prot)
}

// withWritable runs fn with every page of [addr, addr+length) writable.
// Pages already writable are left untouched; the others get PROT_WRITE added
// and are put back to the protection /proc/self/maps reported for them.
// Once fn has run the write stands: a page that cannot be put back is
// logged and left writable, and no error is returned.
func withWritable(addr uintptr, length int, fn func()) error {
	regions, err := procmaps.Self()
	if err != nil {
		return errors.Wrap(err, "read process maps")
	}

	var changed []pageProt
	undo := func() {
		for i := len(changed) - 1; i >= 0; i-- {
			if err := setPageProt(changed[i].page, changed[i].prot); err != nil {
				logger.WithError(err).WithField("address", hex(changed[i].page)).Warn("page left writable")
			}
		}
	}

	for _, p := range pagesOf(addr, length) {
		r, ok := procmaps.Find(regions, p)
		if !ok {
			undo()
			return errors.Errorf("page %#x is not mapped", p)
		}
		if r.Writable() {
			continue
		}

		prot := protOf(r)
		if err := setPageProt(p, prot|unix.PROT_WRITE); err != nil {
			undo()
			return errors.Wrapf(err, "mprotect %#x", p)
		}
		changed = append(changed, pageProt{page: p, prot: prot})
	}

	fn()
	undo()
	return nil
}
