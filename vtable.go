package tablehook

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// VTableHook redirects entries of one object's dispatch table. The object
// is pointed at a private clone of its table; the shared original table is
// never written.
type VTableHook[O ~int] struct {
	object    uintptr
	table     uintptr
	clone     uintptr
	entries   O
	originals map[O]uintptr
	patch     *Patch[uintptr]
	alloc     Allocator
	freed     bool
}

type hookOptions struct {
	alloc Allocator
}

type Option func(*hookOptions)

// WithAllocator sets where cloned tables are allocated.
func WithAllocator(a Allocator) Option {
	return func(o *hookOptions) {
		o.alloc = a
	}
}

func buildOptions(opts []Option) hookOptions {
	o := hookOptions{alloc: defaultAllocator}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func sortedOrdinals[O ~int](overrides map[O]uintptr) []O {
	ords := make([]O, 0, len(overrides))
	for o := range overrides {
		ords = append(ords, o)
	}
	sort.Slice(ords, func(i, j int) bool { return ords[i] < ords[j] })
	return ords
}

func checkOrdinals[O ~int](entries O, overrides map[O]uintptr) error {
	for o, fn := range overrides {
		if o < 0 || o >= entries {
			return errors.Wrapf(ErrOrdinalRange, "ordinal %d of %d entries", o, entries)
		}
		if fn == 0 {
			return errors.Wrapf(ErrNullPointer, "replacement for ordinal %d", o)
		}
	}
	return nil
}

// NewVTableHook clones the dispatch table of object (entries slots long),
// writes each override into the clone and swaps the object's table pointer
// to the clone.
func NewVTableHook[O ~int](object uintptr, entries O, overrides map[O]uintptr, opts ...Option) (*VTableHook[O], error) {
	if err := CheckPointer[uintptr](object); err != nil {
		return nil, errors.Wrap(err, "object")
	}
	if entries <= 0 {
		return nil, errors.Wrapf(ErrOrdinalRange, "table of %d entries", entries)
	}
	if err := checkOrdinals(entries, overrides); err != nil {
		return nil, err
	}

	table := VtableOf(object)
	if table == 0 {
		return nil, errors.Wrapf(ErrNullVtable, "object %#x", object)
	}

	o := buildOptions(opts)
	size := int(entries) * int(wordSize)

	clone, err := o.alloc.Alloc(size)
	if err != nil {
		return nil, errors.Wrap(err, "allocate vtable clone")
	}
	copy(makeSliceFromPointer(clone, size), makeSliceFromPointer(table, size))

	h := &VTableHook[O]{
		object:    object,
		table:     table,
		clone:     clone,
		entries:   entries,
		originals: make(map[O]uintptr, len(overrides)),
		alloc:     o.alloc,
	}

	for _, ord := range sortedOrdinals(overrides) {
		slot := SlotAddr(clone, ord)
		h.originals[ord] = ReadWord(slot)
		WriteWord(slot, overrides[ord])

		logger.WithFields(logrus.Fields{
			"ordinal":     int(ord),
			"original":    hex(h.originals[ord]),
			"replacement": hex(overrides[ord]),
		}).Debug("vtable entry replaced")
	}

	h.patch, err = NewPatch[uintptr](object, clone)
	if err != nil {
		if ferr := o.alloc.Free(clone, size); ferr != nil {
			logger.WithError(ferr).Error("free vtable clone")
		}
		return nil, errors.Wrapf(err, "swap vtable of %#x", object)
	}

	logger.WithFields(logrus.Fields{
		"object": hex(object),
		"table":  hex(table),
		"clone":  hex(clone),
	}).Info("vtable hooked")

	return h, nil
}

// Original returns the entry that was at ord before hooking, zero when ord
// was not overridden.
func (h *VTableHook[O]) Original(ord O) uintptr {
	return h.originals[ord]
}

// Table is the object's original dispatch table.
func (h *VTableHook[O]) Table() uintptr { return h.table }

// Clone is the table the object uses while hooked.
func (h *VTableHook[O]) Clone() uintptr { return h.clone }

func (h *VTableHook[O]) Object() uintptr { return h.object }

// Unhook points the object back at its original table and only then
// releases the clone. If the pointer cannot be restored the clone is kept
// alive, since the object still references it. A failed Unhook can be
// called again.
func (h *VTableHook[O]) Unhook() error {
	if h.freed {
		return ErrAlreadyRestored
	}

	if !h.patch.Restored() {
		if err := h.patch.Restore(); err != nil {
			return errors.Wrapf(err, "restore vtable of %#x", h.object)
		}
	}

	if err := h.alloc.Free(h.clone, int(h.entries)*int(wordSize)); err != nil {
		return errors.Wrap(err, "free vtable clone")
	}
	h.freed = true

	logger.WithField("object", hex(h.object)).Info("vtable unhooked")
	return nil
}
