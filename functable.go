package tablehook

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FuncTableHook overwrites entries of a flat function table in place.
type FuncTableHook[O ~int] struct {
	table    uintptr
	entries  O
	snapshot []uintptr
	ords     []O
	patches  []*Patch[uintptr]
	done     bool
}

// NewFuncTableHook snapshots the table and patches each override in
// ascending ordinal order. On failure every entry already patched is put
// back before the error is returned.
func NewFuncTableHook[O ~int](table uintptr, entries O, overrides map[O]uintptr) (*FuncTableHook[O], error) {
	if err := CheckPointer[uintptr](table); err != nil {
		return nil, errors.Wrap(err, "function table")
	}
	if entries <= 0 {
		return nil, errors.Wrapf(ErrOrdinalRange, "table of %d entries", entries)
	}
	if err := checkOrdinals(entries, overrides); err != nil {
		return nil, err
	}

	h := &FuncTableHook[O]{
		table:    table,
		entries:  entries,
		snapshot: make([]uintptr, int(entries)),
	}
	for i := range h.snapshot {
		h.snapshot[i] = Entry(table, i)
	}

	for _, ord := range sortedOrdinals(overrides) {
		p, err := NewPatch[uintptr](SlotAddr(table, ord), overrides[ord])
		if err != nil {
			if rerr := h.restore(); rerr != nil {
				logger.WithError(rerr).Error("roll back function table")
			}
			return nil, errors.Wrapf(err, "patch function table entry %d", ord)
		}
		h.ords = append(h.ords, ord)
		h.patches = append(h.patches, p)

		logger.WithFields(logrus.Fields{
			"table":       hex(table),
			"ordinal":     int(ord),
			"original":    hex(p.Old()),
			"replacement": hex(overrides[ord]),
		}).Info("function table entry hooked")
	}

	return h, nil
}

// Original returns the entry ord held before hooking.
func (h *FuncTableHook[O]) Original(ord O) uintptr {
	if ord < 0 || ord >= h.entries {
		return 0
	}
	return h.snapshot[ord]
}

// Snapshot is a copy of the whole table as it was before hooking.
func (h *FuncTableHook[O]) Snapshot() []uintptr {
	out := make([]uintptr, len(h.snapshot))
	copy(out, h.snapshot)
	return out
}

func (h *FuncTableHook[O]) Table() uintptr { return h.table }

// Unhook restores the patched entries in reverse order.
func (h *FuncTableHook[O]) Unhook() error {
	if h.done {
		return ErrAlreadyRestored
	}
	if err := h.restore(); err != nil {
		return err
	}
	h.done = true

	logger.WithField("table", hex(h.table)).Info("function table unhooked")
	return nil
}

func (h *FuncTableHook[O]) restore() error {
	for i := len(h.patches) - 1; i >= 0; i-- {
		p := h.patches[i]
		if p.Restored() {
			continue
		}
		if err := p.Restore(); err != nil {
			return errors.Wrapf(err, "restore function table entry %d", h.ords[i])
		}
	}
	return nil
}
