package main

import (
	"context"
	"runtime"
	"time"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/brahma-adshonor/tablehook"
)

// PanelOrdinal indexes the panel dispatch table.
type PanelOrdinal int

const (
	GetName       PanelOrdinal = 36
	PaintTraverse PanelOrdinal = 41
	PanelEntries  PanelOrdinal = 60
)

// ClientOrdinal indexes the client function table.
type ClientOrdinal int

const (
	CreateMove    ClientOrdinal = 14
	CalcRefDef    ClientOrdinal = 19
	ClientEntries ClientOrdinal = 43
)

type (
	getNameFn       func(this uintptr, panel uint32) string
	paintTraverseFn func(this uintptr, panel uint32, forceRepaint, allowForce bool)
	createMoveFn    func(sequence int, frametime float32, active bool)
)

const wordSize = int(unsafe.Sizeof(uintptr(0)))

var panelNames = []string{"RootPanel", "HudPanel", "FocusOverlayPanel", "MatSystemTopPanel"}

//go:noinline
func hostGetName(this uintptr, panel uint32) string {
	if int(panel) < len(panelNames) {
		return panelNames[panel]
	}
	return ""
}

//go:noinline
func hostPaintTraverse(this uintptr, panel uint32, forceRepaint, allowForce bool) {
	log.WithField("panel", panel).Trace("paint")
}

//go:noinline
func hostCreateMove(sequence int, frametime float32, active bool) {
	log.WithField("sequence", sequence).Trace("create move")
}

//go:noinline
func hostStub(this uintptr) {}

// host is a stand-in for the process being hooked: a panel object with a
// dispatch table and a flat client function table, both outside the Go heap.
type host struct {
	mem    tablehook.PageAllocator
	panel  uintptr
	client uintptr
	blocks map[uintptr]int
}

func newHost() (*host, error) {
	h := &host{blocks: make(map[uintptr]int)}

	vtable, err := h.table(int(PanelEntries))
	if err != nil {
		return nil, err
	}
	tablehook.WriteWord(tablehook.SlotAddr(vtable, GetName), tablehook.FuncAddr(hostGetName))
	tablehook.WriteWord(tablehook.SlotAddr(vtable, PaintTraverse), tablehook.FuncAddr(hostPaintTraverse))

	h.panel, err = h.alloc(64)
	if err != nil {
		h.close()
		return nil, err
	}
	tablehook.WriteWord(h.panel, vtable)

	h.client, err = h.table(int(ClientEntries))
	if err != nil {
		h.close()
		return nil, err
	}
	tablehook.WriteWord(tablehook.SlotAddr(h.client, CreateMove), tablehook.FuncAddr(hostCreateMove))

	return h, nil
}

func (h *host) alloc(size int) (uintptr, error) {
	addr, err := h.mem.Alloc(size)
	if err != nil {
		return 0, errors.Wrap(err, "host memory")
	}
	h.blocks[addr] = size
	return addr, nil
}

// table allocates n slots, all pointing at hostStub.
func (h *host) table(n int) (uintptr, error) {
	table, err := h.alloc(n * wordSize)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		tablehook.WriteWord(tablehook.SlotAddr(table, i), tablehook.FuncAddr(hostStub))
	}
	return table, nil
}

func (h *host) close() {
	for addr, size := range h.blocks {
		if err := h.mem.Free(addr, size); err != nil {
			log.WithError(err).Error("free host memory")
		}
	}
	h.blocks = nil
}

// frame is one tick of the host: paint every panel, then build a move.
func (h *host) frame(sequence int) {
	paint := tablehook.Method[paintTraverseFn](h.panel, PaintTraverse)
	for i := range panelNames {
		paint(h.panel, uint32(i), false, true)
	}

	move := tablehook.Slot[createMoveFn](h.client, CreateMove)
	move(sequence, 1.0/64, true)
}

// loop runs frames on one locked OS thread until ctx is done or frames have
// been run, when frames is positive.
func (h *host) loop(ctx context.Context, frames int, tick time.Duration) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for seq := 1; frames <= 0 || seq <= frames; seq++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		h.frame(seq)
	}
	log.WithField("frames", frames).Info("host finished")
}
