package main

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brahma-adshonor/tablehook"
)

const (
	keyPaintTraverse = "VGUI_Panel007.PaintTraverse"
	keyCreateMove    = "ClientFuncs.CreateMove"
)

var (
	framesFlag      int
	tickFlag        time.Duration
	crossThreadFlag bool

	// active is the session the replacement functions run under.
	active atomic.Pointer[tablehook.Session]

	painted atomic.Uint64
	moves   atomic.Uint64
)

// panelObject is the layout the panel interface is taken to have.
type panelObject struct {
	vtable uintptr
}

//go:noinline
func hookedPaintTraverse(this uintptr, panel uint32, forceRepaint, allowForce bool) {
	s := active.Load()
	s.Verifier.Check()

	if orig, ok := tablehook.Load[uintptr](s, keyPaintTraverse); ok {
		tablehook.Func[paintTraverseFn](orig)(this, panel, forceRepaint, allowForce)
	}

	if tablehook.Method[getNameFn](this, GetName)(this, panel) == "FocusOverlayPanel" {
		painted.Add(1)
		s.Logger().WithField("panel", panel).Debug("overlay drawn")
	}
}

//go:noinline
func hookedCreateMove(sequence int, frametime float32, inGame bool) {
	s := active.Load()
	s.Verifier.Check()

	if orig, ok := tablehook.Load[uintptr](s, keyCreateMove); ok {
		tablehook.Func[createMoveFn](orig)(sequence, frametime, inGame)
	}
	moves.Add(1)
}

// factory hands out the host's interfaces by name.
func (h *host) factory() tablehook.Factory {
	return tablehook.FactoryFunc(func(name *byte, status *int32) uintptr {
		var b []byte
		for p := name; *p != 0; p = (*byte)(unsafe.Add(unsafe.Pointer(p), 1)) {
			b = append(b, *p)
		}

		*status = 0
		switch string(b) {
		case "VGUI_Panel007":
			return h.panel
		case "VClient017":
			return h.client
		}
		*status = 1
		return 0
	})
}

func installOverlay(h *host) tablehook.InstallFunc {
	return func(ctx context.Context, s *tablehook.Session) error {
		panel, err := tablehook.CreateInterface[panelObject](h.factory(), "vgui2", "VGUI_Panel007")
		if err != nil {
			return err
		}
		client, err := tablehook.CreateInterface[uintptr](h.factory(), "client", "VClient017")
		if err != nil {
			return err
		}

		object := uintptr(unsafe.Pointer(panel))
		table := uintptr(unsafe.Pointer(client))

		// replacements can run as soon as a table is written
		s.Store(keyPaintTraverse, tablehook.Entry(panel.vtable, PaintTraverse))
		s.Store(keyCreateMove, tablehook.Entry(table, CreateMove))

		vh, err := tablehook.InstallVTable(s, "VGUI_Panel007", object, PanelEntries, map[PanelOrdinal]uintptr{
			PaintTraverse: tablehook.FuncAddr(hookedPaintTraverse),
		})
		if err != nil {
			return err
		}
		s.Logger().WithFields(logrus.Fields{
			"table": fmt.Sprintf("%#x", vh.Table()),
			"clone": fmt.Sprintf("%#x", vh.Clone()),
		}).Debug("panel table cloned")

		if _, err := tablehook.InstallFuncTable(s, "ClientFuncs", table, ClientEntries, map[ClientOrdinal]uintptr{
			CreateMove: tablehook.FuncAddr(hookedCreateMove),
		}); err != nil {
			return err
		}

		if crossThreadFlag {
			// let the host thread claim the hooks first
			for {
				if _, ok := s.Verifier.Bound(); ok {
					break
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(tickFlag):
				}
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
				h.frame(0)
			}()
			<-done
		}
		return nil
	}
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a fake host and hook its panel and client tables",
		RunE:  runDemo,
	}

	cmd.Flags().IntVar(&framesFlag, "frames", 0, "stop after this many host frames (0 runs until told to stop)")
	cmd.Flags().DurationVar(&tickFlag, "tick", 15*time.Millisecond, "host frame interval")
	cmd.Flags().BoolVar(&crossThreadFlag, "cross-thread", false, "also run one frame from a second thread")
	return cmd
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := sessionConfig()
	if err != nil {
		return err
	}

	waitCtx, stopWait, err := waitContext(cmd.Context(), waitFlag)
	if err != nil {
		return err
	}
	defer stopWait()

	h, err := newHost()
	if err != nil {
		return err
	}
	defer h.close()

	hostDone := make(chan struct{})
	go func() {
		defer close(hostDone)
		h.loop(waitCtx, framesFlag, tickFlag)
	}()

	// unhook only once the host has stopped calling through the tables
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-hostDone
		cancel()
	}()

	s := tablehook.NewSession(cfg)
	active.Store(s)
	err = s.Run(runCtx, installOverlay(h))

	stopWait()
	<-hostDone

	log.WithFields(logrus.Fields{
		"overlay_frames": painted.Load(),
		"moves":          moves.Load(),
		"off_thread":     s.Verifier.Mismatches(),
	}).Info("demo done")

	return errors.Wrap(err, "demo")
}
