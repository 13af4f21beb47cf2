//go:build linux

package platform

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/1broseidon/winplace/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// readyPollInterval is how often WaitReady re-checks a window.
const readyPollInterval = 50 * time.Millisecond

// LinuxBackend wraps an X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var (
	_ Backend         = (*LinuxBackend)(nil)
	_ GeometryWatcher = (*LinuxBackend)(nil)
)

// NewBackend opens the default backend for this platform. The returned
// backend implements io.Closer.
func NewBackend() (Backend, error) {
	b, err := NewLinuxBackendFromDisplay()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Close closes the underlying X11 connection.
func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
	return nil
}

// TopLevelWindows returns the managed client windows of the desktop root.
func (b *LinuxBackend) TopLevelWindows() ([]WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	clients, err := conn.ClientList()
	if err != nil {
		return nil, err
	}

	ids := make([]WindowID, 0, len(clients))
	for _, w := range clients {
		ids = append(ids, WindowID(w))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SubscribeWindows delivers opened/closed notifications derived from
// _NET_CLIENT_LIST changes.
func (b *LinuxBackend) SubscribeWindows(handler func(Event)) (Subscription, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	return conn.WatchClients(
		func(w xproto.Window) { handler(Event{Kind: WindowOpened, Window: WindowID(w)}) },
		func(w xproto.Window) { handler(Event{Kind: WindowClosed, Window: WindowID(w)}) },
	)
}

// WaitReady polls until the window is viewable, in NormalState and its
// geometry is unchanged between two polls. Iconic windows and windows on
// another desktop fail fast with ErrHidden.
func (b *LinuxBackend) WaitReady(id WindowID, timeout time.Duration) (bool, error) {
	conn, err := b.connection()
	if err != nil {
		return false, err
	}
	win := xproto.Window(id)

	if !conn.IsNormalWindow(win) {
		return false, ErrNoLifecycle
	}
	return awaitStable(func() (readiness, Rect, error) {
		return b.readyOnce(win)
	}, timeout, readyPollInterval)
}

func (b *LinuxBackend) readyOnce(win xproto.Window) (readiness, Rect, error) {
	viewable, err := b.conn.IsViewable(win)
	if err != nil {
		return pending, Rect{}, mapErr(err)
	}
	if b.conn.Hidden(win) {
		return hidden, Rect{}, nil
	}
	if !viewable {
		return pending, Rect{}, nil
	}
	state, err := b.conn.WMState(win)
	if err != nil || state != x11.StateNormal {
		return pending, Rect{}, nil
	}
	geom, err := b.conn.FrameGeometry(win)
	if err != nil {
		return pending, Rect{}, mapErr(err)
	}
	return shown, rectOf(geom), nil
}

// ProcessID returns the _NET_WM_PID of the window.
func (b *LinuxBackend) ProcessID(id WindowID) (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	pid, err := conn.WindowPID(xproto.Window(id))
	return pid, mapErr(err)
}

// Transform reports the window manager's current move/resize permissions.
func (b *LinuxBackend) Transform(id WindowID) (Transform, error) {
	conn, err := b.connection()
	if err != nil {
		return Transform{}, err
	}
	acts, err := conn.AllowedActions(xproto.Window(id))
	if err != nil {
		return Transform{}, mapErr(err)
	}
	return Transform{
		Supported: acts.Managed,
		CanMove:   acts.CanMove,
		CanResize: acts.CanResize,
	}, nil
}

// Move moves the window frame's top-left corner.
func (b *LinuxBackend) Move(id WindowID, x, y int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return mapErr(conn.MoveWindow(xproto.Window(id), x, y))
}

// Resize sets the window's outer size, decorations included.
func (b *LinuxBackend) Resize(id WindowID, width, height int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	win := xproto.Window(id)
	w, h := conn.FrameExtents(win).ClientSize(width, height)
	return mapErr(conn.ResizeWindow(win, w, h))
}

// Bounds returns the window's outer rectangle in root coordinates.
func (b *LinuxBackend) Bounds(id WindowID) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}
	geom, err := conn.FrameGeometry(xproto.Window(id))
	if err != nil {
		return Rect{}, mapErr(err)
	}
	return rectOf(geom), nil
}

// WatchBounds reports the window's outer rectangle on each ConfigureNotify
// during the next d.
func (b *LinuxBackend) WatchBounds(id WindowID, d time.Duration, fn func(Rect)) (func(), error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	stop, err := conn.WatchGeometry(xproto.Window(id), d, func(g x11.Geometry) { fn(rectOf(g)) })
	return stop, mapErr(err)
}

// Displays returns all active displays.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		})
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

func rectOf(g x11.Geometry) Rect {
	return Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func mapErr(err error) error {
	if errors.Is(err, x11.ErrBadWindow) {
		return ErrWindowGone
	}
	return err
}
