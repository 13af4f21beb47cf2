package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Geometry is a window rectangle in root coordinates.
type Geometry struct {
	X, Y, Width, Height int
}

// Actions is the subset of _NET_WM_ALLOWED_ACTIONS and window state the
// placement engine cares about.
type Actions struct {
	Managed   bool
	CanMove   bool
	CanResize bool
}

// ClientList returns the windows managed by the window manager.
func (c *Connection) ClientList() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}

// WindowPID returns the _NET_WM_PID of a window.
func (c *Connection) WindowPID(windowID xproto.Window) (int, error) {
	if err := c.exists(windowID); err != nil {
		return 0, err
	}
	pid, err := ewmh.WmPidGet(c.XUtil, windowID)
	if err != nil {
		return 0, fmt.Errorf("window 0x%x has no _NET_WM_PID: %w", windowID, err)
	}
	return int(pid), nil
}

// IsViewable reports whether the window is mapped and all its ancestors are.
func (c *Connection) IsViewable(windowID xproto.Window) (bool, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false, badWindow(err)
	}
	return attrs.MapState == xproto.MapStateViewable, nil
}

// WMState returns the ICCCM WM_STATE of the window, or an error when the
// window manager has not set one (window not managed).
func (c *Connection) WMState(windowID xproto.Window) (uint, error) {
	st, err := icccm.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return 0, err
	}
	return st.State, nil
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION",
			"_NET_WM_WINDOW_TYPE_TOOLBAR",
			"_NET_WM_WINDOW_TYPE_MENU":
			return false
		}
	}

	return len(types) == 0
}

// AllowedActions reports whether the window manager currently lets the
// window be moved and resized.
func (c *Connection) AllowedActions(windowID xproto.Window) (Actions, error) {
	if err := c.exists(windowID); err != nil {
		return Actions{}, err
	}
	if _, err := c.WMState(windowID); err != nil {
		return Actions{}, nil
	}

	allowed, _ := ewmh.WmAllowedActionsGet(c.XUtil, windowID)
	states, _ := ewmh.WmStateGet(c.XUtil, windowID)
	fixed := false
	if len(allowed) == 0 {
		if hints, err := icccm.WmNormalHintsGet(c.XUtil, windowID); err == nil {
			fixed = sizeFixed(hints)
		}
	}
	return actionsFrom(allowed, states, fixed), nil
}

// actionsFrom derives move/resize permission for a managed window. Without
// _NET_WM_ALLOWED_ACTIONS the window is movable and resizable unless its size
// hints pin it. Fullscreen and fully maximized windows are neither.
func actionsFrom(allowed, states []string, fixed bool) Actions {
	acts := Actions{Managed: true}
	if len(allowed) > 0 {
		for _, a := range allowed {
			switch a {
			case "_NET_WM_ACTION_MOVE":
				acts.CanMove = true
			case "_NET_WM_ACTION_RESIZE":
				acts.CanResize = true
			}
		}
	} else {
		acts.CanMove = true
		acts.CanResize = !fixed
	}

	var maxH, maxV bool
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_FULLSCREEN":
			acts.CanMove, acts.CanResize = false, false
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			maxH = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			maxV = true
		}
	}
	if maxH && maxV {
		acts.CanMove, acts.CanResize = false, false
	}
	return acts
}

// sizeFixed reports whether WM_NORMAL_HINTS pins min size to max size.
func sizeFixed(hints *icccm.NormalHints) bool {
	if hints == nil {
		return false
	}
	const minMax = icccm.SizeHintPMinSize | icccm.SizeHintPMaxSize
	if hints.Flags&minMax != minMax {
		return false
	}
	return hints.MinWidth == hints.MaxWidth && hints.MinHeight == hints.MaxHeight
}

// Hidden reports whether a managed window is deliberately not shown: iconic,
// marked _NET_WM_STATE_HIDDEN, or on another virtual desktop. Windows without
// WM_STATE are not yet managed and are never reported hidden.
func (c *Connection) Hidden(windowID xproto.Window) bool {
	state, err := c.WMState(windowID)
	if err != nil {
		return false
	}
	states, _ := ewmh.WmStateGet(c.XUtil, windowID)

	desktop, err := ewmh.WmDesktopGet(c.XUtil, windowID)
	if err != nil {
		return hiddenState(state, states, allDesktops, 0)
	}
	current, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return hiddenState(state, states, allDesktops, 0)
	}
	return hiddenState(state, states, desktop, current)
}

// allDesktops is the _NET_WM_DESKTOP value of sticky windows.
const allDesktops = 0xFFFFFFFF

// ICCCM WM_STATE values.
const (
	StateNormal = 1
	StateIconic = 3
)

func hiddenState(wmState uint, states []string, desktop, current uint) bool {
	if wmState == StateIconic {
		return true
	}
	for _, s := range states {
		if s == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	return desktop != allDesktops && desktop != current
}

// FrameExtents is the size of the window manager decorations around a
// client window.
type FrameExtents struct {
	Left, Right, Top, Bottom int
}

// FrameExtents returns the window's _NET_FRAME_EXTENTS. Undecorated windows
// and window managers that do not publish the property yield zero extents.
func (c *Connection) FrameExtents(windowID xproto.Window) FrameExtents {
	extents, err := ewmh.FrameExtentsGet(c.XUtil, windowID)
	if err != nil {
		return FrameExtents{}
	}
	return FrameExtents{
		Left:   int(extents.Left),
		Right:  int(extents.Right),
		Top:    int(extents.Top),
		Bottom: int(extents.Bottom),
	}
}

// Outer grows a client rectangle by the frame extents.
func (e FrameExtents) Outer(g Geometry) Geometry {
	return Geometry{
		X:      g.X - e.Left,
		Y:      g.Y - e.Top,
		Width:  g.Width + e.Left + e.Right,
		Height: g.Height + e.Top + e.Bottom,
	}
}

// ClientSize is the client size that gives an outer size of width x height.
func (e FrameExtents) ClientSize(width, height int) (int, int) {
	w := width - e.Left - e.Right
	h := height - e.Top - e.Bottom
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// MoveWindow moves the window frame's top-left corner to x, y. It sends
// _NET_MOVERESIZE_WINDOW when the window manager advertises it and falls back
// to a ConfigureWindow request, which the window manager intercepts.
func (c *Connection) MoveWindow(windowID xproto.Window, x, y int) error {
	if err := c.exists(windowID); err != nil {
		return err
	}
	if !c.supports("_NET_MOVERESIZE_WINDOW") {
		xwindow.New(c.XUtil, windowID).Move(x, y)
		return nil
	}
	if err := ewmh.MoveWindow(c.XUtil, windowID, x, y); err != nil {
		return fmt.Errorf("failed to send _NET_MOVERESIZE_WINDOW: %w", err)
	}
	return nil
}

// ResizeWindow sets the client size of the window.
func (c *Connection) ResizeWindow(windowID xproto.Window, width, height int) error {
	if err := c.exists(windowID); err != nil {
		return err
	}
	if !c.supports("_NET_MOVERESIZE_WINDOW") {
		xwindow.New(c.XUtil, windowID).Resize(width, height)
		return nil
	}
	if err := ewmh.ResizeWindow(c.XUtil, windowID, width, height); err != nil {
		return fmt.Errorf("failed to send _NET_MOVERESIZE_WINDOW: %w", err)
	}
	return nil
}

// supports reports whether _NET_SUPPORTED lists atom. The list is read once
// per connection.
func (c *Connection) supports(atom string) bool {
	c.supportedOnce.Do(func() {
		c.supported, _ = ewmh.SupportedGet(c.XUtil)
	})
	return containsAtom(c.supported, atom)
}

func containsAtom(list []string, atom string) bool {
	for _, a := range list {
		if a == atom {
			return true
		}
	}
	return false
}

// WindowGeometry returns the client rectangle translated to root coordinates.
func (c *Connection) WindowGeometry(windowID xproto.Window) (Geometry, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Geometry{}, badWindow(err)
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return Geometry{}, badWindow(err)
	}

	return Geometry{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// FrameGeometry returns the outer rectangle of the window, decorations
// included, in root coordinates.
func (c *Connection) FrameGeometry(windowID xproto.Window) (Geometry, error) {
	geom, err := c.WindowGeometry(windowID)
	if err != nil {
		return Geometry{}, err
	}
	return c.FrameExtents(windowID).Outer(geom), nil
}

func (c *Connection) exists(windowID xproto.Window) error {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return badWindow(err)
	}
	return nil
}
