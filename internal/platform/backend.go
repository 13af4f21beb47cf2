package platform

import (
	"errors"
	"fmt"
	"time"
)

// WindowID is a platform-neutral top-level window identifier. It is a weak
// reference: the window may close at any time.
type WindowID uint32

func (id WindowID) String() string {
	return fmt.Sprintf("0x%x", uint32(id))
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Display describes a physical display.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
}

// Contains reports whether the point lies inside the display bounds.
func (d Display) Contains(x, y int) bool {
	return containsPoint(d.Bounds, x, y)
}

// Transform reports whether a window can currently be moved and resized.
// Supported is false when the window does not expose the capability at all.
type Transform struct {
	Supported bool
	CanMove   bool
	CanResize bool
}

func (t Transform) String() string {
	return fmt.Sprintf("supported=%t move=%t resize=%t", t.Supported, t.CanMove, t.CanResize)
}

// EventKind distinguishes window notifications.
type EventKind int

const (
	WindowOpened EventKind = iota
	WindowClosed
)

func (k EventKind) String() string {
	switch k {
	case WindowOpened:
		return "opened"
	case WindowClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a window notification delivered by a Subscription.
type Event struct {
	Kind   EventKind
	Window WindowID
}

// Subscription represents an active window notification listener.
type Subscription interface {
	Close() error
}

var (
	// ErrNoLifecycle is returned by WaitReady when the element does not expose
	// a window lifecycle (not a managed application window).
	ErrNoLifecycle = errors.New("window does not expose a lifecycle")
	// ErrHidden is returned by WaitReady for a window that finished
	// initializing but is minimized or on another virtual desktop.
	ErrHidden = errors.New("window is minimized or on another desktop")
	// ErrWindowGone is returned when the handle no longer refers to a window.
	ErrWindowGone = errors.New("window no longer exists")
	// ErrUnsupportedPlatform is returned by NewBackend on platforms without a
	// window-system implementation.
	ErrUnsupportedPlatform = errors.New("no window backend for this platform")
)

// Backend abstracts the window-system automation capabilities the placement
// engine consumes. Implementations must be safe for concurrent use.
type Backend interface {
	// TopLevelWindows lists the direct children of the desktop root.
	TopLevelWindows() ([]WindowID, error)
	// SubscribeWindows registers handler for window opened/closed
	// notifications. Windows present when the subscription is created are not
	// reported as opened. handler may be called from another goroutine.
	SubscribeWindows(handler func(Event)) (Subscription, error)
	// WaitReady waits up to timeout for the window to finish initializing.
	WaitReady(id WindowID, timeout time.Duration) (bool, error)
	ProcessID(id WindowID) (int, error)
	Transform(id WindowID) (Transform, error)
	Move(id WindowID, x, y int) error
	Resize(id WindowID, width, height int) error
	Bounds(id WindowID) (Rect, error)
	Displays() ([]Display, error)
}

// GeometryWatcher is implemented by backends that can report a window's
// bounds as the window manager changes them.
type GeometryWatcher interface {
	// WatchBounds calls fn with the window's bounds on every change during the
	// next d. The returned function stops watching early.
	WatchBounds(id WindowID, d time.Duration, fn func(Rect)) (stop func(), err error)
}

func containsPoint(r Rect, x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}
