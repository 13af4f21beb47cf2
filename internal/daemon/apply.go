package daemon

import (
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/winplace/internal/platform"
)

// ApplyStatus is the result of an apply attempt that reached the window.
type ApplyStatus int

const (
	Applied ApplyStatus = iota
	Unsupported
)

func (s ApplyStatus) String() string {
	if s == Applied {
		return "Applied"
	}
	return "Unsupported"
}

// ApplyResult describes what happened to the window. After is the bounds read
// back once the window settled; Clamped is set when it differs from the
// target (window manager or monitor constraints).
type ApplyResult struct {
	Status  ApplyStatus
	Caps    platform.Transform
	After   platform.Rect
	Clamped bool
}

// DefaultSettleTimeout bounds how long Apply waits for the window manager to
// act on a move and resize before reading the final bounds.
const DefaultSettleTimeout = 500 * time.Millisecond

const settleInterval = 20 * time.Millisecond

// Applicator moves and resizes windows.
type Applicator struct {
	backend platform.Backend
	settle  time.Duration
}

// NewApplicator creates an applicator over backend.
func NewApplicator(backend platform.Backend) *Applicator {
	return &Applicator{backend: backend, settle: DefaultSettleTimeout}
}

// Apply moves the window to target's origin and resizes it to target's size.
// Nothing is changed unless both move and resize are currently permitted.
func (a *Applicator) Apply(id platform.WindowID, target platform.Rect) (ApplyResult, error) {
	caps, err := a.backend.Transform(id)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("query transform capability: %w", err)
	}
	if !caps.Supported || !caps.CanMove || !caps.CanResize {
		return ApplyResult{Status: Unsupported, Caps: caps}, nil
	}

	if err := a.backend.Move(id, target.X, target.Y); err != nil {
		return ApplyResult{}, fmt.Errorf("move to (%d,%d): %w", target.X, target.Y, err)
	}
	if err := a.backend.Resize(id, target.Width, target.Height); err != nil {
		return ApplyResult{}, fmt.Errorf("resize to %dx%d: %w", target.Width, target.Height, err)
	}

	res := ApplyResult{Status: Applied, Caps: caps}
	if after, ok := a.settled(id, target); ok {
		res.After = after
		res.Clamped = after != target
	}
	return res, nil
}

// settled reads the window bounds until they equal target or the settle
// timeout passes. Move and resize requests are asynchronous under most window
// managers, so the first read frequently still shows the old geometry.
func (a *Applicator) settled(id platform.WindowID, target platform.Rect) (platform.Rect, bool) {
	deadline := time.Now().Add(a.settle)
	var (
		last platform.Rect
		ok   bool
	)
	for {
		after, err := a.backend.Bounds(id)
		switch {
		case errors.Is(err, platform.ErrWindowGone):
			return last, ok
		case err == nil:
			last, ok = after, true
			if after == target {
				return last, true
			}
		}
		if !time.Now().Before(deadline) {
			return last, ok
		}
		time.Sleep(settleInterval)
	}
}
