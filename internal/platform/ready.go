package platform

import "time"

// readiness is one observation of a window on its way to being shown.
type readiness int

const (
	pending readiness = iota
	shown
	hidden
)

// awaitStable calls check until it reports the window shown with the same
// bounds twice in a row. A hidden window ends the wait at once with
// ErrHidden; running out of time yields false.
func awaitStable(check func() (readiness, Rect, error), timeout, interval time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	var last Rect
	haveLast := false
	for {
		state, bounds, err := check()
		if err != nil {
			return false, err
		}
		switch state {
		case hidden:
			return false, ErrHidden
		case shown:
			if haveLast && bounds == last {
				return true, nil
			}
			last, haveLast = bounds, true
		default:
			haveLast = false
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(interval)
	}
}
