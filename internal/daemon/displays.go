package daemon

import (
	"github.com/1broseidon/winplace/internal/diag"
	"github.com/1broseidon/winplace/internal/platform"
	"github.com/1broseidon/winplace/internal/rects"
)

// DisplayFor returns the display containing the top-left corner of r.
func DisplayFor(displays []platform.Display, r platform.Rect) (platform.Display, bool) {
	for _, d := range displays {
		if d.Contains(r.X, r.Y) {
			return d, true
		}
	}
	return platform.Display{}, false
}

// CheckTargets logs the current displays and returns the table paths whose
// target corner is on none of them. Such rules still apply; the window
// manager decides where the window ends up.
func CheckTargets(backend platform.Backend, table *rects.Table, sink *diag.Sink) []string {
	displays, err := backend.Displays()
	if err != nil {
		sink.Error("failed to query displays", err)
		return nil
	}
	for _, d := range displays {
		sink.Logger().Info().Str("display", d.Name).Stringer("bounds", d.Bounds).Msg("Display")
	}
	if len(displays) == 0 {
		return nil
	}

	var offscreen []string
	for _, p := range table.Paths() {
		r, _ := table.Lookup(p)
		if _, ok := DisplayFor(displays, r); !ok {
			offscreen = append(offscreen, p)
			sink.Logger().Warn().Str("path", p).Stringer("to", r).Msg("target is not on any display")
		}
	}
	return offscreen
}
