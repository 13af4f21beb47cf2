package daemon

import (
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/winplace/internal/platform"
	"github.com/1broseidon/winplace/internal/procinfo"
	"github.com/1broseidon/winplace/internal/rects"
)

// DefaultReadyTimeout bounds the readiness wait for a single window.
const DefaultReadyTimeout = 10 * time.Second

// OutcomeKind classifies the result of probing a window.
type OutcomeKind int

const (
	NotReady OutcomeKind = iota
	NoOwningProcess
	NoMatch
	Matched
)

func (k OutcomeKind) String() string {
	switch k {
	case NotReady:
		return "NotReady"
	case NoOwningProcess:
		return "NoOwningProcess"
	case NoMatch:
		return "NoMatch"
	case Matched:
		return "Matched"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of probing one window. Path is set for NoMatch and
// Matched; Target and Current only for Matched. Reason explains NotReady and
// Err carries the resolution failure for NoOwningProcess.
type Outcome struct {
	Kind    OutcomeKind
	Path    string
	Target  platform.Rect
	Current platform.Rect
	Reason  string
	Err     error
}

// Prober decides whether a window should be placed. It holds no mutable
// state and may be called from any goroutine.
type Prober struct {
	backend      platform.Backend
	table        *rects.Table
	resolver     procinfo.Resolver
	readyTimeout time.Duration
}

// NewProber creates a prober. A non-positive timeout selects DefaultReadyTimeout.
func NewProber(backend platform.Backend, table *rects.Table, resolver procinfo.Resolver, readyTimeout time.Duration) *Prober {
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	return &Prober{
		backend:      backend,
		table:        table,
		resolver:     resolver,
		readyTimeout: readyTimeout,
	}
}

// Probe waits for the window to become ready, resolves its executable and
// looks it up in the table.
func (p *Prober) Probe(id platform.WindowID) Outcome {
	ready, err := p.backend.WaitReady(id, p.readyTimeout)
	switch {
	case errors.Is(err, platform.ErrNoLifecycle):
		return Outcome{Kind: NotReady, Reason: "no window lifecycle"}
	case err != nil:
		return Outcome{Kind: NotReady, Reason: err.Error()}
	case !ready:
		return Outcome{Kind: NotReady, Reason: fmt.Sprintf("not idle within %s", p.readyTimeout)}
	}

	pid, err := p.backend.ProcessID(id)
	if err != nil {
		return Outcome{Kind: NoOwningProcess, Err: err}
	}
	path, err := p.resolver.Executable(pid)
	if err != nil {
		return Outcome{Kind: NoOwningProcess, Err: err}
	}

	target, ok := p.table.Lookup(path)
	if !ok {
		return Outcome{Kind: NoMatch, Path: path}
	}

	current, _ := p.backend.Bounds(id)
	return Outcome{Kind: Matched, Path: path, Target: target, Current: current}
}
