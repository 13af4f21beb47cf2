package daemon

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/winplace/internal/diag"
	"github.com/1broseidon/winplace/internal/platform"
	"github.com/1broseidon/winplace/internal/procinfo"
	"github.com/1broseidon/winplace/internal/rects"
)

// defaultEventBuffer is the capacity of the notification queue between the
// window-system callback and the dispatch loop.
const defaultEventBuffer = 256

// Options configures a Dispatcher.
type Options struct {
	ReadyTimeout time.Duration
	EventBuffer  int

	// ReconcileInterval defaults to DefaultReconcileInterval; negative
	// disables reconciliation.
	ReconcileInterval time.Duration

	// TraceMoves logs every later geometry change of a placed window for
	// traceWindow, when the backend can report them.
	TraceMoves bool
}

// traceWindow is how long a placed window's geometry changes are logged
// with TraceMoves.
const traceWindow = 5 * time.Second

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	StartedAt   time.Time `json:"started_at"`
	Seen        int64     `json:"seen"`
	Matched     int64     `json:"matched"`
	Applied     int64     `json:"applied"`
	Unsupported int64     `json:"unsupported"`
	NotReady    int64     `json:"not_ready"`
	NoProcess   int64     `json:"no_process"`
	NoMatch     int64     `json:"no_match"`
	Failed      int64     `json:"failed"`
}

type counters struct {
	seen, matched, applied, unsupported  atomic.Int64
	notReady, noProcess, noMatch, failed atomic.Int64
}

// Dispatcher feeds new and pre-existing top-level windows through
// Probe and Apply.
type Dispatcher struct {
	backend platform.Backend
	prober  *Prober
	applier *Applicator
	sink    *diag.Sink

	reconcileEvery time.Duration
	watcher        platform.GeometryWatcher

	events   chan platform.Event
	quit     chan struct{}
	loopDone chan struct{}
	sub      platform.Subscription
	inflight sync.WaitGroup

	mu         sync.Mutex
	dispatched map[platform.WindowID]struct{}

	stats     counters
	startedAt time.Time

	startOnce    sync.Once
	shutdownOnce sync.Once
}

// New creates a dispatcher. The table must be fully loaded; it is never
// modified afterwards.
func New(backend platform.Backend, table *rects.Table, resolver procinfo.Resolver, sink *diag.Sink, opts Options) *Dispatcher {
	if sink == nil {
		sink = diag.Discard()
	}
	buf := opts.EventBuffer
	if buf <= 0 {
		buf = defaultEventBuffer
	}

	reconcileEvery := opts.ReconcileInterval
	if reconcileEvery == 0 {
		reconcileEvery = DefaultReconcileInterval
	}

	var watcher platform.GeometryWatcher
	if opts.TraceMoves {
		watcher, _ = backend.(platform.GeometryWatcher)
	}

	return &Dispatcher{
		backend:        backend,
		watcher:        watcher,
		prober:         NewProber(backend, table, resolver, opts.ReadyTimeout),
		applier:        NewApplicator(backend),
		sink:           sink,
		reconcileEvery: reconcileEvery,
		events:         make(chan platform.Event, buf),
		quit:           make(chan struct{}),
		loopDone:       make(chan struct{}),
		dispatched:     make(map[platform.WindowID]struct{}),
		startedAt:      time.Now(),
	}
}

// Start registers for window notifications and then handles every window
// that already exists, returning once all of them are done. Existing windows
// are handled concurrently, so startup takes at most about one ready timeout.
// Only a registration failure is returned; everything else is logged per
// window.
func (d *Dispatcher) Start() error {
	var err error
	started := false
	d.startOnce.Do(func() {
		started = true
		err = d.start()
	})
	if !started {
		return fmt.Errorf("dispatcher already started")
	}
	return err
}

func (d *Dispatcher) start() error {
	sub, err := d.backend.SubscribeWindows(d.post)
	if err != nil {
		return fmt.Errorf("failed to register for window notifications: %w", err)
	}
	d.sub = sub
	go d.loop()
	if d.reconcileEvery > 0 {
		d.inflight.Add(1)
		go d.reconcileLoop(d.reconcileEvery)
	}

	windows, err := d.backend.TopLevelWindows()
	if err != nil {
		d.sink.Error("failed to enumerate existing windows", err)
		return nil
	}
	var existing sync.WaitGroup
	for _, id := range windows {
		if !d.claim(id) {
			continue
		}
		existing.Add(1)
		d.inflight.Add(1)
		go func(id platform.WindowID) {
			defer existing.Done()
			defer d.inflight.Done()
			d.handle(id)
		}(id)
	}
	existing.Wait()
	return nil
}

// post is the notification callback. It never blocks the window system for
// longer than it takes to enqueue, and drops events after shutdown.
func (d *Dispatcher) post(ev platform.Event) {
	select {
	case d.events <- ev:
	case <-d.quit:
	}
}

func (d *Dispatcher) loop() {
	defer close(d.loopDone)
	for {
		select {
		case <-d.quit:
			return
		case ev := <-d.events:
			switch ev.Kind {
			case platform.WindowOpened:
				if !d.claim(ev.Window) {
					continue
				}
				d.inflight.Add(1)
				go func(id platform.WindowID) {
					defer d.inflight.Done()
					d.handle(id)
				}(ev.Window)
			case platform.WindowClosed:
				d.forget(ev.Window)
			}
		}
	}
}

// claim records that a window is being handled. It returns false when the
// window was already dispatched and has not been reported closed since.
func (d *Dispatcher) claim(id platform.WindowID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.dispatched[id]; ok {
		return false
	}
	d.dispatched[id] = struct{}{}
	return true
}

func (d *Dispatcher) forget(id platform.WindowID) {
	d.mu.Lock()
	delete(d.dispatched, id)
	d.mu.Unlock()
}

// handle runs Probe then Apply for one window. Failures and panics stay
// confined to this window.
func (d *Dispatcher) handle(id platform.WindowID) {
	defer func() {
		if r := recover(); r != nil {
			d.stats.failed.Add(1)
			d.sink.Failed(id, fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	d.stats.seen.Add(1)
	out := d.prober.Probe(id)
	switch out.Kind {
	case NotReady:
		d.stats.notReady.Add(1)
		d.sink.NotReady(id, out.Reason)
		return
	case NoOwningProcess:
		d.stats.noProcess.Add(1)
		d.sink.NoOwningProcess(id, out.Err)
		return
	case NoMatch:
		d.stats.noMatch.Add(1)
		d.sink.NoMatch(id, out.Path)
		return
	}

	d.stats.matched.Add(1)
	d.sink.Matched(id, out.Path, out.Current, out.Target)

	res, err := d.applier.Apply(id, out.Target)
	if err != nil {
		d.stats.failed.Add(1)
		d.sink.Failed(id, err)
		return
	}
	if res.Status == Unsupported {
		d.stats.unsupported.Add(1)
		d.sink.Unsupported(id, out.Path, res.Caps)
		return
	}
	d.stats.applied.Add(1)
	d.sink.Applied(id, out.Path, out.Target, res.After, res.Clamped)
	d.trace(id)
}

// trace logs the window's geometry changes for a while after placement.
func (d *Dispatcher) trace(id platform.WindowID) {
	if d.watcher == nil {
		return
	}
	if _, err := d.watcher.WatchBounds(id, traceWindow, func(r platform.Rect) {
		d.sink.Moved(id, r)
	}); err != nil {
		d.sink.Error(fmt.Sprintf("failed to watch window %s", id), err)
	}
}

// Shutdown unregisters the notification handler and stops the dispatch
// loop. In-flight windows are waited for until ctx is done and abandoned
// after that.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	var err error
	d.shutdownOnce.Do(func() {
		if d.sub != nil {
			if cerr := d.sub.Close(); cerr != nil {
				err = fmt.Errorf("failed to unregister window notifications: %w", cerr)
			}
		}
		close(d.quit)
		if d.sub != nil {
			<-d.loopDone
		}

		done := make(chan struct{})
		go func() {
			d.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			d.sink.Info("abandoning in-flight windows")
		}
	})
	return err
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		StartedAt:   d.startedAt,
		Seen:        d.stats.seen.Load(),
		Matched:     d.stats.matched.Load(),
		Applied:     d.stats.applied.Load(),
		Unsupported: d.stats.unsupported.Load(),
		NotReady:    d.stats.notReady.Load(),
		NoProcess:   d.stats.noProcess.Load(),
		NoMatch:     d.stats.noMatch.Load(),
		Failed:      d.stats.failed.Load(),
	}
}
