package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/winplace/internal/diag"
	"github.com/1broseidon/winplace/internal/platform"
	"github.com/1broseidon/winplace/internal/procinfo"
)

type fakeWindow struct {
	pid         int
	ready       bool
	noLifecycle bool
	readyErr    error
	pidErr      error
	caps        platform.Transform
	bounds      platform.Rect
	// clamp, when set, adjusts the rectangle the window actually ends up with.
	clamp      func(platform.Rect) platform.Rect
	panicOnPID bool
	// lag is how many Bounds reads after a geometry change still return the
	// previous rectangle.
	lag        int
	staleReads int
	stale      platform.Rect
	// readyDelay is how long WaitReady blocks before answering.
	readyDelay time.Duration
}

// fakeBackend is an in-memory window system.
type fakeBackend struct {
	mu       sync.Mutex
	windows  map[platform.WindowID]*fakeWindow
	existing []platform.WindowID
	handler  func(platform.Event)
	subErr   error
	subs     int
	closed   bool

	moves   map[platform.WindowID][]platform.Rect
	resizes map[platform.WindowID][]platform.Rect
	watched []platform.WindowID
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		windows: make(map[platform.WindowID]*fakeWindow),
		moves:   make(map[platform.WindowID][]platform.Rect),
		resizes: make(map[platform.WindowID][]platform.Rect),
	}
}

func movable() platform.Transform {
	return platform.Transform{Supported: true, CanMove: true, CanResize: true}
}

// addWindow registers a ready, movable window owned by pid.
func (f *fakeBackend) addWindow(id platform.WindowID, pid int) *fakeWindow {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWindow{
		pid:    pid,
		ready:  true,
		caps:   movable(),
		bounds: platform.Rect{X: 10, Y: 10, Width: 300, Height: 200},
	}
	f.windows[id] = w
	return w
}

func (f *fakeBackend) addExisting(id platform.WindowID, pid int) *fakeWindow {
	w := f.addWindow(id, pid)
	f.mu.Lock()
	f.existing = append(f.existing, id)
	f.mu.Unlock()
	return w
}

func (f *fakeBackend) emit(ev platform.Event) {
	f.mu.Lock()
	h := f.handler
	closed := f.closed
	f.mu.Unlock()
	if h != nil && !closed {
		h(ev)
	}
}

func (f *fakeBackend) window(id platform.WindowID) (*fakeWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return nil, platform.ErrWindowGone
	}
	return w, nil
}

func (f *fakeBackend) TopLevelWindows() ([]platform.WindowID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.WindowID(nil), f.existing...), nil
}

func (f *fakeBackend) SubscribeWindows(handler func(platform.Event)) (platform.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.subs++
	f.handler = handler
	return fakeSub{f}, nil
}

type fakeSub struct{ f *fakeBackend }

func (s fakeSub) Close() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.closed = true
	s.f.handler = nil
	return nil
}

func (f *fakeBackend) WaitReady(id platform.WindowID, _ time.Duration) (bool, error) {
	w, err := f.window(id)
	if err != nil {
		return false, err
	}
	if w.noLifecycle {
		return false, platform.ErrNoLifecycle
	}
	if w.readyDelay > 0 {
		time.Sleep(w.readyDelay)
	}
	if w.readyErr != nil {
		return false, w.readyErr
	}
	return w.ready, nil
}

func (f *fakeBackend) ProcessID(id platform.WindowID) (int, error) {
	w, err := f.window(id)
	if err != nil {
		return 0, err
	}
	if w.panicOnPID {
		panic(fmt.Sprintf("corrupt window %s", id))
	}
	if w.pidErr != nil {
		return 0, w.pidErr
	}
	return w.pid, nil
}

func (f *fakeBackend) Transform(id platform.WindowID) (platform.Transform, error) {
	w, err := f.window(id)
	if err != nil {
		return platform.Transform{}, err
	}
	return w.caps, nil
}

func (f *fakeBackend) Move(id platform.WindowID, x, y int) error {
	w, err := f.window(id)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves[id] = append(f.moves[id], platform.Rect{X: x, Y: y})
	w.startLag()
	w.bounds.X, w.bounds.Y = x, y
	if w.clamp != nil {
		w.bounds = w.clamp(w.bounds)
	}
	return nil
}

func (f *fakeBackend) Resize(id platform.WindowID, width, height int) error {
	w, err := f.window(id)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes[id] = append(f.resizes[id], platform.Rect{Width: width, Height: height})
	w.startLag()
	w.bounds.Width, w.bounds.Height = width, height
	if w.clamp != nil {
		w.bounds = w.clamp(w.bounds)
	}
	return nil
}

func (f *fakeBackend) Bounds(id platform.WindowID) (platform.Rect, error) {
	w, err := f.window(id)
	if err != nil {
		return platform.Rect{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if w.staleReads > 0 {
		w.staleReads--
		return w.stale, nil
	}
	return w.bounds, nil
}

// startLag keeps reporting the pre-change bounds for the next lag reads.
func (w *fakeWindow) startLag() {
	if w.lag == 0 {
		return
	}
	if w.staleReads == 0 {
		w.stale = w.bounds
	}
	w.staleReads = w.lag
}

func (f *fakeBackend) Displays() ([]platform.Display, error) {
	return []platform.Display{{ID: 0, Name: "fake", Bounds: platform.Rect{Width: 1920, Height: 1080}}}, nil
}

// WatchBounds reports the current bounds once, as if the window manager had
// sent a single ConfigureNotify.
func (f *fakeBackend) WatchBounds(id platform.WindowID, _ time.Duration, fn func(platform.Rect)) (func(), error) {
	bounds, err := f.Bounds(id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.watched = append(f.watched, id)
	f.mu.Unlock()
	fn(bounds)
	return func() {}, nil
}

func (f *fakeBackend) watchedWindows() []platform.WindowID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.WindowID(nil), f.watched...)
}

func (f *fakeBackend) moveCount(id platform.WindowID) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.moves[id]), len(f.resizes[id])
}

func (f *fakeBackend) totalGeometryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.moves {
		n += len(m)
	}
	for _, r := range f.resizes {
		n += len(r)
	}
	return n
}

// fakeResolver maps pids to executable paths.
type fakeResolver map[int]string

func (r fakeResolver) Executable(pid int) (string, error) {
	p, ok := r[pid]
	if !ok {
		return "", fmt.Errorf("%w: pid %d", procinfo.ErrNoProcess, pid)
	}
	return p, nil
}

func newTestSink(t *testing.T) (*diag.Sink, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winplace.log")
	s, err := diag.New(diag.Config{FilePath: path, MaxSizeMB: 10, MaxFiles: 1})
	if err != nil {
		t.Fatalf("diag.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

// countLines counts log lines carrying the given event message.
func countLines(t *testing.T, path, msg string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, " "+msg+" ") {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
