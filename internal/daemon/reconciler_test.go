package daemon

import (
	"testing"

	"github.com/1broseidon/winplace/internal/platform"
	"github.com/1broseidon/winplace/internal/rects"
)

func TestReconcile_PrunesVanishedWindows(t *testing.T) {
	f := newFakeBackend()
	f.addExisting(1, 7)
	f.addWindow(2, 7)
	table := rects.New(map[string]platform.Rect{fooPath: fooRect})

	d := New(f, table, fakeResolver{7: fooPath}, nil, Options{ReconcileInterval: -1})
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer shutdown(t, d)

	// Window 2 is handled but its close notification is never delivered.
	f.emit(platform.Event{Kind: platform.WindowOpened, Window: 2})
	waitFor(t, "window 2 handled", func() bool { return d.Stats().Seen == 2 })

	if n := d.reconcile(); n != 1 {
		t.Fatalf("reconcile pruned %d, want 1", n)
	}

	// The id is free again; the still-listed window 1 is not.
	f.emit(platform.Event{Kind: platform.WindowOpened, Window: 2})
	f.emit(platform.Event{Kind: platform.WindowOpened, Window: 1})
	waitFor(t, "window 2 handled again", func() bool { return d.Stats().Seen == 3 })
	if n := d.reconcile(); n != 1 {
		t.Fatalf("second reconcile pruned %d, want 1", n)
	}
	if got := d.Stats().Seen; got != 3 {
		t.Fatalf("Seen = %d, want 3", got)
	}
}

func TestReconcile_NothingDispatched(t *testing.T) {
	f := newFakeBackend()
	d := New(f, rects.New(nil), fakeResolver{}, nil, Options{ReconcileInterval: -1})
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer shutdown(t, d)

	if n := d.reconcile(); n != 0 {
		t.Fatalf("reconcile pruned %d, want 0", n)
	}
}
