package diag

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/winplace/internal/platform"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestSink_OneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "winplace.log")
	s, err := New(Config{FilePath: path, MaxSizeMB: 10, MaxFiles: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	win := platform.WindowID(0x1a00003)
	target := platform.Rect{X: 100, Y: 50, Width: 800, Height: 600}
	s.Matched(win, `C:\Apps\foo.exe`, platform.Rect{Width: 300, Height: 200}, target)
	s.Applied(win, `C:\Apps\foo.exe`, target, target, false)
	s.NoMatch(win, "/usr/bin/other")
	s.NotReady(win, "timed out")
	s.NoOwningProcess(win, errors.New("gone"))
	s.Unsupported(win, "/usr/bin/fixed", platform.Transform{Supported: true, CanMove: true})
	s.Failed(win, errors.New("boom"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, path)
	want := []string{" Matched ", " Applied ", " NoMatch ", " NotReady ", " NoOwningProcess ", " Unsupported ", " Failed "}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i, w := range want {
		if !strings.Contains(lines[i], w) {
			t.Errorf("line %d = %q, want it to contain %q", i, lines[i], w)
		}
		if !strings.Contains(lines[i], "window=0x1a00003") {
			t.Errorf("line %d = %q, missing window id", i, lines[i])
		}
	}
	if !strings.Contains(lines[0], "100,50 800x600") {
		t.Errorf("matched line missing target rect: %q", lines[0])
	}
}

func TestSink_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winplace.log")
	for i := 0; i < 2; i++ {
		s, err := New(Config{FilePath: path, MaxSizeMB: 10, MaxFiles: 3})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		s.Info(fmt.Sprintf("start %d", i))
		s.Close()
	}
	if got := len(readLines(t, path)); got != 2 {
		t.Fatalf("got %d lines, want 2", got)
	}
}

func TestSink_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winplace.log")
	s, err := New(Config{FilePath: path, MaxSizeMB: 10, MaxFiles: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const writers, perWriter = 16, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.NoMatch(platform.WindowID(w*1000+i), strings.Repeat("x", 200))
			}
		}(w)
	}
	wg.Wait()
	s.Close()

	lines := readLines(t, path)
	if len(lines) != writers*perWriter {
		t.Fatalf("got %d lines, want %d", len(lines), writers*perWriter)
	}
	for i, line := range lines {
		if strings.Count(line, " NoMatch ") != 1 || !strings.Contains(line, strings.Repeat("x", 200)) {
			t.Fatalf("line %d is torn: %q", i, line)
		}
	}
}

func TestSink_Mirror(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(Config{Mirror: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Info("Listening for windows...")
	if !strings.Contains(buf.String(), "Listening for windows...") {
		t.Fatalf("mirror output = %q", buf.String())
	}
	if s.Path() != "" {
		t.Fatalf("Path() = %q, want empty", s.Path())
	}
}

func TestSink_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winplace.log")
	s, err := New(Config{FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.maxBytes = 256

	for i := 0; i < 20; i++ {
		s.NoMatch(platform.WindowID(i), "/usr/bin/app")
	}
	s.Close()

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected %s.3 to be pruned, stat err = %v", path, err)
	}
}

func TestDiscard(t *testing.T) {
	s := Discard()
	s.Matched(1, "/bin/a", platform.Rect{}, platform.Rect{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
