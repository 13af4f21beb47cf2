// Package diag implements the append-only diagnostics log. Every placement
// decision is written as one line; lines are never interleaved.
package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/1broseidon/winplace/internal/platform"
)

// Config holds configuration for the diagnostics sink.
type Config struct {
	// FilePath is the log file. Empty disables the file destination.
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
	// Mirror receives a copy of every line (console echo).
	Mirror io.Writer
}

// Sink is the diagnostics log. Safe for concurrent use.
type Sink struct {
	mu          sync.Mutex
	file        *os.File
	config      Config
	maxBytes    int64
	currentSize int64
	runID       string

	log zerolog.Logger
}

// New opens (or creates) the log file in append mode.
func New(cfg Config) (*Sink, error) {
	s := &Sink{
		config:   cfg,
		maxBytes: int64(cfg.MaxSizeMB) * 1024 * 1024,
		runID:    uuid.NewString(),
	}

	if cfg.FilePath != "" {
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}

		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
		}

		stat, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to stat log file: %w", err)
		}
		s.file = f
		s.currentSize = stat.Size()
	}

	out := zerolog.ConsoleWriter{
		Out:        lineWriter{s},
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	s.log = zerolog.New(out).With().Timestamp().Str("run", s.runID[:8]).Logger()
	return s, nil
}

// Discard returns a sink that drops every line.
func Discard() *Sink {
	s := &Sink{runID: uuid.NewString()}
	s.log = zerolog.Nop()
	return s
}

// Path returns the log file path, or "" when no file is attached.
func (s *Sink) Path() string {
	return s.config.FilePath
}

// RunID identifies this process run in the log.
func (s *Sink) RunID() string {
	return s.runID
}

// Logger exposes the sink for lifecycle lines (startup, shutdown).
func (s *Sink) Logger() *zerolog.Logger {
	return &s.log
}

// Info writes a single informational line.
func (s *Sink) Info(msg string) {
	s.log.Info().Msg(msg)
}

// Error writes a single error line.
func (s *Sink) Error(msg string, err error) {
	s.log.Error().Err(err).Msg(msg)
}

// Matched records a window whose executable has a configured rectangle.
func (s *Sink) Matched(win platform.WindowID, path string, current, target platform.Rect) {
	s.log.Info().
		Stringer("window", win).
		Str("path", path).
		Stringer("from", current).
		Stringer("to", target).
		Msg("Matched")
}

// NoMatch records a window whose executable is not in the table.
func (s *Sink) NoMatch(win platform.WindowID, path string) {
	s.log.Info().
		Stringer("window", win).
		Str("path", path).
		Msg("NoMatch")
}

// NotReady records a window skipped by the readiness check.
func (s *Sink) NotReady(win platform.WindowID, reason string) {
	s.log.Info().
		Stringer("window", win).
		Str("reason", reason).
		Msg("NotReady")
}

// NoOwningProcess records a window whose process could not be resolved.
func (s *Sink) NoOwningProcess(win platform.WindowID, err error) {
	s.log.Info().
		Stringer("window", win).
		Err(err).
		Msg("NoOwningProcess")
}

// Applied records a completed move and resize with the read-back bounds.
func (s *Sink) Applied(win platform.WindowID, path string, target, after platform.Rect, clamped bool) {
	ev := s.log.Info()
	if clamped {
		ev = s.log.Warn()
	}
	ev.Stringer("window", win).
		Str("path", path).
		Stringer("target", target).
		Stringer("now", after).
		Bool("clamped", clamped).
		Msg("Applied")
}

// Moved records a geometry change of a placed window. Debug level only.
func (s *Sink) Moved(win platform.WindowID, now platform.Rect) {
	s.log.Debug().
		Stringer("window", win).
		Stringer("now", now).
		Msg("Window now at")
}

// Unsupported records a matched window that cannot be moved and resized.
func (s *Sink) Unsupported(win platform.WindowID, path string, caps platform.Transform) {
	s.log.Info().
		Stringer("window", win).
		Str("path", path).
		Stringer("caps", caps).
		Msg("Unsupported")
}

// Failed records an unexpected per-window failure.
func (s *Sink) Failed(win platform.WindowID, err error) {
	s.log.Error().
		Stringer("window", win).
		Err(err).
		Msg("Failed")
}

// Close closes the log file.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// write appends one formatted line. Each line is a single write(2) on an
// O_APPEND descriptor, so a crash never leaves a buffered tail behind.
func (s *Sink) write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Mirror != nil {
		s.config.Mirror.Write(p)
	}

	if s.file == nil {
		return len(p), nil
	}

	if s.maxBytes > 0 && s.currentSize >= s.maxBytes {
		if err := s.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
		if s.file == nil {
			return len(p), nil
		}
	}

	n, err := s.file.Write(p)
	s.currentSize += int64(n)
	if err != nil {
		return n, err
	}
	return len(p), nil
}

// rotate renames winplace.log -> winplace.log.1 -> ... keeping MaxFiles
// rotated files.
func (s *Sink) rotate() error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}

	basePath := s.config.FilePath
	for i := s.config.MaxFiles; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", basePath, i)
		if i == s.config.MaxFiles {
			os.Remove(oldPath)
		} else {
			os.Rename(oldPath, fmt.Sprintf("%s.%d", basePath, i+1))
		}
	}

	if s.config.MaxFiles > 0 {
		if err := os.Rename(basePath, basePath+".1"); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	} else if err := os.Truncate(basePath, 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to truncate log file: %w", err)
	}

	f, err := os.OpenFile(basePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %w", err)
	}

	s.file = f
	s.currentSize = 0
	return nil
}

type lineWriter struct{ s *Sink }

func (w lineWriter) Write(p []byte) (int, error) { return w.s.write(p) }
