// Package rects holds the immutable executable-path to target-rectangle table.
package rects

import (
	"sort"
	"strings"

	"github.com/1broseidon/winplace/internal/platform"
)

// Table maps executable paths to target rectangles. It is read-only after
// construction and safe for concurrent use.
type Table struct {
	entries map[string]platform.Rect
	fold    bool
}

// Option configures a Table.
type Option func(*Table)

// CaseInsensitive makes lookups ignore letter case.
func CaseInsensitive() Option {
	return func(t *Table) { t.fold = true }
}

// New builds a table from entries. The map is copied. With CaseInsensitive,
// keys differing only in case collapse to one entry; the lexically last
// original key wins so the result does not depend on map order.
func New(entries map[string]platform.Rect, opts ...Option) *Table {
	t := &Table{entries: make(map[string]platform.Rect, len(entries))}
	for _, opt := range opts {
		opt(t)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.entries[t.key(k)] = entries[k]
	}
	return t
}

// Lookup returns the target rectangle for an executable path.
func (t *Table) Lookup(path string) (platform.Rect, bool) {
	if t == nil {
		return platform.Rect{}, false
	}
	r, ok := t.entries[t.key(path)]
	return r, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Paths returns the table keys in sorted order. Keys are folded to lower case
// when the table is case-insensitive.
func (t *Table) Paths() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CaseInsensitive reports whether lookups fold case.
func (t *Table) CaseInsensitive() bool {
	return t != nil && t.fold
}

func (t *Table) key(path string) string {
	if t.fold {
		return strings.ToLower(path)
	}
	return path
}
