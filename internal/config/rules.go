package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/winplace/internal/platform"
	"github.com/1broseidon/winplace/internal/rects"
)

// windowsPath matches drive-letter and UNC paths, which are kept verbatim.
var windowsPath = regexp.MustCompile(`^([A-Za-z]:[\\/]|\\\\)`)

// Rules is a parsed rectangle table file.
type Rules struct {
	File    string
	Entries map[string]platform.Rect
	// Warnings lists entries that load but are unlikely to ever match.
	Warnings []string
	// FoldCase makes paths that differ only in case the same entry.
	FoldCase bool

	folded map[string]string
}

// RulesOption configures rules loading.
type RulesOption func(*Rules)

// FoldCase loads rules for case-insensitive lookup. Two entries whose paths
// differ only in case are rejected as duplicates.
func FoldCase(enabled bool) RulesOption {
	return func(r *Rules) { r.FoldCase = enabled }
}

func newRules(file string, opts []RulesOption) *Rules {
	r := &Rules{File: file, Entries: map[string]platform.Rect{}, folded: map[string]string{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Table builds the immutable lookup table.
func (r *Rules) Table() *rects.Table {
	var opts []rects.Option
	if r.FoldCase {
		opts = append(opts, rects.CaseInsensitive())
	}
	return rects.New(r.Entries, opts...)
}

// Paths returns the configured executable paths in sorted order.
func (r *Rules) Paths() []string {
	out := make([]string, 0, len(r.Entries))
	for p := range r.Entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// LoadRules reads a rules file. The format follows the extension: .toml is
// TOML, anything else (.yaml, .yml, .json) goes through the YAML decoder,
// which also accepts JSON.
func LoadRules(path string, opts ...RulesOption) (*Rules, error) {
	canon, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	data, err := os.ReadFile(canon)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", canon, err)
	}

	if strings.EqualFold(filepath.Ext(canon), ".toml") {
		return parseTOMLRules(data, canon, opts)
	}
	return ParseRules(data, canon, opts...)
}

// ParseRules parses YAML or JSON rules. Two layouts are accepted: a
// top-level mapping of path to [left, top, width, height], or the same
// mapping under a "windows" key.
func ParseRules(data []byte, file string, opts ...RulesOption) (*Rules, error) {
	rules := newRules(file, opts)

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: failed to parse: %w", file, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return rules, nil
	}

	node := doc.Content[0]
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return rules, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &ValidationError{File: file, Line: node.Line, Column: node.Column, Err: fmt.Errorf("expected a mapping of executable path to [left, top, width, height]")}
	}
	if len(node.Content) == 2 && node.Content[0].Value == "windows" {
		node = node.Content[1]
		if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
			return rules, nil
		}
		if node.Kind != yaml.MappingNode {
			return nil, &ValidationError{Path: "windows", File: file, Line: node.Line, Column: node.Column, Err: fmt.Errorf("must be a mapping")}
		}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var values []int
		if err := valNode.Decode(&values); err != nil {
			return nil, &ValidationError{Path: keyNode.Value, File: file, Line: valNode.Line, Column: valNode.Column, Err: fmt.Errorf("expected [left, top, width, height]: %w", err)}
		}
		if err := rules.add(keyNode.Value, values); err != nil {
			err.File, err.Line, err.Column = file, keyNode.Line, keyNode.Column
			return nil, err
		}
	}
	return rules, nil
}

type tomlRules struct {
	Windows map[string][]int `toml:"windows"`
}

func parseTOMLRules(data []byte, file string, opts []RulesOption) (*Rules, error) {
	var raw tomlRules
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse toml: %w", file, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", file, strings.Join(keys, ", "))
	}

	rules := newRules(file, opts)
	paths := make([]string, 0, len(raw.Windows))
	for p := range raw.Windows {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := rules.add(p, raw.Windows[p]); err != nil {
			err.File = file
			return nil, err
		}
	}
	return rules, nil
}

func (r *Rules) add(key string, values []int) *ValidationError {
	if strings.TrimSpace(key) == "" {
		return &ValidationError{Path: key, Err: fmt.Errorf("executable path must not be empty")}
	}
	if len(values) != 4 {
		return &ValidationError{Path: key, Err: fmt.Errorf("expected 4 integers [left, top, width, height], got %d", len(values))}
	}
	if values[2] <= 0 || values[3] <= 0 {
		return &ValidationError{Path: key, Err: fmt.Errorf("width and height must be > 0, got %dx%d", values[2], values[3])}
	}

	path := key
	if !windowsPath.MatchString(key) {
		path = filepath.Clean(key)
		if !filepath.IsAbs(path) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s: path is not absolute and will only match an identical executable path", key))
		}
	}
	if _, dup := r.Entries[path]; dup {
		return &ValidationError{Path: key, Err: fmt.Errorf("duplicate entry for %s", path)}
	}
	if r.FoldCase {
		if r.folded == nil {
			r.folded = map[string]string{}
		}
		fold := strings.ToLower(path)
		if prev, dup := r.folded[fold]; dup {
			return &ValidationError{Path: key, Err: fmt.Errorf("duplicate entry for %s: same path as %s when case is ignored", path, prev)}
		}
		r.folded[fold] = path
	}

	r.Entries[path] = platform.Rect{X: values[0], Y: values[1], Width: values[2], Height: values[3]}
	return nil
}
