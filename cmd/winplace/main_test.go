package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "window_positions.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestRulesValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeRules(t, "/usr/bin/xterm: [10, 20, 300, 200]\nbin/app: [1, 2, 3, 4]\n")

	out, err := runCLI(t, "rules", "validate", path)
	if err != nil {
		t.Fatalf("rules validate: %v", err)
	}
	if !strings.Contains(out, "OK: "+path+" (2 rules)") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, "warning: bin/app") {
		t.Fatalf("missing relative path warning in %q", out)
	}
}

func TestRulesValidate_Invalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeRules(t, "/usr/bin/xterm: [10, 20, 300]\n")

	if _, err := runCLI(t, "rules", "validate", path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRulesListAndLookup(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeRules(t, "windows:\n  /usr/bin/xterm: [10, 20, 300, 200]\n  /opt/App/app: [0, 0, 800, 600]\n")
	t.Setenv("WINPLACE_RULES_FILE", path)

	out, err := runCLI(t, "rules", "list")
	if err != nil {
		t.Fatalf("rules list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "/opt/App/app\t0,0 800x600") {
		t.Fatalf("rules list output = %q", out)
	}

	out, err = runCLI(t, "rules", "lookup", "/usr/bin/xterm")
	if err != nil {
		t.Fatalf("rules lookup: %v", err)
	}
	if strings.TrimSpace(out) != "/usr/bin/xterm\t10,20 300x200" {
		t.Fatalf("rules lookup output = %q", out)
	}

	if _, err := runCLI(t, "rules", "lookup", "/opt/app/app"); err == nil {
		t.Fatal("case-sensitive lookup matched a different-case path")
	}

	t.Setenv("WINPLACE_CASE_INSENSITIVE_PATHS", "true")
	if _, err := runCLI(t, "rules", "lookup", "/opt/app/app"); err != nil {
		t.Fatalf("case-insensitive lookup: %v", err)
	}
}

func TestStatus_NoDaemon(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	_, err := runCLI(t, "status")
	if err == nil || !strings.Contains(err.Error(), "is the daemon running?") {
		t.Fatalf("status error = %v", err)
	}
}

func TestSettingsDebugRaisesLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config string
		env    string
		want   zerolog.Level
	}{
		{"default", "", "", zerolog.InfoLevel},
		{"config file", "debug: true\n", "", zerolog.DebugLevel},
		{"environment", "", "true", zerolog.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv("WINPLACE_DEBUG", tt.env)
			t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

			rules := writeRules(t, "/usr/bin/xterm: [10, 20, 300, 200]\n")
			cfg := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(cfg, []byte(tt.config), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}

			if _, err := runCLI(t, "--config", cfg, "rules", "validate", rules); err != nil {
				t.Fatalf("rules validate: %v", err)
			}
			if got := zerolog.GlobalLevel(); got != tt.want {
				t.Fatalf("log level = %v, want %v", got, tt.want)
			}
		})
	}
}
