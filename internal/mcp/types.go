package mcp

import "github.com/1broseidon/winplace/internal/ipc"

// ListRulesInput is the input for the list_rules tool.
type ListRulesInput struct{}

// ListRulesOutput is the output for the list_rules tool.
type ListRulesOutput struct {
	File            string         `json:"file,omitempty"`
	CaseInsensitive bool           `json:"case_insensitive"`
	Rules           []ipc.RuleInfo `json:"rules"`
}

// LookupRuleInput is the input for the lookup_rule tool.
type LookupRuleInput struct {
	Path string `json:"path" jsonschema:"required,Full executable path to look up (e.g. /usr/bin/xterm)"`
}

// LookupRuleOutput is the output for the lookup_rule tool.
type LookupRuleOutput struct {
	Path    string        `json:"path"`
	Matched bool          `json:"matched"`
	Rule    *ipc.RuleInfo `json:"rule,omitempty"`
}

// ProbeWindowsInput is the input for the probe_windows tool.
type ProbeWindowsInput struct {
	TimeoutMs int `json:"timeout_ms,omitempty" jsonschema:"Per-window readiness timeout in milliseconds (default: 500, max: 10000)"`
}

// RectInfo is a rectangle in screen coordinates.
type RectInfo struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowProbe is the probe outcome for one top-level window.
type WindowProbe struct {
	Window  string    `json:"window"`
	Outcome string    `json:"outcome"`
	Path    string    `json:"path,omitempty"`
	Current *RectInfo `json:"current,omitempty"`
	Target  *RectInfo `json:"target,omitempty"`
	Display string    `json:"display,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// ProbeWindowsOutput is the output for the probe_windows tool.
type ProbeWindowsOutput struct {
	Windows []WindowProbe  `json:"windows"`
	Counts  map[string]int `json:"counts"`
}

// DaemonStatusInput is the input for the daemon_status tool.
type DaemonStatusInput struct{}

// DaemonStatusOutput is the output for the daemon_status tool.
type DaemonStatusOutput struct {
	Running       bool             `json:"running"`
	PID           int              `json:"pid,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds,omitempty"`
	RulesFile     string           `json:"rules_file,omitempty"`
	RuleCount     int              `json:"rule_count,omitempty"`
	Counters      map[string]int64 `json:"counters,omitempty"`
	Error         string           `json:"error,omitempty"`
}
