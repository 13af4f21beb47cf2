package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winplace/internal/daemon"
	"github.com/1broseidon/winplace/internal/ipc"
	"github.com/1broseidon/winplace/internal/platform"
)

const (
	defaultProbeTimeout = 500 * time.Millisecond
	maxProbeTimeout     = 10 * time.Second
)

func (s *Server) handleListRules(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListRulesInput) (*mcpsdk.CallToolResult, ListRulesOutput, error) {
	return nil, ListRulesOutput{
		File:            s.rulesFile,
		CaseInsensitive: s.table.CaseInsensitive(),
		Rules:           ipc.RulesFromTable(s.table),
	}, nil
}

func (s *Server) handleLookupRule(_ context.Context, _ *mcpsdk.CallToolRequest, args LookupRuleInput) (*mcpsdk.CallToolResult, LookupRuleOutput, error) {
	if args.Path == "" {
		return nil, LookupRuleOutput{}, fmt.Errorf("path is required")
	}
	out := LookupRuleOutput{Path: args.Path}
	if r, ok := s.table.Lookup(args.Path); ok {
		out.Matched = true
		out.Rule = &ipc.RuleInfo{Path: args.Path, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}
	return nil, out, nil
}

func (s *Server) handleProbeWindows(ctx context.Context, _ *mcpsdk.CallToolRequest, args ProbeWindowsInput) (*mcpsdk.CallToolResult, ProbeWindowsOutput, error) {
	timeout := time.Duration(args.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if timeout > maxProbeTimeout {
		timeout = maxProbeTimeout
	}

	backend, err := s.getBackend()
	if err != nil {
		return nil, ProbeWindowsOutput{}, fmt.Errorf("failed to connect to window system: %w", err)
	}
	ids, err := backend.TopLevelWindows()
	if err != nil {
		return nil, ProbeWindowsOutput{}, fmt.Errorf("failed to enumerate windows: %w", err)
	}

	displays, _ := backend.Displays()
	prober := daemon.NewProber(backend, s.table, s.resolver, timeout)
	results := make([]WindowProbe, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id platform.WindowID) {
			defer wg.Done()
			results[i] = describe(id, prober.Probe(id), displays)
		}(i, id)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ProbeWindowsOutput{}, ctx.Err()
	}

	out := ProbeWindowsOutput{Windows: results, Counts: map[string]int{}}
	for _, r := range results {
		out.Counts[r.Outcome]++
	}
	return nil, out, nil
}

func describe(id platform.WindowID, o daemon.Outcome, displays []platform.Display) WindowProbe {
	p := WindowProbe{Window: id.String(), Outcome: o.Kind.String(), Path: o.Path, Reason: o.Reason}
	if o.Err != nil {
		p.Reason = o.Err.Error()
	}
	if o.Kind == daemon.Matched {
		p.Current = rectInfo(o.Current)
		p.Target = rectInfo(o.Target)
		if d, ok := daemon.DisplayFor(displays, o.Target); ok {
			p.Display = d.Name
		}
	}
	return p
}

func rectInfo(r platform.Rect) *RectInfo {
	return &RectInfo{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func (s *Server) handleDaemonStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ DaemonStatusInput) (*mcpsdk.CallToolResult, DaemonStatusOutput, error) {
	status, err := s.status()
	if err != nil {
		return nil, DaemonStatusOutput{Running: false, Error: err.Error()}, nil
	}
	st := status.Stats
	return nil, DaemonStatusOutput{
		Running:       status.DaemonRunning,
		PID:           status.PID,
		UptimeSeconds: status.UptimeSeconds,
		RulesFile:     status.RulesFile,
		RuleCount:     status.RuleCount,
		Counters: map[string]int64{
			"seen":        st.Seen,
			"matched":     st.Matched,
			"applied":     st.Applied,
			"unsupported": st.Unsupported,
			"not_ready":   st.NotReady,
			"no_process":  st.NoProcess,
			"no_match":    st.NoMatch,
			"failed":      st.Failed,
		},
	}, nil
}
