package mcp

import (
	"context"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winplace/internal/config"
	"github.com/1broseidon/winplace/internal/ipc"
	"github.com/1broseidon/winplace/internal/platform"
	"github.com/1broseidon/winplace/internal/procinfo"
	"github.com/1broseidon/winplace/internal/rects"
)

const (
	ServerName    = "winplace"
	ServerVersion = "0.1.0"
)

// Options wires the server to its collaborators. Backend is opened on the
// first probe_windows call so the server can start without a display.
type Options struct {
	Rules    *config.Rules
	Backend  func() (platform.Backend, error)
	Resolver procinfo.Resolver
	Status   func() (*ipc.StatusData, error)
}

// Server is the read-only MCP surface over the rules table, live windows
// and a running daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	rulesFile string
	table     *rects.Table

	openBackend func() (platform.Backend, error)
	resolver    procinfo.Resolver
	status      func() (*ipc.StatusData, error)

	backendOnce sync.Once
	backend     platform.Backend
	backendErr  error
}

// NewServer creates a new MCP server.
func NewServer(opts Options) *Server {
	s := &Server{
		openBackend: opts.Backend,
		resolver:    opts.Resolver,
		status:      opts.Status,
	}
	if opts.Rules != nil {
		s.rulesFile = opts.Rules.File
		s.table = opts.Rules.Table()
	} else {
		s.table = rects.New(nil)
	}
	if s.openBackend == nil {
		s.openBackend = platform.NewBackend
	}
	if s.resolver == nil {
		s.resolver = procinfo.NewResolver()
	}
	if s.status == nil {
		s.status = func() (*ipc.StatusData, error) { return ipc.NewClient().Status() }
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_rules",
		Description: "List the configured placement rules: executable path and the rectangle (x, y, width, height) its windows are moved to.",
	}, s.handleListRules)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "lookup_rule",
		Description: "Look up the placement rule for a full executable path. Matching is exact (case folding only when case_insensitive_paths is enabled).",
	}, s.handleLookupRule)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "probe_windows",
		Description: "Enumerate current top-level windows and report what the daemon would do with each (NotReady, NoOwningProcess, NoMatch, Matched). Nothing is moved.",
	}, s.handleProbeWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "daemon_status",
		Description: "Report whether a winplace daemon is running and its placement counters.",
	}, s.handleDaemonStatus)
}

func (s *Server) getBackend() (platform.Backend, error) {
	s.backendOnce.Do(func() {
		s.backend, s.backendErr = s.openBackend()
	})
	return s.backend, s.backendErr
}
