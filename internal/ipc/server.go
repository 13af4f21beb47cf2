package ipc

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/1broseidon/winplace/internal/daemon"
	"github.com/1broseidon/winplace/internal/rects"
	"github.com/1broseidon/winplace/internal/runtimepath"
)

// StatsSource is the part of the dispatcher the server reports on.
type StatsSource interface {
	Stats() daemon.Stats
}

// ServerConfig describes what the server reports.
type ServerConfig struct {
	Source    StatsSource
	Table     *rects.Table
	RulesFile string
	LogFile   string
	RunID     string
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	cfg        ServerConfig
	startTime  time.Time

	stopOnce sync.Once
	stopCh   chan struct{}

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server bound to the runtime socket path.
func NewServer(cfg ServerConfig) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Stale socket from a crashed run; the instance lock is already held.
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		cfg:        cfg,
		startTime:  time.Now(),
		stopCh:     make(chan struct{}),
	}, nil
}

// SocketPath returns the socket the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// StopRequested is closed once a client sends STOP.
func (s *Server) StopRequested() <-chan struct{} {
	return s.stopCh
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Debug().Str("socket", s.socketPath).Msg("IPC server listening")

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Warn().Err(err).Msg("IPC accept error")
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	reader := bufio.NewReader(conn)

	// One JSON request per line.
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Warn().Err(err).Msg("IPC read error")
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.send(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}

	resp := s.handleCommand(req)
	s.send(conn, resp)

	// STOP is acknowledged before shutdown starts.
	if req.Command == CommandStop {
		s.stopOnce.Do(func() { close(s.stopCh) })
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListRules:
		return s.handleListRules()
	case CommandStop:
		log.Info().Msg("IPC: Received STOP command")
		resp, _ := NewOKResponse(nil)
		return resp
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		DaemonRunning: true,
		PID:           os.Getpid(),
		RunID:         s.cfg.RunID,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		RulesFile:     s.cfg.RulesFile,
		LogFile:       s.cfg.LogFile,
	}
	if s.cfg.Table != nil {
		status.RuleCount = s.cfg.Table.Len()
	}
	if s.cfg.Source != nil {
		status.Stats = s.cfg.Source.Stats()
	}

	resp, err := NewOKResponse(status)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleListRules() *Response {
	data := RulesData{File: s.cfg.RulesFile, Rules: []RuleInfo{}}
	if s.cfg.Table != nil {
		data.Rules = RulesFromTable(s.cfg.Table)
		data.CaseInsensitive = s.cfg.Table.CaseInsensitive()
	}

	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// RulesFromTable lists the table entries in path order.
func RulesFromTable(t *rects.Table) []RuleInfo {
	paths := t.Paths()
	out := make([]RuleInfo, 0, len(paths))
	for _, p := range paths {
		r, ok := t.Lookup(p)
		if !ok {
			continue
		}
		out = append(out, RuleInfo{Path: p, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
	}
	return out
}

func (s *Server) send(conn net.Conn, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal response")
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		log.Warn().Err(err).Msg("Failed to send response")
	}
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
