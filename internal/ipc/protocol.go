package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/winplace/internal/daemon"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus CommandType = "GET_STATUS"
	CommandListRules CommandType = "LIST_RULES"
	CommandStop      CommandType = "STOP"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning bool         `json:"daemon_running"`
	PID           int          `json:"pid"`
	RunID         string       `json:"run_id,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	RulesFile     string       `json:"rules_file,omitempty"`
	RuleCount     int          `json:"rule_count"`
	LogFile       string       `json:"log_file,omitempty"`
	Stats         daemon.Stats `json:"stats"`
}

// RuleInfo is one entry of the rectangle table.
type RuleInfo struct {
	Path   string `json:"path"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RulesData represents the data returned by LIST_RULES
type RulesData struct {
	File            string     `json:"file,omitempty"`
	CaseInsensitive bool       `json:"case_insensitive"`
	Rules           []RuleInfo `json:"rules"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
