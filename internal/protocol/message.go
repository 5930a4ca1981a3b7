// Package protocol defines the framed command/response vocabulary exchanged
// between the pomidoro client and the timer daemon over the Unix socket.
//
// Each connection carries exactly one request and one response, both encoded
// as a single newline-delimited JSON object. Line framing keeps partial reads
// unambiguous: a message is complete when its terminating newline arrives.
package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// MaxMessageSize bounds a single framed message. Requests and responses are
// tiny; anything larger is malformed input.
const MaxMessageSize = 64 * 1024

// Command identifies a client request.
type Command string

const (
	// CommandStart begins a work phase from Idle.
	CommandStart Command = "start"
	// CommandStop resets the timer to Idle regardless of elapsed time.
	CommandStop Command = "stop"
	// CommandStatus reads the current phase and remaining time.
	CommandStatus Command = "status"
	// CommandToggle pauses a running phase or resumes a paused one.
	CommandToggle Command = "toggle"
	// CommandSkip ends the current phase immediately and moves to the next.
	CommandSkip Command = "skip"
	// CommandStats reads session history aggregates.
	CommandStats Command = "stats"
	// CommandShutdown asks the daemon to acknowledge and exit gracefully.
	CommandShutdown Command = "shutdown"
)

// Valid reports whether c is a known command tag.
func (c Command) Valid() bool {
	switch c {
	case CommandStart, CommandStop, CommandStatus, CommandToggle, CommandSkip,
		CommandStats, CommandShutdown:
		return true
	}
	return false
}

// ErrorKind classifies a semantic rejection or protocol failure reported by
// the server. These travel as data, never as process failures.
type ErrorKind string

const (
	// ErrAlreadyRunning rejects Start while a phase is in progress.
	ErrAlreadyRunning ErrorKind = "already_running"
	// ErrNotRunning rejects Stop, Toggle and Skip while Idle.
	ErrNotRunning ErrorKind = "not_running"
	// ErrMalformedRequest reports undecodable bytes or an unknown command tag.
	ErrMalformedRequest ErrorKind = "malformed_request"
	// ErrInternal reports a server-side failure unrelated to timer state,
	// e.g. the history store being unavailable.
	ErrInternal ErrorKind = "internal"
)

// Request is a single framed client command.
type Request struct {
	RequestID string  `json:"request_id"`
	Command   Command `json:"command"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// NewRequest creates a request for cmd with a fresh correlation ID.
func NewRequest(cmd Command) *Request {
	return &Request{
		RequestID: uuid.New().String(),
		Command:   cmd,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// StateData describes the timer at the moment a command was applied.
type StateData struct {
	Phase     string        `json:"phase"`
	Remaining time.Duration `json:"remaining"`
	Duration  time.Duration `json:"duration"`
	Paused    bool          `json:"paused,omitempty"`
	Percent   int           `json:"percent"`
}

// StatsData carries session history aggregates.
type StatsData struct {
	SessionsToday  int           `json:"sessions_today"`
	CompletedToday int           `json:"completed_today"`
	FocusToday     time.Duration `json:"focus_today"`
	TotalSessions  int           `json:"total_sessions"`
}

// ErrorInfo contains error details for a rejected request.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

// Response is the single framed server reply.
type Response struct {
	RequestID string     `json:"request_id,omitempty"`
	OK        bool       `json:"ok"`
	State     *StateData `json:"state,omitempty"`
	Stats     *StatsData `json:"stats,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
}

// OKResponse builds a success response echoing the request ID.
func OKResponse(requestID string, state *StateData) *Response {
	return &Response{RequestID: requestID, OK: true, State: state}
}

// ErrResponse builds a failure response echoing the request ID.
func ErrResponse(requestID string, kind ErrorKind, message string) *Response {
	return &Response{
		RequestID: requestID,
		OK:        false,
		Error:     &ErrorInfo{Kind: kind, Message: message},
	}
}

// WriteMessage encodes v as one newline-terminated JSON line.
func WriteMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ReadRequest reads exactly one framed request line from r.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

// ReadResponse reads exactly one framed response line from r.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if len(line) > 0 && err == io.EOF {
			// Tolerate a missing trailing newline on the final message.
			return line, nil
		}
		return nil, err
	}
	if len(line) > MaxMessageSize {
		return nil, fmt.Errorf("message exceeds %d bytes", MaxMessageSize)
	}
	return line, nil
}
