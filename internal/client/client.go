// Package client implements the one-shot command side of the pomidoro IPC:
// connect, send a single framed command, await a single framed response under
// a bounded timeout.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pomidoro/pomidoro/internal/endpoint"
	"github.com/pomidoro/pomidoro/internal/logger"
	"github.com/pomidoro/pomidoro/internal/protocol"
)

// ErrorKind classifies a client-side failure. The kinds are deliberately
// distinct: Unreachable means "no server", Timeout means "server present but
// unresponsive", Decode means the server answered garbage.
type ErrorKind int

const (
	// KindUnreachable means no listener exists at the endpoint path.
	KindUnreachable ErrorKind = iota
	// KindTimeout means the response did not arrive within the configured bound.
	KindTimeout
	// KindDecode means the response bytes could not be decoded.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "server unreachable"
	case KindTimeout:
		return "timeout"
	case KindDecode:
		return "decode failure"
	default:
		return "unknown"
	}
}

// Error is a classified client failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client sends single commands to a daemon endpoint. It holds no connection
// between calls and never retries; retry policy belongs to the caller.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// New creates a client for the endpoint at socketPath. timeout bounds both
// the connection attempt and the wait for a response.
func New(socketPath string, timeout time.Duration) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// SocketPath returns the endpoint path the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Send issues one command and returns the decoded response. A response with
// OK=false is still a successful Send: semantic rejections travel as data.
// Failures come back as *Error with a distinguishable kind.
func (c *Client) Send(cmd protocol.Command) (*protocol.Response, error) {
	conn, err := endpoint.Connect(c.socketPath, c.timeout)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Err: err}
	}
	defer conn.Close()

	req := protocol.NewRequest(cmd)
	logger.Debug("Sending %s to %s (request %s)", cmd, c.socketPath, req.RequestID)

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := protocol.WriteMessage(conn, req); err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindUnreachable, Err: err}
	}

	resp, err := protocol.ReadResponse(bufio.NewReader(conn))
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindDecode, Err: err}
	}

	if resp.RequestID != "" && resp.RequestID != req.RequestID {
		return nil, &Error{
			Kind: KindDecode,
			Err:  fmt.Errorf("response for request %s, expected %s", resp.RequestID, req.RequestID),
		}
	}

	return resp, nil
}

func isTimeout(err error) bool {
	if os.IsTimeout(err) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
