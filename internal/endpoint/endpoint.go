// Package endpoint manages the filesystem rendezvous point between the
// pomidoro client and daemon: one Unix socket per user under the configured
// socket directory.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pomidoro/pomidoro/internal/logger"
)

var (
	// ErrBusy means an active server already owns the socket path.
	ErrBusy = errors.New("endpoint busy: another server is running")
	// ErrUnavailable means binding failed even after stale cleanup.
	ErrUnavailable = errors.New("endpoint unavailable")
	// ErrUnreachable means no server is listening at the socket path.
	ErrUnreachable = errors.New("server unreachable")
)

// ProbeTimeout bounds the connection attempt used to tell a live server
// apart from a stale socket file.
const ProbeTimeout = 1 * time.Second

// Status classifies what currently occupies a socket path.
type Status int

const (
	// StatusAbsent means nothing exists at the path.
	StatusAbsent Status = iota
	// StatusStale means a leftover entry exists but no server answers.
	StatusStale
	// StatusLive means a server accepted a probe connection.
	StatusLive
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusStale:
		return "stale"
	case StatusLive:
		return "live"
	default:
		return "unknown"
	}
}

// CurrentUser returns the name used for the per-user socket namespace.
func CurrentUser() (string, error) {
	u, err := user.Current()
	if err == nil && u.Username != "" {
		return u.Username, nil
	}
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("failed to determine current user: %w", err)
}

// ResolvePath computes the socket path for a user and server id. It is pure:
// client and server derive the same path from the same config without
// coordination.
func ResolvePath(socketDir, username string, serverID int) string {
	return filepath.Join(socketDir, username, fmt.Sprintf("server%d.sock", serverID))
}

// PidPath returns the pidfile path paired with a socket path.
func PidPath(socketPath string) string {
	ext := filepath.Ext(socketPath)
	return socketPath[:len(socketPath)-len(ext)] + ".pid"
}

// Probe classifies the entry at path without disturbing it. A live server is
// detected by actually connecting: existence of the file alone proves nothing
// after a crash.
func Probe(path string) Status {
	stat, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("Error checking socket file %s: %v", path, err)
		}
		return StatusAbsent
	}

	if stat.Mode()&os.ModeSocket == 0 {
		logger.Debug("File exists but is not a socket: %s", path)
		return StatusStale
	}

	conn, err := net.DialTimeout("unix", path, ProbeTimeout)
	if err != nil {
		logger.Debug("Socket exists but connection failed: %v", err)
		return StatusStale
	}
	conn.Close()
	return StatusLive
}

// Bind creates the listening socket at path, creating parent directories as
// needed. A live server at the path yields ErrBusy. A stale entry is removed
// and binding retried exactly once; if that also fails the path is reported
// as ErrUnavailable.
func Bind(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	switch Probe(path) {
	case StatusLive:
		return nil, fmt.Errorf("%w at %s", ErrBusy, path)
	case StatusStale:
		logger.Info("Removing stale socket file: %s", path)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: failed to remove stale socket %s: %v", ErrUnavailable, path, err)
		}
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %v", ErrUnavailable, path, err)
	}
	return listener, nil
}

// Connect dials the server socket. A missing or dead endpoint yields
// ErrUnreachable so callers can distinguish "no server" from "server present
// but unresponsive".
func Connect(path string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrUnreachable, path, err)
	}
	return conn, nil
}

// Remove unlinks the socket file. Missing files are not an error; shutdown
// paths call this unconditionally.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove socket file %s: %w", path, err)
	}
	return nil
}
