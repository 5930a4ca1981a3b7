// Package server implements the pomidoro daemon: the owner of the timer
// engine, listening on a per-user Unix socket for framed commands.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pomidoro/pomidoro/internal/config"
	"github.com/pomidoro/pomidoro/internal/endpoint"
	"github.com/pomidoro/pomidoro/internal/history"
	"github.com/pomidoro/pomidoro/internal/logger"
	"github.com/pomidoro/pomidoro/internal/pidfile"
	"github.com/pomidoro/pomidoro/internal/protocol"
	"github.com/pomidoro/pomidoro/internal/timer"
)

// acceptPollInterval is how often the accept loop wakes to check for a stop
// request while no client is connecting.
const acceptPollInterval = 1 * time.Second

// Server owns one socket endpoint and one timer engine. Connections are
// handled one at a time, to completion, so the engine is only ever touched
// by a single request; the mutex exists solely because config reloads arrive
// on the watcher goroutine.
type Server struct {
	socketPath string
	pid        *pidfile.Pidfile
	hist       *history.Store

	mu          sync.Mutex
	engine      *timer.Engine
	readTimeout time.Duration

	listener net.Listener
	stopChan chan struct{}
	stopOnce sync.Once

	// now is the clock used for engine updates; replaceable in tests.
	now func() time.Time
}

// New creates a server for the given user's endpoint. The history store is
// optional: when it cannot be opened the daemon still runs, and Stats
// requests report an internal error.
func New(cfg *config.Config, username string, serverID int) (*Server, error) {
	socketPath := endpoint.ResolvePath(cfg.SocketDir, username, serverID)

	s := &Server{
		socketPath:  socketPath,
		pid:         pidfile.New(endpoint.PidPath(socketPath)),
		engine:      timer.New(timer.Durations{Work: cfg.WorkDuration(), Break: cfg.BreakDuration()}),
		readTimeout: cfg.ResponseTimeout(),
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}

	if cfg.HistoryEnabled {
		hist, err := history.Open(cfg.HistoryPath)
		if err != nil {
			logger.Warn("History disabled, failed to open store: %v", err)
		} else {
			s.hist = hist
		}
	}

	return s, nil
}

// SocketPath returns the endpoint path the server binds.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// ApplyConfig picks up reloaded settings. New durations affect phases started
// afterwards; a phase in progress keeps the length it began with.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetDurations(timer.Durations{Work: cfg.WorkDuration(), Break: cfg.BreakDuration()})
	s.readTimeout = cfg.ResponseTimeout()
}

// Run binds the endpoint and serves requests until ctx is done or Stop is
// called. The socket and pid files are unlinked on the way out so the next
// launch does not misdetect staleness.
func (s *Server) Run(ctx context.Context) error {
	listener, err := endpoint.Bind(s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to bind endpoint: %w", err)
	}
	s.listener = listener

	if err := s.pid.Write(); err != nil {
		logger.Warn("Failed to write pidfile: %v", err)
	}

	defer func() {
		s.listener.Close()
		if err := endpoint.Remove(s.socketPath); err != nil {
			logger.Warn("%v", err)
		}
		if err := s.pid.Remove(); err != nil {
			logger.Warn("%v", err)
		}
		if s.hist != nil {
			if err := s.hist.Close(); err != nil {
				logger.Warn("Failed to close history store: %v", err)
			}
		}
		logger.Info("Server stopped")
	}()

	logger.Info("Server listening on %s", s.socketPath)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Accept loop stopped via context cancellation")
			return nil
		case <-s.stopChan:
			logger.Info("Accept loop stopped via stop signal")
			return nil
		default:
		}

		// A short accept deadline lets the loop notice stop requests.
		if ul, ok := s.listener.(*net.UnixListener); ok {
			ul.SetDeadline(time.Now().Add(acceptPollInterval))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				logger.Info("Listener closed, exiting accept loop")
				return nil
			}
			logger.Error("Error accepting connection: %v", err)
			continue
		}

		// One connection at a time: each request is tiny and synchronous
		// against in-memory state, so serializing here keeps the engine
		// free of locking concerns on the request path.
		s.handleConn(conn)
	}
}

// Stop requests a graceful shutdown.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleConn reads exactly one request, applies it and writes exactly one
// response. A single connection's failure never terminates the server.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	s.mu.Lock()
	deadline := s.readTimeout
	s.mu.Unlock()
	conn.SetDeadline(time.Now().Add(deadline))

	req, err := protocol.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		logger.Warn("Malformed request: %v", err)
		s.respond(conn, protocol.ErrResponse("", protocol.ErrMalformedRequest, "undecodable request"))
		return
	}
	if !req.Command.Valid() {
		logger.Warn("Unknown command tag: %q", req.Command)
		s.respond(conn, protocol.ErrResponse(req.RequestID, protocol.ErrMalformedRequest,
			fmt.Sprintf("unknown command %q", req.Command)))
		return
	}

	logger.Debug("Handling command %s (request %s)", req.Command, req.RequestID)

	switch req.Command {
	case protocol.CommandStats:
		s.respond(conn, s.handleStats(req))

	case protocol.CommandShutdown:
		s.respond(conn, &protocol.Response{RequestID: req.RequestID, OK: true})
		logger.Info("Shutdown requested by client")
		s.Stop()

	default:
		s.respond(conn, s.applyTimerCommand(req))
	}
}

func (s *Server) applyTimerCommand(req *protocol.Request) *protocol.Response {
	s.mu.Lock()
	state, done, err := s.engine.Apply(req.Command, s.now())
	s.mu.Unlock()

	s.recordCompletions(done)

	if err != nil {
		var reject *timer.RejectError
		if errors.As(err, &reject) {
			return protocol.ErrResponse(req.RequestID, reject.Kind, reject.Error())
		}
		logger.Error("Engine failure: %v", err)
		return protocol.ErrResponse(req.RequestID, protocol.ErrInternal, "engine failure")
	}

	return protocol.OKResponse(req.RequestID, state.Proto())
}

func (s *Server) handleStats(req *protocol.Request) *protocol.Response {
	if s.hist == nil {
		return protocol.ErrResponse(req.RequestID, protocol.ErrInternal, "history store unavailable")
	}

	stats, err := s.hist.Summary(s.now())
	if err != nil {
		logger.Error("Failed to summarize history: %v", err)
		return protocol.ErrResponse(req.RequestID, protocol.ErrInternal, "history query failed")
	}

	return &protocol.Response{RequestID: req.RequestID, OK: true, Stats: stats}
}

func (s *Server) recordCompletions(done []timer.Completion) {
	if s.hist == nil || len(done) == 0 {
		return
	}
	for _, c := range done {
		err := s.hist.Record(history.Record{
			Phase:     c.Phase.String(),
			StartedAt: c.StartedAt,
			Planned:   c.Planned,
			Spent:     c.Spent,
			Completed: c.Completed,
		})
		if err != nil {
			logger.Warn("Failed to record %s phase: %v", c.Phase, err)
		}
	}
}

// respond writes the single framed response. A client that timed out and
// closed its end produces a broken pipe here; that is logged and ignored.
func (s *Server) respond(conn net.Conn, resp *protocol.Response) {
	if err := protocol.WriteMessage(conn, resp); err != nil {
		logger.Warn("Failed to write response: %v", err)
	}
}
