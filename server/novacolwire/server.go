package novacolwire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/tuannm99/novacol/internal/sql/executor"
)

// Execer runs one statement. *executor.Executor satisfies it.
type Execer interface {
	ExecSQL(sql string) (*executor.Result, error)
}

// Server answers framed statements over TCP. Every connection shares the
// same catalog, so a table created on one connection is visible to all.
type Server struct {
	ex     Execer
	logger *slog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(ex Execer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ex: ex, logger: logger, conns: make(map[net.Conn]struct{})}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed,
// then closes every open connection and waits for their handlers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("novacol tcp server listening", "addr", ln.Addr().String())

	done := make(chan struct{})
	var wg conc.WaitGroup
	defer func() {
		close(done)
		s.closeConns()
		wg.Wait()
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-done:
		}
	}()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextBackoff(backoff)
			s.logger.Warn("accept failed", "err", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		wg.Go(func() {
			defer s.untrack(conn)
			s.handleConn(conn)
		})
	}
}

const maxAcceptBackoff = time.Second

// nextBackoff doubles d from 5ms up to maxAcceptBackoff.
func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	return min(2*d, maxAcceptBackoff)
}

func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	s.logger.Debug("connection opened", "remote", remote)
	defer s.logger.Debug("connection closed", "remote", remote)

	for {
		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			// client closed, or a bad frame
			return
		}

		resp := ExecuteResponse{ID: req.ID}
		res, err := s.ex.ExecSQL(req.SQL)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = res
		}
		if err := WriteFrame(conn, resp); err != nil {
			s.logger.Warn("write response failed", "remote", remote, "err", err)
			return
		}
	}
}

// track registers conn; it returns false once the server is shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns != nil {
		delete(s.conns, conn)
	}
	_ = conn.Close()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}
