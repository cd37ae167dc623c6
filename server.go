package goshawk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Server is the concurrent serving engine: it accepts connections, parses
// requests, drives them through the router's dispatch pipeline, and writes
// responses. Concurrency is bounded by a fixed worker pool; one worker owns
// one connection for its entire lifecycle.
type Server struct {
	cfg        Config
	router     *Router
	log        *slog.Logger
	normalizer *Normalizer
	handler    Handler

	ln    net.Listener
	queue chan net.Conn

	mu    sync.Mutex
	conns map[*conn]struct{}

	inShutdown atomic.Bool
	acceptDone chan struct{}
	workers    sync.WaitGroup

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithNormalizer sets the error normalizer used for failures that escape the
// middleware chain.
func WithNormalizer(n *Normalizer) ServerOption {
	return func(s *Server) { s.normalizer = n }
}

// NewServer builds a serving engine around a router. Zero config fields take
// their defaults.
func NewServer(cfg Config, router *Router, opts ...ServerOption) *Server {
	s := &Server{
		cfg:    cfg.withDefaults(),
		router: router,
		conns:  make(map[*conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.normalizer == nil {
		s.normalizer = &Normalizer{
			OnInternal: func(err error) { s.log.Error("unhandled fault", "err", err) },
		}
	}
	return s
}

// Listen validates the configuration, binds the listen address, and freezes
// the route table. A bind failure is returned here, before any serving
// starts.
func (s *Server) Listen() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if s.router == nil {
		return errors.New("goshawk: server has no router")
	}

	ln, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.cfg.BindAddress, err)
	}
	s.ln = ln

	s.router.Freeze()
	s.handler = s.router.Dispatch
	if s.cfg.CORS != nil {
		s.handler = CORS(*s.cfg.CORS)(s.handler)
	}

	s.log.Info("listening", "addr", ln.Addr().String(),
		"workers", s.cfg.MaxConcurrency, "backlog", s.cfg.ConnectionBacklog)
	for _, r := range s.router.Routes() {
		s.log.Debug("route", "binding", r)
	}
	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve runs the accept loop and worker pool, blocking until ctx is
// cancelled and shutdown completes. Listen must have been called.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("goshawk: Serve called before Listen")
	}

	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())
	s.queue = make(chan net.Conn, s.cfg.ConnectionBacklog)
	s.acceptDone = make(chan struct{})

	for i := 0; i < s.cfg.MaxConcurrency; i++ {
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			for nc := range s.queue {
				s.serveConn(nc)
			}
		}()
	}

	go s.acceptLoop()

	<-ctx.Done()

	grace, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod.Std())
	defer cancel()
	return s.Shutdown(grace)
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// acceptLoop hands accepted connections to the worker queue. A full queue
// rejects the connection at the transport layer; the application never sees
// it.
func (s *Server) acceptLoop() {
	defer close(s.acceptDone)
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if s.shuttingDown() {
				return
			}
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			s.log.Error("accept failed", "err", err)
			return
		}

		select {
		case s.queue <- nc:
		default:
			s.log.Warn("connection backlog full, rejecting", "remote", nc.RemoteAddr().String())
			nc.Close()
		}
	}
}

// Shutdown stops accepting new connections, closes idle connections, waits
// for in-flight requests up to ctx's deadline, then force-closes whatever
// remains. It returns nil on a fully graceful stop and ctx.Err() when
// connections had to be force-closed.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.inShutdown.Swap(true) {
		return nil
	}
	s.log.Info("shutting down")

	s.ln.Close()
	<-s.acceptDone

	// Drain queued connections that never reached a worker.
	close(s.queue)
	for nc := range s.queue {
		nc.Close()
	}

	s.closeIdleConns()

	var forced error
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		s.mu.Lock()
		remaining := len(s.conns)
		s.mu.Unlock()
		if remaining == 0 {
			break
		}
		select {
		case <-ctx.Done():
			forced = ctx.Err()
			s.forceCloseConns()
			break wait
		case <-ticker.C:
			s.closeIdleConns()
		}
	}

	s.baseCancel()
	s.workers.Wait()
	if forced != nil {
		s.log.Warn("forced close of remaining connections", "err", forced)
	} else {
		s.log.Info("shutdown complete")
	}
	return forced
}

func (s *Server) shuttingDown() bool { return s.inShutdown.Load() }

func (s *Server) trackConn(c *conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) closeIdleConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		if c.state.Load() == connIdle {
			c.rwc.Close()
		}
	}
}

func (s *Server) forceCloseConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.rwc.Close()
	}
}
