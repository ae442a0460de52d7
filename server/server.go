// Package server implements the shellwire server session engine: a
// listener that accepts framed, authenticated connections and binds each
// to a shell engine backed by a command registry.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/shaunie2fly/shellwire/internal/security"
	"github.com/shaunie2fly/shellwire/registry"
)

// ErrMaxConnections names the at-capacity condition. acceptLoop does not
// return it: a connection that arrives at capacity is closed immediately,
// before any bytes are read, and the rejection is logged.
var ErrMaxConnections = errors.New("server: max connections reached")

// Server owns the listener, the session table, and the keepalive loop.
type Server struct {
	cfg      Config
	registry *registry.Registry
	log      *slog.Logger

	listener net.Listener

	mu       sync.Mutex
	sessions map[string]*Session

	shared *sharedShell

	startedAt time.Time
	clock     Clock

	acceptWG     sync.WaitGroup
	keepaliveCh  chan struct{}
	keepaliveWG  sync.WaitGroup
	stopOnce     sync.Once
	securityOnce sync.Once
	secLog       *security.Logger
}

// New constructs a Server bound to reg. log may be nil (falls back to
// slog.Default()).
func New(cfg Config, reg *registry.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		registry: reg,
		log:      log,
		sessions: make(map[string]*Session),
		clock:    realClock{},
	}
}

func (srv *Server) secLogger() *security.Logger {
	srv.securityOnce.Do(func() {
		srv.secLog = security.NewLogger(srv.log, "shellwire/server", "", "shared-shell")
	})
	return srv.secLog
}

// Start validates the configuration, binds the listener, starts the
// keepalive loop, and begins accepting connections in the background.
func (srv *Server) Start() error {
	if err := srv.cfg.Validate(); err != nil {
		return fmt.Errorf("server: invalid config: %w", err)
	}

	ln, err := bindListener(srv.cfg)
	if err != nil {
		return fmt.Errorf("server: bind listener: %w", err)
	}
	srv.listener = ln
	srv.startedAt = srv.clock.Now()

	if srv.cfg.ShellMode == ShellModeShared {
		srv.shared = newSharedShell(srv)
	}

	srv.keepaliveCh = make(chan struct{})
	srv.keepaliveWG.Add(1)
	go srv.keepaliveLoop()

	srv.acceptWG.Add(1)
	go srv.acceptLoop()

	srv.log.Info("server started", "listener", srv.cfg.ListenerKind)
	return nil
}

func (srv *Server) acceptLoop() {
	defer srv.acceptWG.Done()
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			return // listener closed during Stop
		}

		srv.mu.Lock()
		atCapacity := len(srv.sessions) >= srv.cfg.MaxConnections
		srv.mu.Unlock()
		if atCapacity {
			_ = conn.Close()
			srv.log.Warn("rejected connection: max connections reached")
			continue
		}

		sess := newSession(conn, srv)
		srv.mu.Lock()
		srv.sessions[sess.id] = sess
		srv.mu.Unlock()

		go sess.run()
	}
}

func (srv *Server) removeSession(id string) {
	srv.mu.Lock()
	delete(srv.sessions, id)
	srv.mu.Unlock()
}

// Addr returns the listener's bound address. Only valid after Start.
func (srv *Server) Addr() net.Addr {
	return srv.listener.Addr()
}

// SessionCount returns the number of currently tracked sessions.
func (srv *Server) SessionCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.sessions)
}

// Stop tears down every session, stops the keepalive loop, and closes the
// listener (removing the Unix socket file if applicable). Idempotent.
func (srv *Server) Stop() {
	srv.stopOnce.Do(func() {
		close(srv.keepaliveCh)
		srv.keepaliveWG.Wait()

		if srv.listener != nil {
			_ = srv.listener.Close()
		}
		srv.acceptWG.Wait()

		srv.broadcastDisconnectAll("server stopping")

		cleanupListener(srv.cfg)
		srv.log.Info("server stopped")
	})
}
