package server

import (
	"context"
	"sync"

	"github.com/shaunie2fly/shellwire/internal/security"
	"github.com/shaunie2fly/shellwire/shellengine"
)

// sharedShell is the single shell engine used by every session when the
// server runs in ShellModeShared: one engine, its state
// visible to all connected sessions, with output fanned out to each.
type sharedShell struct {
	mu     sync.Mutex
	engine *shellengine.Engine

	listenersMu sync.RWMutex
	listeners   map[string]func(string)
}

func newSharedShell(srv *Server) *sharedShell {
	sh := &sharedShell{listeners: make(map[string]func(string))}
	engine := shellengine.New(srv.cfg.DefaultPrompt, srv.registry)
	engine.OnStop(func() {
		go srv.broadcastDisconnectAll("shell stopped")
	})
	sh.engine = engine
	engine.Start(
		func(line string) {
			srv.secLogger().LogCommand(security.SubtypeCmdExecute, security.OutcomeSuccess, security.SeverityInfo, line, nil)
			srv.registry.Execute(context.Background(), line, sh.broadcast)
		},
		sh.broadcast,
	)
	return sh
}

func (sh *sharedShell) broadcast(chunk string) {
	sh.listenersMu.RLock()
	defer sh.listenersMu.RUnlock()
	for _, fn := range sh.listeners {
		fn(chunk)
	}
}

func (sh *sharedShell) addListener(id string, fn func(string)) {
	sh.listenersMu.Lock()
	defer sh.listenersMu.Unlock()
	sh.listeners[id] = fn
}

func (sh *sharedShell) removeListener(id string) {
	sh.listenersMu.Lock()
	defer sh.listenersMu.Unlock()
	delete(sh.listeners, id)
}

func (sh *sharedShell) handleInput(data []byte) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.engine.HandleInputBytes(data)
}

func (srv *Server) dispatchSharedInput(data []byte) {
	srv.shared.handleInput(data)
}

func (srv *Server) addSharedListener(id string, fn func(string)) {
	srv.shared.addListener(id, fn)
}

func (srv *Server) removeSharedListener(id string) {
	srv.shared.removeListener(id)
}

// broadcastDisconnectAll tears down every active session, the shared-mode
// STOP propagation behavior.
func (srv *Server) broadcastDisconnectAll(reason string) {
	srv.mu.Lock()
	sessions := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		sessions = append(sessions, s)
	}
	srv.mu.Unlock()

	for _, s := range sessions {
		s.teardown(reason, true)
	}
}
