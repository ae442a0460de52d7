package server

import (
	"time"

	"github.com/shaunie2fly/shellwire/protocol"
)

// keepalivePoll is the real-time resolution at which the loop checks the
// (possibly virtual, test-driven) Clock against the next scheduled tick.
// It decouples the keepalive cadence from wall-clock waiting so tests can
// advance a mockClock instantaneously instead of sleeping real seconds.
const keepalivePoll = 10 * time.Millisecond

// keepaliveLoop runs the single server-wide timer: on
// each tick, sessions idle for more than 2x the configured interval are
// closed as stale; everyone else is sent a PING.
func (srv *Server) keepaliveLoop() {
	defer srv.keepaliveWG.Done()

	poll := time.NewTicker(keepalivePoll)
	defer poll.Stop()

	next := srv.clock.Now().Add(srv.cfg.PingInterval)

	for {
		select {
		case <-srv.keepaliveCh:
			return
		case <-poll.C:
			now := srv.clock.Now()
			if now.Before(next) {
				continue
			}
			srv.keepaliveTick(now)
			next = now.Add(srv.cfg.PingInterval)
		}
	}
}

func (srv *Server) keepaliveTick(now time.Time) {
	staleAfter := 2 * srv.cfg.PingInterval

	srv.mu.Lock()
	sessions := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		sessions = append(sessions, s)
	}
	srv.mu.Unlock()

	for _, s := range sessions {
		if st := s.getState(); st == StateClosing || st == StateClosed {
			continue
		}
		if now.Sub(s.LastActivity()) > staleAfter {
			go s.teardown("timeout", true)
			continue
		}
		s.enqueue(protocol.New(protocol.TypePing, struct{}{}))
	}
}
