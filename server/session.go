package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shaunie2fly/shellwire/internal/security"
	"github.com/shaunie2fly/shellwire/protocol"
	"github.com/shaunie2fly/shellwire/shellengine"
)

// State is a session's position in the Accepted -> Authenticated ->
// Closing -> Closed state machine.
type State int

const (
	StateAccepted State = iota
	StateAuthenticated
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateAuthenticated:
		return "authenticated"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one accepted connection: a reader task and a writer task
// sharing framed access to the socket, plus (once authenticated) a bound
// shell engine. All state transitions happen on the reader task except
// teardown, which any task may trigger.
type Session struct {
	id   string
	conn net.Conn

	reader *protocol.FrameReader
	writer *protocol.FrameWriter

	srv *Server

	mu            sync.Mutex
	state         State
	username      string
	clientVersion string
	lastActivity  time.Time

	outbox    chan *protocol.Message
	closeOnce sync.Once
	done      chan struct{}

	engine    *shellengine.Engine // nil in shared mode; Stop()/teardown only apply per-session
	inputFn   func([]byte)
	secLogger *security.Logger
}

func newSession(conn net.Conn, srv *Server) *Session {
	now := srv.clock.Now()
	return &Session{
		id:           protocol.NewID(),
		conn:         conn,
		reader:       protocol.NewFrameReader(conn, srv.cfg.MaxFrameSize),
		writer:       protocol.NewFrameWriter(conn),
		srv:          srv,
		state:        StateAccepted,
		lastActivity: now,
		outbox:       make(chan *protocol.Message, srv.cfg.WriterQueueSize),
		done:         make(chan struct{}),
	}
}

func (s *Session) getState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = s.srv.clock.Now()
	s.mu.Unlock()
}

// LastActivity reports the last time an inbound frame was read, used by
// the keepalive loop to detect stale sessions.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// ID returns the session's stable identifier.
func (s *Session) ID() string { return s.id }

// run drives the session to completion: it starts the writer task, then
// runs the reader loop on the calling goroutine until the connection ends
// or the session enters Closing.
func (s *Session) run() {
	s.secLogger = security.NewLogger(s.srv.log, "shellwire/server", "", s.conn.RemoteAddr().String())
	s.secLogger.LogConnection(security.SubtypeConnEstablished, security.OutcomeSuccess, security.SeverityInfo, nil)

	go s.writerLoop()
	s.readerLoop()
}

func (s *Session) readerLoop() {
	for {
		line, err := s.reader.ReadLine()
		if err != nil {
			s.teardown("connection closed", false)
			return
		}
		s.touch()

		msg, err := protocol.Decode(line)
		if err != nil {
			s.sendError("", protocol.ErrCodeInvalidMessage, "malformed message")
			continue
		}
		s.handleMessage(msg)

		if s.getState() == StateClosed {
			return
		}
	}
}

func (s *Session) writerLoop() {
	for {
		select {
		case msg, ok := <-s.outbox:
			if !ok {
				return
			}
			if err := s.writer.WriteMessage(msg); err != nil {
				s.teardown("write error", false)
				return
			}
		case <-s.done:
			return
		}
	}
}

// enqueue delivers msg to the writer task without blocking the caller. A
// full queue means a slow consumer: the session is closed
// rather than allowing the shell engine or reader to stall.
func (s *Session) enqueue(msg *protocol.Message) {
	select {
	case s.outbox <- msg:
	default:
		go s.teardown("slow consumer", true)
	}
}

func (s *Session) sendError(replyTo string, code protocol.ErrorCode, message string) {
	m := protocol.New(protocol.TypeError, protocol.ErrorPayload{Message: message, Code: code})
	if replyTo != "" {
		m.ID = replyTo
	}
	s.enqueue(m)
}

func (s *Session) handleMessage(msg *protocol.Message) {
	switch s.getState() {
	case StateAccepted:
		s.handleAccepted(msg)
	case StateAuthenticated:
		s.handleAuthenticated(msg)
	default:
		// Closing/Closed: drop silently, teardown is already in motion.
	}
}

func (s *Session) handleAccepted(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeAuthRequest:
		s.handleAuthRequest(msg)
	case protocol.TypePing:
		s.enqueue(protocol.Reply(msg.ID, protocol.TypePong, protocol.PongPayload{Uptime: 0}))
	case protocol.TypeDisconnect:
		s.teardown("client disconnect", false)
	default:
		s.sendError(msg.ID, protocol.ErrCodeAuthRequired, "authentication required")
	}
}

func (s *Session) handleAuthRequest(msg *protocol.Message) {
	payload, ok := msg.Payload.(protocol.AuthRequestPayload)
	if !ok {
		s.sendError(msg.ID, protocol.ErrCodeInvalidMessage, "malformed auth request")
		return
	}

	success, failReason := authenticate(s.srv.cfg.Auth, payload)
	if !success {
		s.secLogger.LogAuthentication(security.SubtypeAuthFailure, security.OutcomeFailure, security.SeverityWarning,
			map[string]any{"reason": failReason})
		// Written directly rather than via enqueue: teardown below closes
		// s.done right after, and writerLoop's select between a ready
		// outbox and a closed done is an unordered race that could drop
		// this reply entirely. A direct write guarantees the client sees
		// AUTH_RESPONSE before the DISCONNECT teardown sends next.
		_ = s.writer.WriteMessage(protocol.Reply(msg.ID, protocol.TypeAuthResponse, protocol.AuthResponsePayload{
			Success: false,
			Error:   failReason,
		}))
		s.teardown("Authentication failed", true)
		return
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.username = payload.Username
	s.clientVersion = payload.ClientVersion
	s.mu.Unlock()

	s.secLogger.SetUser(payload.Username)
	s.secLogger.LogAuthentication(security.SubtypeAuthSuccess, security.OutcomeSuccess, security.SeverityInfo,
		map[string]any{"client_version": payload.ClientVersion})

	s.enqueue(protocol.Reply(msg.ID, protocol.TypeAuthResponse, protocol.AuthResponsePayload{
		Success:   true,
		SessionID: s.id,
	}))

	s.startShell()
}

func (s *Session) handleAuthenticated(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeInput:
		payload, ok := msg.Payload.(protocol.InputPayload)
		if !ok {
			s.sendError(msg.ID, protocol.ErrCodeInvalidMessage, "malformed input")
			return
		}
		if s.inputFn != nil {
			s.inputFn([]byte(payload.Data))
		}
	case protocol.TypePing:
		uptime := s.srv.clock.Now().Sub(s.srv.startedAt).Milliseconds()
		s.enqueue(protocol.Reply(msg.ID, protocol.TypePong, protocol.PongPayload{Uptime: uptime}))
	case protocol.TypeDisconnect:
		reason := "client disconnect"
		if p, ok := msg.Payload.(protocol.DisconnectPayload); ok && p.Reason != "" {
			reason = p.Reason
		}
		s.teardown(reason, false)
	default:
		s.sendError(msg.ID, protocol.ErrCodeUnsupported, fmt.Sprintf("unsupported message type %q", msg.Type))
	}
}

// startShell binds a shell engine to this session (per-session mode) or
// attaches to the server's shared engine (shared mode)
func (s *Session) startShell() {
	if s.srv.cfg.ShellMode == ShellModeShared {
		s.inputFn = s.srv.dispatchSharedInput
		s.srv.addSharedListener(s.id, s.sinkOutput)
		return
	}

	engine := shellengine.New(s.srv.cfg.DefaultPrompt, s.srv.registry)
	engine.OnStop(func() {
		go s.teardown("shell stopped", true)
	})
	s.engine = engine
	s.inputFn = engine.HandleInputBytes
	engine.Start(s.dispatch, s.sinkOutput)
}

func (s *Session) dispatch(line string) {
	s.secLogger.LogCommand(security.SubtypeCmdExecute, security.OutcomeSuccess, security.SeverityInfo, line, nil)
	ctx := context.Background()
	s.srv.registry.Execute(ctx, line, s.sinkOutput)
}

func (s *Session) sinkOutput(chunk string) {
	s.enqueue(protocol.New(protocol.TypeOutput, protocol.OutputPayload{
		Content:   chunk,
		CommandID: "shell_output",
		Final:     false,
	}))
}

// teardown performs the Closing -> Closed transition. It is idempotent:
// concurrent callers (reader, writer, keepalive, slow-consumer detection)
// only ever run it once.
func (s *Session) teardown(reason string, sendDisconnect bool) {
	s.closeOnce.Do(func() {
		s.setState(StateClosing)

		if sendDisconnect {
			// Written directly rather than via enqueue: outbox is a
			// buffered channel drained by writerLoop, which would race
			// the conn.Close() below and could drop the frame.
			_ = s.writer.WriteMessage(protocol.New(protocol.TypeDisconnect, protocol.DisconnectPayload{Reason: reason}))
		}

		close(s.done)
		_ = s.conn.Close()

		if s.engine != nil {
			s.engine.Stop()
		}
		if s.srv.cfg.ShellMode == ShellModeShared {
			s.srv.removeSharedListener(s.id)
		}

		s.srv.removeSession(s.id)
		s.setState(StateClosed)

		if s.secLogger != nil {
			s.secLogger.LogConnection(security.SubtypeConnClosed, security.OutcomeSuccess, security.SeverityInfo,
				map[string]any{"reason": reason})
		}
		s.srv.log.Info("session closed", "id", s.id, "reason", reason)
	})
}
