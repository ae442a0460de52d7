// Package security provides NIST SP 800-92 style structured security-event
// logging, shared by the server and client packages so both sides of a
// shellwire connection log authentication, connection, reconnection, and
// command activity the same way.
package security

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event categories.
const (
	EventAuthentication = "authentication"
	EventConnection     = "connection"
	EventCommand        = "command"
	EventReconnection   = "reconnection"
	EventSession        = "session"
)

// Event subtypes.
const (
	SubtypeAuthAttempt = "attempt"
	SubtypeAuthSuccess = "success"
	SubtypeAuthFailure = "failure"

	SubtypeConnEstablished = "established"
	SubtypeConnClosed      = "closed"
	SubtypeConnFailed      = "failed"

	SubtypeReconnAttempt   = "attempt"
	SubtypeReconnSuccess   = "success"
	SubtypeReconnExhausted = "exhausted"

	SubtypeCmdExecute  = "execute"
	SubtypeCmdComplete = "complete"
	SubtypeCmdFailed   = "failed"

	SubtypeSessionOpened = "opened"
	SubtypeSessionClosed = "closed"
)

// Event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Severity levels.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"
)

// Event is a single structured security log entry.
type Event struct {
	Timestamp     string         `json:"timestamp"`
	EventType     string         `json:"event_type"`
	Subtype       string         `json:"subtype,omitempty"`
	Component     string         `json:"component"`
	CorrelationID string         `json:"correlation_id"`
	User          string         `json:"user,omitempty"`
	Target        string         `json:"target"`
	Outcome       string         `json:"outcome"`
	Severity      string         `json:"severity"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewEvent creates an event with its required fields populated.
func NewEvent(component, eventType, subtype, correlationID, target, outcome, severity string) *Event {
	return &Event{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		EventType:     eventType,
		Subtype:       subtype,
		Component:     component,
		CorrelationID: correlationID,
		Target:        target,
		Outcome:       outcome,
		Severity:      severity,
		Details:       make(map[string]any),
	}
}

// WithUser sets the acting user's identity.
func (e *Event) WithUser(user string) *Event {
	e.User = user
	return e
}

// WithDetail adds a context-specific detail field.
func (e *Event) WithDetail(key string, value any) *Event {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Log emits the event as a structured slog record at a level derived from
// its severity.
func (e *Event) Log(logger *slog.Logger) {
	if logger == nil {
		return
	}

	var logFunc func(msg string, args ...any)
	switch e.Severity {
	case SeverityCritical, SeverityError:
		logFunc = logger.Error
	case SeverityWarning:
		logFunc = logger.Warn
	default:
		logFunc = logger.Info
	}

	logFunc("security_event",
		"event_type", e.EventType,
		"subtype", e.Subtype,
		"correlation_id", e.CorrelationID,
		"user", e.User,
		"target", e.Target,
		"outcome", e.Outcome,
		"severity", e.Severity,
		"details", e.Details,
	)
}

// JSON renders the event for forwarding to an external log pipeline.
func (e *Event) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Logger issues correlated security events for one component (a server
// listener, a session, or a client connection).
type Logger struct {
	logger        *slog.Logger
	component     string
	correlationID string
	user          string
	target        string
}

// NewLogger creates a Logger with a fresh correlation id.
func NewLogger(logger *slog.Logger, component, user, target string) *Logger {
	return &Logger{
		logger:        logger,
		component:     component,
		correlationID: uuid.New().String(),
		user:          user,
		target:        target,
	}
}

// CorrelationID returns the id used to tie related events together.
func (l *Logger) CorrelationID() string {
	return l.correlationID
}

// SetUser updates the identity attached to subsequent events (set once
// authentication resolves a username).
func (l *Logger) SetUser(user string) {
	l.user = user
}

func (l *Logger) emit(eventType, subtype, outcome, severity string, details map[string]any) {
	event := NewEvent(l.component, eventType, subtype, l.correlationID, l.target, outcome, severity).WithUser(l.user)
	for k, v := range details {
		event.WithDetail(k, v)
	}
	event.Log(l.logger)
}

// LogAuthentication records an authentication attempt, success, or failure.
func (l *Logger) LogAuthentication(subtype, outcome, severity string, details map[string]any) {
	l.emit(EventAuthentication, subtype, outcome, severity, details)
}

// LogConnection records a connection lifecycle event.
func (l *Logger) LogConnection(subtype, outcome, severity string, details map[string]any) {
	l.emit(EventConnection, subtype, outcome, severity, details)
}

// LogReconnection records an automatic reconnection attempt.
func (l *Logger) LogReconnection(subtype, outcome, severity string, details map[string]any) {
	l.emit(EventReconnection, subtype, outcome, severity, details)
}

// LogCommand records a dispatched command line, truncating the preview so
// long or sensitive input never lands in full in the log.
func (l *Logger) LogCommand(subtype, outcome, severity, line string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["line_preview"] = truncatePreview(line, 100)
	l.emit(EventCommand, subtype, outcome, severity, details)
}

// LogSession records a session lifecycle event.
func (l *Logger) LogSession(subtype, outcome, severity string, details map[string]any) {
	l.emit(EventSession, subtype, outcome, severity, details)
}

func truncatePreview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
