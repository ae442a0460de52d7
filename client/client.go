package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/shaunie2fly/shellwire/internal/security"
	"github.com/shaunie2fly/shellwire/protocol"
)

// Version is sent as AuthRequestPayload.ClientVersion: purely
// informational, never negotiated on.
const Version = "shellwire-client/0.1"

// Events are the callbacks the client invokes as connection lifecycle
// and inbound traffic occur. OnOutput and OnError run on the reader
// loop. OnConnect runs on the goroutine that completed the connection
// (the Connect caller or the reconnect loop), and OnDisconnect on
// whichever task tears the connection down (reader loop, writer loop,
// or the Connect or Disconnect caller). The callbacks are therefore not
// confined to one task, and OnDisconnect can run concurrently with
// OnOutput or OnError.
type Events struct {
	OnConnect    func(sessionID string)
	OnDisconnect func(reason string)
	OnOutput     func(content string)
	OnError      func(message string, code protocol.ErrorCode)
}

// Client is the client-side half of a shellwire connection: reader,
// writer, and input-pump tasks cooperating over a pending-request table
// and a pair of public io streams (spec.md §4.6, §5).
type Client struct {
	config Config
	events Events
	log    *slog.Logger
	secLog *security.Logger
	clock  Clock

	breaker      *CircuitBreaker
	reconnectMgr *reconnectManager

	mu        sync.Mutex
	conn      net.Conn
	reader    *protocol.FrameReader
	writer    *protocol.FrameWriter
	outbox    chan *protocol.Message
	pending   *pendingTable
	connected bool
	sessionID string
	manual    bool // set by Disconnect(); suppresses auto-reconnect
	doneCh    chan struct{}

	inputR  *io.PipeReader
	inputW  *io.PipeWriter
	outputR *io.PipeReader
	outputW *io.PipeWriter

	wg sync.WaitGroup
}

// New constructs a Client. log may be nil (falls back to slog.Default()).
func New(cfg Config, events Events, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		config: cfg,
		events: events,
		log:    log,
		clock:  realClock{},
	}
	c.breaker = NewCircuitBreaker(&cfg.Breaker)
	c.breaker.clock = c.clock
	c.reconnectMgr = newReconnectManager(c, cfg.Reconnect, c.clock)
	return c
}

// Connect dials the configured endpoint, authenticates, and — on
// success — starts the input pump bridging Input() into INPUT frames.
// It is guarded by the circuit breaker: repeated failures trip the
// breaker open and fail fast rather than retry immediately.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.manual = false
	c.mu.Unlock()
	return c.breaker.Execute(func() error { return c.connect(ctx) })
}

func (c *Client) connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", c.config.Addr, err)
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	c.mu.Lock()
	c.conn = conn
	c.reader = protocol.NewFrameReader(conn, c.config.MaxFrameSize)
	c.writer = protocol.NewFrameWriter(conn)
	c.outbox = make(chan *protocol.Message, c.config.WriterQueueSize)
	c.pending = newPendingTable()
	c.doneCh = make(chan struct{})
	c.inputR, c.inputW = inR, inW
	c.outputR, c.outputW = outR, outW
	c.mu.Unlock()

	c.secLog = security.NewLogger(c.log, "shellwire/client", c.config.Username, c.config.Addr)

	c.wg.Add(2)
	go c.writerLoop()
	go c.readerLoop()

	if err := c.authenticate(ctx); err != nil {
		c.localDisconnect("authentication failed: " + err.Error())
		return err
	}

	c.mu.Lock()
	c.connected = true
	sid := c.sessionID
	c.mu.Unlock()

	c.secLog.LogConnection(security.SubtypeConnEstablished, security.OutcomeSuccess, security.SeverityInfo, nil)
	if c.events.OnConnect != nil {
		c.events.OnConnect(sid)
	}

	c.wg.Add(1)
	go c.inputPump()

	return nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	network := "tcp"
	if c.config.Network == NetworkUnix {
		network = "unix"
	}
	var d net.Dialer
	return d.DialContext(ctx, network, c.config.Addr)
}

// authenticate always performs the AUTH_REQUEST/AUTH_RESPONSE round
// trip, even for AuthNone — the server's session stays in the Accepted
// state until it sees one, so skipping it for "no
// credentials configured" would leave the session unable to exchange
// any other frame. This resolves the ambiguity in spec.md §4.6's "If
// absent, treat as NONE and emit connect immediately" in favor of
// correctness over a literal zero-round-trip reading.
func (c *Client) authenticate(ctx context.Context) error {
	payload := protocol.AuthRequestPayload{
		AuthType:      c.config.AuthType,
		Username:      c.config.Username,
		Password:      c.config.Password,
		Token:         c.config.Token,
		ClientVersion: Version,
	}
	c.secLog.LogAuthentication(security.SubtypeAuthAttempt, security.OutcomeSuccess, security.SeverityInfo, nil)

	reply, err := c.sendRequest(ctx, protocol.TypeAuthRequest, payload, protocol.TypeAuthResponse)
	if err != nil {
		return err
	}
	resp, ok := reply.Payload.(protocol.AuthResponsePayload)
	if !ok {
		return fmt.Errorf("client: malformed auth response")
	}
	if !resp.Success {
		c.secLog.LogAuthentication(security.SubtypeAuthFailure, security.OutcomeFailure, security.SeverityWarning,
			map[string]any{"error": resp.Error})
		return fmt.Errorf("%s", resp.Error)
	}

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.mu.Unlock()

	c.secLog.SetUser(c.config.Username)
	c.secLog.LogAuthentication(security.SubtypeAuthSuccess, security.OutcomeSuccess, security.SeverityInfo, nil)
	return nil
}

// sendRequest encodes and enqueues a request, then waits for its
// correlated reply, the request's own deadline, ctx's cancellation, or a
// disconnect of the current connection — whichever comes first
// (spec.md §5: "each pending request has a deadline, default 30s").
func (c *Client) sendRequest(ctx context.Context, t protocol.Type, payload any, expect protocol.Type) (*protocol.Message, error) {
	msg := protocol.New(t, payload)

	c.mu.Lock()
	pending := c.pending
	done := c.doneCh
	c.mu.Unlock()
	if pending == nil {
		return nil, ErrNotConnected
	}

	ch := pending.register(msg.ID, expect)
	c.enqueue(msg)

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.msg, nil
	case <-timer.C:
		pending.cancel(msg.ID)
		return nil, ErrRequestTimeout
	case <-ctx.Done():
		pending.cancel(msg.ID)
		return nil, ctx.Err()
	case <-done:
		pending.cancel(msg.ID)
		return nil, ErrDisconnected
	}
}

// enqueue hands msg to the writer task, or drops it silently once the
// current connection has begun tearing down.
func (c *Client) enqueue(msg *protocol.Message) {
	c.mu.Lock()
	outbox := c.outbox
	done := c.doneCh
	c.mu.Unlock()
	if outbox == nil {
		return
	}
	select {
	case outbox <- msg:
	case <-done:
	}
}

func (c *Client) readerLoop() {
	defer c.wg.Done()
	for {
		line, err := c.reader.ReadLine()
		if err != nil {
			c.localDisconnect("connection closed")
			return
		}

		msg, err := protocol.Decode(line)
		if err != nil {
			c.log.Warn("discarding malformed frame", "error", err)
			if c.events.OnError != nil {
				c.events.OnError("malformed message", protocol.ErrCodeInvalidMessage)
			}
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) writerLoop() {
	defer c.wg.Done()
	for {
		select {
		case msg, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.writer.WriteMessage(msg); err != nil {
				c.localDisconnect("write error")
				return
			}
		case <-c.doneCh:
			return
		}
	}
}

// inputPump reads from the public input stream and forwards each chunk
// to the server as an INPUT frame.
func (c *Client) inputPump() {
	defer c.wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := c.inputR.Read(buf)
		if n > 0 {
			c.mu.Lock()
			sid := c.sessionID
			c.mu.Unlock()
			c.enqueue(protocol.New(protocol.TypeInput, protocol.InputPayload{
				Data:      string(buf[:n]),
				SessionID: sid,
			}))
		}
		if err != nil {
			return
		}
	}
}

// dispatch handles one inbound message according to its type. It runs
// only on the reader task.
func (c *Client) dispatch(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeAuthResponse, protocol.TypeCommandResponse:
		c.pending.resolve(msg)

	case protocol.TypeOutput:
		p, ok := msg.Payload.(protocol.OutputPayload)
		if !ok {
			return
		}
		_, _ = io.WriteString(c.outputW, p.Content)
		if c.events.OnOutput != nil {
			c.events.OnOutput(p.Content)
		}

	case protocol.TypeError:
		p, _ := msg.Payload.(protocol.ErrorPayload)
		if c.events.OnError != nil {
			c.events.OnError(p.Message, p.Code)
		}

	case protocol.TypePing:
		c.enqueue(protocol.Reply(msg.ID, protocol.TypePong, protocol.PongPayload{Uptime: 0}))

	case protocol.TypePong:
		// Liveness only; no uptime tracking on the client side.

	case protocol.TypeDisconnect:
		reason := "server disconnect"
		if p, ok := msg.Payload.(protocol.DisconnectPayload); ok && p.Reason != "" {
			reason = p.Reason
		}
		c.localDisconnect(reason)

	default:
		c.log.Warn("received outbound-only message type", "type", msg.Type)
		if c.events.OnError != nil {
			c.events.OnError(fmt.Sprintf("unexpected message type %q", msg.Type), protocol.ErrCodeInternal)
		}
	}
}

// localDisconnect tears down the current connection: idempotent per
// connection (guarded by doneCh's single close), it rejects pending
// requests, closes the public streams, closes the socket, and emits
// OnDisconnect. If auto-reconnect is enabled and this wasn't a manual
// Disconnect, it schedules a reconnection attempt.
func (c *Client) localDisconnect(reason string) {
	c.mu.Lock()
	if c.doneCh == nil {
		c.mu.Unlock()
		return
	}
	select {
	case <-c.doneCh:
		c.mu.Unlock()
		return // already torn down
	default:
	}
	close(c.doneCh)
	c.connected = false
	conn := c.conn
	pending := c.pending
	outputW := c.outputW
	inputR := c.inputR
	manual := c.manual
	c.mu.Unlock()

	if pending != nil {
		pending.rejectAll(ErrDisconnected)
	}
	if outputW != nil {
		_ = outputW.Close()
	}
	if inputR != nil {
		_ = inputR.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}

	if c.secLog != nil {
		c.secLog.LogConnection(security.SubtypeConnClosed, security.OutcomeSuccess, security.SeverityInfo,
			map[string]any{"reason": reason})
	}
	if c.events.OnDisconnect != nil {
		c.events.OnDisconnect(reason)
	}

	if !manual && c.config.Reconnect.Enabled {
		c.reconnectMgr.triggerFrom(reason)
	}
}

// Disconnect cancels any scheduled reconnect, clears auto-reconnect,
// best-effort sends DISCONNECT, and performs a local disconnect. It is
// idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	c.mu.Unlock()

	c.reconnectMgr.stop()
	c.enqueue(protocol.New(protocol.TypeDisconnect, protocol.DisconnectPayload{Reason: "client disconnect"}))
	c.localDisconnect("client disconnect")
}

// Connected reports whether the client currently holds an authenticated
// connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SessionID returns the server-assigned session id from the most recent
// successful authentication, or "" before the first one.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Input returns the writable stream a caller feeds local input bytes
// into; the input pump forwards them as INPUT frames. Valid only while
// connected — it is recreated on every successful Connect/reconnect.
func (c *Client) Input() io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputW
}

// Output returns the readable stream server OUTPUT content is written
// to. Valid only while connected — it is recreated on every successful
// Connect/reconnect.
func (c *Client) Output() io.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputR
}
