package server

import (
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/shaunie2fly/shellwire/builtin"
	"github.com/shaunie2fly/shellwire/protocol"
	"github.com/shaunie2fly/shellwire/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testRegistry() *registry.Registry {
	r := registry.New(nil)
	builtin.Register(r)
	return r
}

func startTestServer(t *testing.T, cfg Config) (*Server, func()) {
	t.Helper()
	srv := New(cfg, testRegistry(), discardLogger())
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return srv, func() { srv.Stop() }
}

type testClient struct {
	conn   net.Conn
	reader *protocol.FrameReader
	writer *protocol.FrameWriter
}

func dialTest(t *testing.T, addr net.Addr) *testClient {
	t.Helper()
	conn, err := net.DialTimeout(addr.Network(), addr.String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return &testClient{
		conn:   conn,
		reader: protocol.NewFrameReader(conn, 1<<20),
		writer: protocol.NewFrameWriter(conn),
	}
}

func (c *testClient) send(m *protocol.Message) {
	if err := c.writer.WriteMessage(m); err != nil {
		panic(err)
	}
}

func (c *testClient) recv(t *testing.T) *protocol.Message {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.reader.ReadLine()
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	msg, err := protocol.Decode(line)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

// recvUntil reads frames until pred matches one or n frames have been read.
func (c *testClient) recvUntil(t *testing.T, n int, pred func(*protocol.Message) bool) *protocol.Message {
	t.Helper()
	for i := 0; i < n; i++ {
		m := c.recv(t)
		if pred(m) {
			return m
		}
	}
	t.Fatalf("predicate never matched within %d frames", n)
	return nil
}

func basicConfig(port int) Config {
	cfg := DefaultConfig()
	cfg.Port = port
	cfg.Auth = AuthConfig{
		Type:  AuthTypeBasic,
		Users: map[string]string{"u": hashPassword("p")},
	}
	return cfg
}

func TestHappyPathBasicAuth(t *testing.T) {
	srv, stop := startTestServer(t, basicConfig(0))
	defer stop()

	c := dialTest(t, srv.Addr())
	defer c.conn.Close()

	c.send(protocol.New(protocol.TypeAuthRequest, protocol.AuthRequestPayload{
		AuthType: protocol.AuthBasic, Username: "u", Password: "p",
	}))

	resp := c.recv(t)
	if resp.Type != protocol.TypeAuthResponse {
		t.Fatalf("expected auth_response, got %q", resp.Type)
	}
	payload, ok := resp.Payload.(protocol.AuthResponsePayload)
	if !ok || !payload.Success || payload.SessionID == "" {
		t.Fatalf("expected successful auth with session id, got %#v", resp.Payload)
	}

	welcome := c.recvUntil(t, 5, func(m *protocol.Message) bool { return m.Type == protocol.TypeOutput })
	if welcome.Type != protocol.TypeOutput {
		t.Fatalf("expected a welcome output frame")
	}
}

func TestAuthFailureClosesWithDisconnect(t *testing.T) {
	srv, stop := startTestServer(t, basicConfig(0))
	defer stop()

	c := dialTest(t, srv.Addr())
	defer c.conn.Close()

	c.send(protocol.New(protocol.TypeAuthRequest, protocol.AuthRequestPayload{
		AuthType: protocol.AuthBasic, Username: "u", Password: "q",
	}))

	resp := c.recv(t)
	payload, ok := resp.Payload.(protocol.AuthResponsePayload)
	if !ok || payload.Success {
		t.Fatalf("expected failed auth, got %#v", resp.Payload)
	}
	if payload.Error != "Invalid password" {
		t.Fatalf("got error %q", payload.Error)
	}

	disc := c.recv(t)
	if disc.Type != protocol.TypeDisconnect {
		t.Fatalf("expected disconnect, got %q", disc.Type)
	}
	dp, ok := disc.Payload.(protocol.DisconnectPayload)
	if !ok || dp.Reason != "Authentication failed" {
		t.Fatalf("got disconnect payload %#v", disc.Payload)
	}
}

func authNone(t *testing.T, srv *Server) *testClient {
	t.Helper()
	c := dialTest(t, srv.Addr())
	c.send(protocol.New(protocol.TypeAuthRequest, protocol.AuthRequestPayload{AuthType: protocol.AuthNone}))
	resp := c.recv(t)
	if payload, ok := resp.Payload.(protocol.AuthResponsePayload); !ok || !payload.Success {
		t.Fatalf("expected none-auth success, got %#v", resp.Payload)
	}
	return c
}

func noneConfig(port int) Config {
	cfg := DefaultConfig()
	cfg.Port = port
	cfg.Auth = AuthConfig{Type: AuthTypeNone}
	return cfg
}

func TestUnknownCommandReportsError(t *testing.T) {
	srv, stop := startTestServer(t, noneConfig(0))
	defer stop()

	c := authNone(t, srv)
	defer c.conn.Close()

	c.send(protocol.New(protocol.TypeInput, protocol.InputPayload{Data: "frob\r"}))

	c.recvUntil(t, 20, func(m *protocol.Message) bool {
		if m.Type != protocol.TypeOutput {
			return false
		}
		op, ok := m.Payload.(protocol.OutputPayload)
		return ok && strings.Contains(op.Content, `Unknown command "frob"`)
	})
}

func TestSubcommandTabCompletion(t *testing.T) {
	srv, stop := startTestServer(t, noneConfig(0))
	defer stop()

	c := authNone(t, srv)
	defer c.conn.Close()

	c.send(protocol.New(protocol.TypeInput, protocol.InputPayload{Data: "echo \t"}))

	c.recvUntil(t, 20, func(m *protocol.Message) bool {
		if m.Type != protocol.TypeOutput {
			return false
		}
		op, ok := m.Payload.(protocol.OutputPayload)
		return ok && strings.Contains(op.Content, "echo normal") && strings.Contains(op.Content, "echo reverse")
	})
}

func TestMaxConnectionsRejectsWithoutConnectEvent(t *testing.T) {
	cfg := noneConfig(0)
	cfg.MaxConnections = 1
	srv, stop := startTestServer(t, cfg)
	defer stop()

	first := dialTest(t, srv.Addr())
	defer first.conn.Close()
	first.send(protocol.New(protocol.TypeAuthRequest, protocol.AuthRequestPayload{AuthType: protocol.AuthNone}))
	_ = first.recv(t)

	// Give the accept loop a moment to register the first session before
	// the second connection arrives at capacity.
	time.Sleep(20 * time.Millisecond)

	second, err := net.DialTimeout(srv.Addr().Network(), srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer second.Close()

	_ = second.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	buf := make([]byte, 1)
	if n, err := second.Read(buf); n != 0 || err == nil {
		t.Fatalf("expected rejected connection to be closed without data, got n=%d err=%v", n, err)
	}
}

func TestKeepaliveTimeoutClosesStaleSession(t *testing.T) {
	cfg := noneConfig(0)
	cfg.PingInterval = 100 * time.Millisecond
	srv := New(cfg, testRegistry(), discardLogger())

	mc := newMockClock(time.Now())
	srv.clock = mc
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop()

	c := authNone(t, srv)
	defer c.conn.Close()

	mc.Advance(250 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.SessionCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected stale session to be closed, still have %d sessions", srv.SessionCount())
}

func TestStopIsIdempotentAndEmptiesSessions(t *testing.T) {
	srv, _ := startTestServer(t, noneConfig(0))

	c := authNone(t, srv)
	defer c.conn.Close()

	srv.Stop()
	srv.Stop()

	if srv.SessionCount() != 0 {
		t.Fatalf("expected no sessions after stop, got %d", srv.SessionCount())
	}
}
