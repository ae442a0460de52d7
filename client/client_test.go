package client

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/shaunie2fly/shellwire/builtin"
	"github.com/shaunie2fly/shellwire/registry"
	"github.com/shaunie2fly/shellwire/server"
)

func startTestServer(t *testing.T) *server.Server {
	t.Helper()
	reg := registry.New(nil)
	builtin.Register(reg)

	cfg := server.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.Auth.Type = server.AuthTypeNone

	srv := server.New(cfg, reg, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("server.Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestClient_ConnectAuthenticatesAndAssignsSession(t *testing.T) {
	srv := startTestServer(t)

	cfg := DefaultConfig()
	cfg.Addr = srv.Addr().String()
	c := New(cfg, Events{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()

	if !c.Connected() {
		t.Fatal("expected Connected() to be true after a successful Connect")
	}
	if c.SessionID() == "" {
		t.Fatal("expected a non-empty session id after authentication")
	}
}

func TestClient_InputOutputRoundTrip(t *testing.T) {
	srv := startTestServer(t)

	cfg := DefaultConfig()
	cfg.Addr = srv.Addr().String()
	c := New(cfg, Events{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()

	reader := bufio.NewReader(c.Output())
	if _, err := c.Input().Write([]byte("help\r")); err != nil {
		t.Fatalf("Input().Write: %v", err)
	}

	done := make(chan struct{})
	var line string
	var readErr error
	go func() {
		line, readErr = reader.ReadString('\n')
		close(done)
	}()

	select {
	case <-done:
		if readErr != nil {
			t.Fatalf("ReadString: %v", readErr)
		}
		if line == "" {
			t.Fatal("expected some echoed shell output")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for shell output")
	}
}

func TestClient_DisconnectIsIdempotent(t *testing.T) {
	srv := startTestServer(t)

	cfg := DefaultConfig()
	cfg.Addr = srv.Addr().String()
	cfg.Reconnect.Enabled = false
	c := New(cfg, Events{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	c.Disconnect()
	c.Disconnect() // must not panic or block

	if c.Connected() {
		t.Fatal("expected Connected() to be false after Disconnect")
	}
}

func TestClient_ConnectFailsAgainstClosedPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1" // reserved, nothing listens here
	cfg.Breaker.Enabled = false
	c := New(cfg, Events{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := c.Connect(ctx); err == nil {
		t.Fatal("expected Connect to fail against an unreachable address")
	}
}
