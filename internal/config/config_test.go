package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shaunie2fly/shellwire/protocol"
	"github.com/shaunie2fly/shellwire/server"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadServerConfig_OverlaysDefaults(t *testing.T) {
	path := writeTempFile(t, `
host: 0.0.0.0
port: 9999
pingInterval: 15s
auth:
  type: none
`)
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 9999 {
		t.Fatalf("overlay failed: %+v", cfg)
	}
	if cfg.PingInterval.Seconds() != 15 {
		t.Fatalf("pingInterval = %v, want 15s", cfg.PingInterval)
	}
	// Fields left unset in YAML should keep DefaultConfig's values.
	if cfg.MaxConnections != server.DefaultConfig().MaxConnections {
		t.Fatalf("maxConnections should retain default, got %d", cfg.MaxConnections)
	}
}

func TestLoadServerConfig_RejectsInvalidOverlay(t *testing.T) {
	path := writeTempFile(t, `
listenerKind: unix
auth:
  type: none
`)
	if _, err := LoadServerConfig(path); err == nil {
		t.Fatal("expected validation error: unix listener with no socketPath")
	}
}

func TestLoadServerConfig_MissingFile(t *testing.T) {
	if _, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadClientConfig_OverlaysDefaults(t *testing.T) {
	path := writeTempFile(t, `
addr: 127.0.0.1:2222
authType: basic
username: alice
password: hunter2
requestTimeout: 10s
reconnect:
  enabled: true
  maxAttempts: 3
  initialDelay: 1s
  maxDelay: 5s
  jitter: 0.1
breaker:
  enabled: true
  failureThreshold: 3
  resetTimeout: 20s
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("LoadClientConfig: %v", err)
	}
	if cfg.Addr != "127.0.0.1:2222" || cfg.AuthType != protocol.AuthBasic {
		t.Fatalf("overlay failed: %+v", cfg)
	}
	if cfg.Username != "alice" {
		t.Fatalf("username = %q, want alice", cfg.Username)
	}
	if cfg.Reconnect.MaxAttempts != 3 || cfg.Reconnect.InitialDelay.Seconds() != 1 {
		t.Fatalf("reconnect overlay failed: %+v", cfg.Reconnect)
	}
	if cfg.Breaker.FailureThreshold != 3 || cfg.Breaker.ResetTimeout.Seconds() != 20 {
		t.Fatalf("breaker overlay failed: %+v", cfg.Breaker)
	}
}

func TestLoadClientConfig_RejectsInvalidOverlay(t *testing.T) {
	path := writeTempFile(t, `
addr: 127.0.0.1:2222
authType: token
`)
	if _, err := LoadClientConfig(path); err == nil {
		t.Fatal("expected validation error: token auth with no token")
	}
}
