package client

import (
	"log/slog"
	"testing"
	"time"
)

func newTestReconnectManager(policy ReconnectPolicy) (*reconnectManager, *mockClock, *Client) {
	mc := newMockClock(time.Now())
	c := &Client{config: Config{RequestTimeout: time.Second}, clock: mc}
	c.breaker = NewCircuitBreaker(&CircuitBreakerPolicy{Enabled: false})
	c.log = slog.Default()
	rm := newReconnectManager(c, policy, mc)
	c.reconnectMgr = rm
	return rm, mc, c
}

func TestReconnectManager_DisabledPolicyNeverRuns(t *testing.T) {
	rm, _, _ := newTestReconnectManager(ReconnectPolicy{Enabled: false})
	rm.triggerFrom("test")

	rm.mu.Lock()
	running := rm.running
	rm.mu.Unlock()
	if running {
		t.Fatal("reconnectManager should not start when the policy is disabled")
	}
}

func TestReconnectManager_StopBeforeDelayElapsesCancelsLoop(t *testing.T) {
	policy := ReconnectPolicy{Enabled: true, MaxAttempts: 3, InitialDelay: time.Hour}
	rm, _, _ := newTestReconnectManager(policy)

	rm.triggerFrom("disconnected")
	// Give the goroutine a moment to register as running and start waiting.
	deadline := time.Now().Add(time.Second)
	for {
		rm.mu.Lock()
		running := rm.running
		rm.mu.Unlock()
		if running || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	rm.stop()

	deadline = time.Now().Add(time.Second)
	for {
		rm.mu.Lock()
		running := rm.running
		rm.mu.Unlock()
		if !running {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("reconnectManager did not stop in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNextBackoff_CapsAtMaxDelay(t *testing.T) {
	policy := ReconnectPolicy{InitialDelay: 10 * time.Second, MaxDelay: 15 * time.Second, Jitter: 0}
	got := nextBackoff(policy.InitialDelay, policy)
	if got != policy.MaxDelay {
		t.Fatalf("nextBackoff = %v, want capped %v", got, policy.MaxDelay)
	}
}

func TestNextBackoff_DoublesUnderCap(t *testing.T) {
	policy := ReconnectPolicy{MaxDelay: time.Minute, Jitter: 0}
	got := nextBackoff(2*time.Second, policy)
	if got != 4*time.Second {
		t.Fatalf("nextBackoff = %v, want 4s", got)
	}
}
