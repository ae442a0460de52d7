package client

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// reconnectPoll is the real-time resolution at which the scheduler
// checks the (possibly virtual, test-driven) Clock against the next
// scheduled attempt — the same poll/tick split server.keepaliveLoop
// uses to make timing-sensitive behavior deterministic under a
// mockClock.
const reconnectPoll = 5 * time.Millisecond

// reconnectManager schedules reconnection attempts after a local
// disconnect, applying the configured ReconnectPolicy's exponential
// backoff and jitter. It reacts to an explicit disconnect trigger rather
// than polling connection health.
type reconnectManager struct {
	c      *Client
	policy ReconnectPolicy
	clock  Clock

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func newReconnectManager(c *Client, policy ReconnectPolicy, clock Clock) *reconnectManager {
	return &reconnectManager{c: c, policy: policy, clock: clock}
}

// triggerFrom starts a reconnection attempt loop unless one is already
// running or the policy is disabled.
func (rm *reconnectManager) triggerFrom(reason string) {
	rm.mu.Lock()
	if rm.running || !rm.policy.Enabled {
		rm.mu.Unlock()
		return
	}
	rm.running = true
	stopCh := make(chan struct{})
	rm.stopCh = stopCh
	rm.mu.Unlock()

	rm.c.log.Info("reconnect: scheduling attempts", "reason", reason)
	go rm.run(stopCh)
}

func (rm *reconnectManager) run(stopCh chan struct{}) {
	defer func() {
		rm.mu.Lock()
		rm.running = false
		rm.mu.Unlock()
	}()

	delay := rm.policy.InitialDelay
	for attempt := 1; rm.policy.MaxAttempts <= 0 || attempt <= rm.policy.MaxAttempts; attempt++ {
		if !rm.wait(stopCh, delay) {
			return
		}

		rm.c.log.Info("reconnect: attempting", "attempt", attempt, "max", rm.policy.MaxAttempts)
		ctx, cancel := context.WithTimeout(context.Background(), rm.c.config.RequestTimeout)
		err := rm.c.breaker.Execute(func() error { return rm.c.connect(ctx) })
		cancel()
		if err == nil {
			rm.c.log.Info("reconnect: succeeded", "attempt", attempt)
			return
		}
		rm.c.log.Warn("reconnect: attempt failed", "attempt", attempt, "error", err)
		delay = nextBackoff(delay, rm.policy)
	}
	rm.c.log.Error("reconnect: attempts exhausted", "max", rm.policy.MaxAttempts)
}

// wait blocks until d has elapsed on rm.clock or stopCh closes, polling
// at reconnectPoll so a test's mockClock.Advance can resolve it without
// a real-time sleep.
func (rm *reconnectManager) wait(stopCh chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-stopCh:
			return false
		default:
			return true
		}
	}
	deadline := rm.clock.Now().Add(d)
	ticker := time.NewTicker(reconnectPoll)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return false
		case <-ticker.C:
			if !rm.clock.Now().Before(deadline) {
				return true
			}
		}
	}
}

// stop halts any in-flight reconnection loop. Safe to call whether or
// not a loop is currently running.
func (rm *reconnectManager) stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !rm.running || rm.stopCh == nil {
		return
	}
	close(rm.stopCh)
	rm.stopCh = nil
}

func nextBackoff(d time.Duration, policy ReconnectPolicy) time.Duration {
	next := d * 2
	if policy.MaxDelay > 0 && next > policy.MaxDelay {
		next = policy.MaxDelay
	}
	if policy.Jitter > 0 {
		next = time.Duration(float64(next) * (1.0 + policy.Jitter*cryptoRandFloat64()))
	}
	return next
}

// cryptoRandFloat64 returns a uniform [0,1) float64 without pulling in
// math/rand.
func cryptoRandFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return float64(binary.LittleEndian.Uint64(buf[:])) / float64(^uint64(0))
}
