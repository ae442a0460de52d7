package client

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shaunie2fly/shellwire/protocol"
)

// Sentinel errors for request correlation failures, surfaced through
// Go's errors.Is rather than string matching.
var (
	ErrNotConnected      = errors.New("client: not connected")
	ErrDisconnected      = errors.New("client: disconnected while request was pending")
	ErrRequestTimeout    = errors.New("client: request timed out")
	ErrReplyTypeMismatch = errors.New("client: reply type did not match the request")
)

type pendingResult struct {
	msg *protocol.Message
	err error
}

type pendingEntry struct {
	expect protocol.Type
	ch     chan pendingResult
}

// pendingTable is the client-side mapping from outgoing message id to a
// waiter with a deadline: at most one entry per id, deleted on resolve,
// reject, or timeout. The expected
// reply type travels alongside the waiter so the dispatcher can
// validate a reply before completing it.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pendingEntry)}
}

// register records a waiter for id expecting a reply of type expect.
func (t *pendingTable) register(id string, expect protocol.Type) chan pendingResult {
	ch := make(chan pendingResult, 1)
	t.mu.Lock()
	t.entries[id] = &pendingEntry{expect: expect, ch: ch}
	t.mu.Unlock()
	return ch
}

// resolve delivers msg to the waiter registered for msg.ID, if any. A
// reply whose type doesn't match what the waiter expected rejects it
// rather than completing it successfully.
func (t *pendingTable) resolve(msg *protocol.Message) bool {
	t.mu.Lock()
	entry, ok := t.entries[msg.ID]
	if ok {
		delete(t.entries, msg.ID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	if msg.Type != entry.expect {
		entry.ch <- pendingResult{err: fmt.Errorf("%w: got %q, want %q", ErrReplyTypeMismatch, msg.Type, entry.expect)}
		return true
	}
	entry.ch <- pendingResult{msg: msg}
	return true
}

// cancel removes id's waiter without delivering a result, used when a
// caller stops waiting on its own (context cancellation or timeout).
func (t *pendingTable) cancel(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// rejectAll fails every outstanding waiter with err, e.g. on disconnect.
func (t *pendingTable) rejectAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*pendingEntry)
	t.mu.Unlock()
	for _, e := range entries {
		e.ch <- pendingResult{err: err}
	}
}
