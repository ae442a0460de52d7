package client

import (
	"errors"
	"testing"

	"github.com/shaunie2fly/shellwire/protocol"
)

func TestPendingTable_ResolveMatchingType(t *testing.T) {
	pt := newPendingTable()
	ch := pt.register("req-1", protocol.TypeAuthResponse)

	reply := &protocol.Message{ID: "req-1", Type: protocol.TypeAuthResponse, Payload: protocol.AuthResponsePayload{Success: true}}
	if !pt.resolve(reply) {
		t.Fatal("resolve should report the waiter was found")
	}

	res := <-ch
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.msg != reply {
		t.Fatal("resolved message does not match what was delivered")
	}
}

func TestPendingTable_ResolveTypeMismatch(t *testing.T) {
	pt := newPendingTable()
	ch := pt.register("req-1", protocol.TypeAuthResponse)

	reply := &protocol.Message{ID: "req-1", Type: protocol.TypeError, Payload: protocol.ErrorPayload{Message: "boom"}}
	if !pt.resolve(reply) {
		t.Fatal("resolve should report the waiter was found")
	}

	res := <-ch
	if res.err == nil {
		t.Fatal("expected a type-mismatch error")
	}
	if !errors.Is(res.err, ErrReplyTypeMismatch) {
		t.Fatalf("expected ErrReplyTypeMismatch, got %v", res.err)
	}
}

func TestPendingTable_ResolveUnknownID(t *testing.T) {
	pt := newPendingTable()
	msg := &protocol.Message{ID: "unregistered", Type: protocol.TypeAuthResponse}
	if pt.resolve(msg) {
		t.Fatal("resolve should report no waiter was found")
	}
}

func TestPendingTable_Cancel(t *testing.T) {
	pt := newPendingTable()
	pt.register("req-1", protocol.TypeAuthResponse)
	pt.cancel("req-1")

	msg := &protocol.Message{ID: "req-1", Type: protocol.TypeAuthResponse}
	if pt.resolve(msg) {
		t.Fatal("resolve should not find a cancelled waiter")
	}
}

func TestPendingTable_RejectAll(t *testing.T) {
	pt := newPendingTable()
	ch1 := pt.register("req-1", protocol.TypeAuthResponse)
	ch2 := pt.register("req-2", protocol.TypeAuthResponse)

	sentinel := errors.New("disconnected")
	pt.rejectAll(sentinel)

	for _, ch := range []chan pendingResult{ch1, ch2} {
		res := <-ch
		if !errors.Is(res.err, sentinel) {
			t.Fatalf("expected rejectAll error, got %v", res.err)
		}
	}
}
