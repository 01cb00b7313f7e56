package presence

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (f *fakeConn) Send(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.msgs...)
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)), ConnOptions{})
}

func TestRegisterLastConnectWins(t *testing.T) {
	r := newTestRegistry()
	first, second := &fakeConn{}, &fakeConn{}

	if prev := r.Register("alice", first); prev != nil {
		t.Fatalf("expected no previous connection, got %v", prev)
	}
	if prev := r.Register("alice", second); prev != Conn(first) {
		t.Fatalf("expected first connection to be returned as superseded")
	}

	if !r.Deliver("alice", "ping", nil) {
		t.Fatal("expected delivery to succeed")
	}
	if n := len(first.sent()); n != 0 {
		t.Errorf("superseded connection got %d messages, want 0", n)
	}
	if n := len(second.sent()); n != 1 {
		t.Errorf("current connection got %d messages, want 1", n)
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestDeliver(t *testing.T) {
	r := newTestRegistry()
	ok := &fakeConn{}
	broken := &fakeConn{err: errors.New("broken pipe")}
	r.Register("alice", ok)
	r.Register("bobby", broken)

	tests := []struct {
		name     string
		identity string
		want     bool
	}{
		{name: "online", identity: "alice", want: true},
		{name: "transport failure", identity: "bobby", want: false},
		{name: "offline", identity: "carol", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Deliver(tt.identity, "next_word", map[string]int{"index": 0}); got != tt.want {
				t.Errorf("Deliver(%q) = %v, want %v", tt.identity, got, tt.want)
			}
		})
	}

	msgs := ok.sent()
	if len(msgs) != 1 || msgs[0].Type != "next_word" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestDeliverNilDataBecomesEmptyObject(t *testing.T) {
	r := newTestRegistry()
	c := &fakeConn{}
	r.Register("alice", c)

	r.Deliver("alice", "already_answered", nil)

	msgs := c.sent()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Data == nil {
		t.Error("expected non-nil data payload")
	}
}

func TestUnregister(t *testing.T) {
	r := newTestRegistry()
	r.Register("alice", &fakeConn{})

	r.Unregister("alice")
	r.Unregister("alice")
	r.Unregister("nobody")

	if r.Online("alice") {
		t.Error("alice should be offline")
	}
	if r.Deliver("alice", "ping", nil) {
		t.Error("delivery to an unregistered identity should fail")
	}
}

func TestReleaseOnlyRemovesCurrent(t *testing.T) {
	r := newTestRegistry()
	old, current := &fakeConn{}, &fakeConn{}
	r.Register("alice", old)
	r.Register("alice", current)

	if r.Release("alice", old) {
		t.Error("releasing a superseded connection should be a no-op")
	}
	if !r.Online("alice") {
		t.Fatal("alice should still be online")
	}
	if !r.Release("alice", current) {
		t.Error("releasing the current connection should succeed")
	}
	if r.Online("alice") {
		t.Error("alice should be offline")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			r.Register("alice", &fakeConn{})
		}()
		go func() {
			defer wg.Done()
			r.Deliver("alice", "ping", nil)
		}()
		go func() {
			defer wg.Done()
			r.Unregister("alice")
		}()
	}
	wg.Wait()
}
