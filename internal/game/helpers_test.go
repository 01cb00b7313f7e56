package game

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/playperu/wordrace/internal/presence"
	"github.com/playperu/wordrace/internal/wordrace"
)

// recorder is a Notifier that remembers every push per identity.
type recorder struct {
	mu      sync.Mutex
	offline map[string]bool
	msgs    map[string][]presence.Message
	at      map[string][]time.Time
}

func newRecorder(offline ...string) *recorder {
	r := &recorder{
		offline: make(map[string]bool),
		msgs:    make(map[string][]presence.Message),
		at:      make(map[string][]time.Time),
	}
	for _, id := range offline {
		r.offline[id] = true
	}
	return r
}

func (r *recorder) Deliver(identity, msgType string, data any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline[identity] {
		return false
	}
	r.msgs[identity] = append(r.msgs[identity], presence.Message{Type: msgType, Data: data})
	r.at[identity] = append(r.at[identity], time.Now())
	return true
}

func (r *recorder) ofType(identity, msgType string) ([]presence.Message, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []presence.Message
	var at []time.Time
	for i, m := range r.msgs[identity] {
		if m.Type == msgType {
			msgs = append(msgs, m)
			at = append(at, r.at[identity][i])
		}
	}
	return msgs, at
}

func (r *recorder) waitFor(t *testing.T, identity, msgType string, n int) []presence.Message {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		msgs, _ := r.ofType(identity, msgType)
		if len(msgs) >= n {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d %q messages to %s, got %d", n, msgType, identity, len(msgs))
		}
		time.Sleep(time.Millisecond)
	}
}

// replyConn captures direct replies to a submitting connection.
type replyConn struct {
	mu   sync.Mutex
	msgs []presence.Message
}

func (c *replyConn) Send(msg presence.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *replyConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.Type
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWords(n int) []wordrace.Word {
	words := make([]wordrace.Word, n)
	for i := range words {
		words[i] = wordrace.Word{
			En: []string{fmt.Sprintf("word%d", i)},
			Uz: []string{fmt.Sprintf("soz%d", i)},
		}
	}
	return words
}

func newTestSession(n *recorder, words int, cfg SessionConfig) *Session {
	return NewSession("alice", testWords(words), cfg, n, discardLogger())
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("round loop did not finish")
	}
}

func resultFor(results []Result, identity string) Result {
	for _, r := range results {
		if r.Username == identity {
			return r
		}
	}
	return Result{}
}
