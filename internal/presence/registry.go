// Package presence tracks which players currently hold a live connection
// and pushes best-effort messages to them.
package presence

import (
	"log/slog"
	"sync"

	"nhooyr.io/websocket"
)

// Message is the envelope pushed to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Conn is a live channel to one client. Send must not block on a slow or
// dead peer.
type Conn interface {
	Send(msg Message) error
}

// Registry maps a player identity to its current connection. The last
// connection registered for an identity wins.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	opts   ConnOptions
	accept *websocket.AcceptOptions
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger, opts ConnOptions) *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		opts:  opts.withDefaults(),
		accept: &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		},
		logger: logger,
	}
}

// Register records conn as the live channel for identity and returns the
// connection it replaced, if any. Closing the replaced connection is up to
// the caller.
func (r *Registry) Register(identity string, conn Conn) Conn {
	r.mu.Lock()
	prev := r.conns[identity]
	r.conns[identity] = conn
	r.mu.Unlock()

	r.logger.Info("user connected", "user", identity, "replaced", prev != nil)
	return prev
}

// Unregister drops whatever connection is registered for identity.
func (r *Registry) Unregister(identity string) {
	r.mu.Lock()
	_, ok := r.conns[identity]
	delete(r.conns, identity)
	r.mu.Unlock()

	if ok {
		r.logger.Info("user disconnected", "user", identity)
	}
}

// Release drops the mapping only while conn is still the registered
// connection, so tearing down a superseded connection leaves its
// replacement in place.
func (r *Registry) Release(identity string, conn Conn) bool {
	r.mu.Lock()
	current, ok := r.conns[identity]
	if !ok || current != conn {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, identity)
	r.mu.Unlock()

	r.logger.Info("user disconnected", "user", identity)
	return true
}

func (r *Registry) Lookup(identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[identity]
	return conn, ok
}

func (r *Registry) Online(identity string) bool {
	_, ok := r.Lookup(identity)
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Deliver pushes {type, data} to identity's connection. It reports false
// when the identity is offline or the send fails; failures are never
// retried.
func (r *Registry) Deliver(identity, msgType string, data any) bool {
	conn, ok := r.Lookup(identity)
	if !ok {
		return false
	}
	if data == nil {
		data = struct{}{}
	}
	if err := conn.Send(Message{Type: msgType, Data: data}); err != nil {
		r.logger.Debug("push failed", "user", identity, "type", msgType, "error", err)
		return false
	}
	return true
}
