package game

import "sync"

// Registry maps an owner to their single live session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// TryCreate builds a session with factory and publishes it under owner,
// unless owner already has one. Check and insert happen under one lock, so
// factory must not block.
func (r *Registry) TryCreate(owner string, factory func() *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[owner]; ok {
		return nil, ErrDuplicateGame
	}
	s := factory()
	s.release = func() { r.release(owner, s) }
	r.sessions[owner] = s
	return s, nil
}

func (r *Registry) Lookup(owner string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[owner]
	return s, ok
}

// Remove deletes owner's mapping. Removing an absent owner is a no-op.
func (r *Registry) Remove(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, owner)
}

// release removes owner's mapping only while it still points at s.
func (r *Registry) release(owner string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[owner] == s {
		delete(r.sessions, owner)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
