package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-replica dev
// setups. Envelopes are copied on Save and Load so callers cannot mutate
// stored state through shared pointers.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Envelope
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Envelope)}
}

func (s *MemoryStore) Load(ctx context.Context, key string) (*Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env, ok := s.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := env
	if env.Identity != nil {
		id := *env.Identity
		if env.Identity.StudentProfile != nil {
			sp := *env.Identity.StudentProfile
			id.StudentProfile = &sp
		}
		out.Identity = &id
	}
	return &out, nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, env *Envelope) error {
	if err := env.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *env
	stored.Version = EnvelopeVersion
	id := *env.Identity
	if env.Identity.StudentProfile != nil {
		sp := *env.Identity.StudentProfile
		id.StudentProfile = &sp
	}
	stored.Identity = &id
	s.sessions[key] = stored
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

// Len reports the number of stored sessions. Used by the metrics
// collector.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
