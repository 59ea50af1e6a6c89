package credentials

import (
	"context"
	"sync"

	"tictactoe-client/internal/models"
)

// MemoryStore keeps the record in process memory only.
type MemoryStore struct {
	rec *Record
	mu  sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, token string, user models.User) error {
	rec, err := newRecord(token, user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil || !s.rec.complete() {
		return Record{}, false
	}
	return *s.rec, true
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}
