package keystore

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. It is the default store and
// the one used by tests.
type MemoryStore struct {
	users *userLocks

	mu      sync.RWMutex
	records map[int64]*Record
	byUser  map[string][]int64
	nextID  int64
	closed  bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   newUserLocks(),
		records: make(map[int64]*Record),
		byUser:  make(map[string][]int64),
		nextID:  1,
	}
}

func (s *MemoryStore) Put(ctx context.Context, r Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := Validate(r); err != nil {
		return 0, err
	}

	release := s.users.lock(r.Username)
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	r.ID = s.nextID
	s.nextID++
	s.records[r.ID] = r.clone()
	s.byUser[r.Username] = append(s.byUser[r.Username], r.ID)
	return r.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(), nil
}

func (s *MemoryStore) ListByUsername(ctx context.Context, username string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	ids := s.byUser[username]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id].clone())
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
