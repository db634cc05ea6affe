package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Expired records are treated as
// absent and removed lazily on access or by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Create stores rec under id.
func (s *MemoryStore) Create(_ context.Context, id string, rec Record) error {
	if rec.Expired(s.now()) {
		return ErrExpiredRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[id]; ok && !existing.Expired(s.now()) {
		return ErrDuplicateID
	}
	s.records[id] = rec
	return nil
}

// Get returns a copy of the live record for id, or nil.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if rec.Expired(s.now()) {
		s.mu.Lock()
		if cur, ok := s.records[id]; ok && cur.Expired(s.now()) {
			delete(s.records, id)
		}
		s.mu.Unlock()
		return nil, nil
	}

	return &rec, nil
}

// Delete removes id and reports whether a live record was removed.
func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	return !rec.Expired(s.now()), nil
}

// Sweep drops every expired record and returns how many were dropped.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
