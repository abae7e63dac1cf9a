// Package memstore is an in-process wish.Repository for tests, demos and
// single-instance deployments that do not need durability.
package memstore

import (
	"context"
	"sync"

	"github.com/meimodev/activid-web-sub001/internal/clock"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

var _ wish.Repository = (*Store)(nil)

// Store keeps wishes in a map guarded by a mutex. The check and the write of
// CreateIfAbsent happen under one lock acquisition.
type Store struct {
	mu      sync.RWMutex
	clock   clock.Clock
	records map[string]wish.Wish
}

// New creates an empty store. A nil clock uses clock.NewMonotonic().
func New(c clock.Clock) *Store {
	if c == nil {
		c = clock.NewMonotonic()
	}
	return &Store{clock: c, records: make(map[string]wish.Wish)}
}

// CreateIfAbsent stores w unless its ID is taken.
func (s *Store) CreateIfAbsent(ctx context.Context, w *wish.Wish) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[w.ID]; ok {
		return wish.ErrAlreadyExists
	}
	w.CreatedAt = s.clock.Now()
	s.records[w.ID] = *w
	return nil
}

// Get returns a copy of the stored wish.
func (s *Store) Get(ctx context.Context, id string) (*wish.Wish, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.records[id]
	if !ok {
		return nil, wish.ErrNotFound
	}
	return &w, nil
}

// ListByInvitation returns copies of the invitation's wishes in display order.
func (s *Store) ListByInvitation(ctx context.Context, invitationID string) ([]wish.Wish, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]wish.Wish, 0)
	for _, w := range s.records {
		if w.InvitationID == invitationID {
			out = append(out, w)
		}
	}
	s.mu.RUnlock()

	wish.Sort(out)
	return out, nil
}

// Len returns the number of stored wishes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
