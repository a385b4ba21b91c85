// Package session binds HTTP consumers to their marketplace carts.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates an unknown or expired session.
var ErrNotFound = errors.New("session not found")

// Session ties a consumer to the cart it owns.
type Session struct {
	ID       string `json:"id"`
	Consumer string `json:"consumer"`
	CartID   int    `json:"cart_id"`
}

// Store defines behavior for persisting sessions.
type Store interface {
	Create(ctx context.Context, consumer string, cartID int) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	session Session
	expires time.Time
}

// NewMemoryStore returns a store whose sessions live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[string]memoryEntry)}
}

// Create starts a session.
func (s *MemoryStore) Create(ctx context.Context, consumer string, cartID int) (Session, error) {
	sess := Session{ID: uuid.NewString(), Consumer: consumer, CartID: cartID}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = memoryEntry{session: sess, expires: s.now().Add(s.ttl)}
	return sess, nil
}

// Get returns a live session.
func (s *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !s.now().Before(e.expires) {
		delete(s.sessions, id)
		return Session{}, ErrNotFound
	}
	return e.session, nil
}

// Delete ends a session.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}
