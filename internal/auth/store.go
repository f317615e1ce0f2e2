package auth

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrUserExists indicates a signup attempt with a taken username.
	// The existing record is never overwritten.
	ErrUserExists = errors.New("username already registered")

	// ErrUserNotFound indicates the username has no record.
	ErrUserNotFound = errors.New("user not found")
)

// User is one account record. Username is the unique key.
type User struct {
	Username       string
	HashedPassword string
	Email          string
	FullName       string
}

// UserStore persists user records. Implementations must make Put atomic
// with respect to the uniqueness check: concurrent signups for the same
// username must yield exactly one record.
type UserStore interface {
	// Get returns the user by username, or ErrUserNotFound.
	Get(ctx context.Context, username string) (User, error)

	// Put creates the user, or returns ErrUserExists without modifying the
	// existing record.
	Put(ctx context.Context, user User) error

	// Exists reports whether the username is taken.
	Exists(ctx context.Context, username string) (bool, error)
}

// MemoryStore is an in-process UserStore for tests and local development.
// Contents are lost on restart; production uses PostgresStore.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

// Get implements UserStore.
func (s *MemoryStore) Get(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// Put implements UserStore.
func (s *MemoryStore) Put(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return ErrUserExists
	}
	s.users[user.Username] = user
	return nil
}

// Exists implements UserStore.
func (s *MemoryStore) Exists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok, nil
}
