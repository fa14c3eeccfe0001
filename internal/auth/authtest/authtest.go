// Package authtest provides test doubles for the auth package.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"account-service/internal/auth"
)

// Secret is long enough to pass signer validation.
const Secret = "test-signing-secret-0123456789abcdef"

// FakeClock is a settable clock for deterministic expiry tests.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

var _ auth.Clock = (*FakeClock)(nil)

// MemoryStore is an in-memory auth.UserStore. When Err is set every lookup
// fails with it.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]auth.User
	Err   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]auth.User)}
}

// Add stores a user whose password is hashed at bcrypt.MinCost.
func (s *MemoryStore) Add(username, email, password string) auth.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	now := time.Now().UTC()
	user := auth.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user
	return user
}

func (s *MemoryStore) SetEmail(username, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Email = email
	s.users[username] = user
}

func (s *MemoryStore) SetActive(username string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.IsActive = active
	s.users[username] = user
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Err != nil {
		return auth.User{}, s.Err
	}
	user, ok := s.users[username]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

var _ auth.UserStore = (*MemoryStore)(nil)
