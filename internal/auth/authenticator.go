package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore is the read side of the user table the login flow depends on.
// GetByUsername returns ErrUserNotFound when no such user exists.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
}

// Authenticator checks a password against the stored bcrypt hash.
type Authenticator struct {
	store UserStore
}

func NewAuthenticator(store UserStore) *Authenticator {
	return &Authenticator{store: store}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// Authenticate returns ErrInvalidCredentials for an unknown username, a wrong
// password and a deactivated account alike. Unknown users still pay for a bcrypt comparison so the
// two cases take comparable time.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := a.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(unknownUserHash(), []byte(password))
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

func unknownUserHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), bcrypt.DefaultCost)
	})
	return dummyHash
}
