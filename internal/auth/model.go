package auth

import "time"

// User is the principal as stored in the users table. Only Username and
// Email are ever exposed to callers; PasswordHash never leaves this package.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// LoginResponse is the body returned by the account login endpoint. Expire is
// the exp claim of Access, in unix seconds.
type LoginResponse struct {
	Refresh  string `json:"refresh"`
	Access   string `json:"access"`
	Expire   int64  `json:"expire"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
