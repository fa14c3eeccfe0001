package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	minSecretLength = 32
)

// Claims is the payload carried by both access and refresh tokens. Everything
// in here is readable by anyone holding the token, so only public profile data
// may be added.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
	Name      string `json:"name,omitempty"`
}

// TokenSigner mints, verifies and refreshes signed token pairs.
type TokenSigner interface {
	// ClaimsFor returns the standard claim set for user, before any
	// application claims are added.
	ClaimsFor(user User) Claims
	// SignPair stamps lifetimes, ids and token types onto base and signs a
	// refresh and an access token carrying the same application claims.
	SignPair(base Claims) (TokenPair, error)
	// Decode verifies token and returns its claims. An empty tokenType
	// accepts either kind.
	Decode(token, tokenType string) (*Claims, error)
	// Refresh mints a new access token from a valid refresh token, copying
	// the subject and application claims.
	Refresh(refresh string) (string, error)
}

type SignerConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Clock      Clock
}

// HMACSigner signs HS256 tokens with a single process-wide secret.
type HMACSigner struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
}

func NewHMACSigner(cfg SignerConfig) (*HMACSigner, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrSigningKey, minSecretLength)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token lifetimes must be positive", ErrSigningKey)
	}
	// exp is stored in whole seconds, so shorter lifetimes can expire at issue time.
	if cfg.AccessTTL < time.Second || cfg.RefreshTTL < time.Second {
		return nil, fmt.Errorf("%w: token lifetimes must be at least 1s", ErrSigningKey)
	}
	if cfg.AccessTTL > cfg.RefreshTTL {
		return nil, fmt.Errorf("%w: access lifetime exceeds refresh lifetime", ErrSigningKey)
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}

	return &HMACSigner{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		clock:      cfg.Clock,
	}, nil
}

func (s *HMACSigner) ClaimsFor(user User) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID,
		},
	}
}

func (s *HMACSigner) SignPair(base Claims) (TokenPair, error) {
	now := s.clock.Now().UTC()

	refresh, err := s.sign(s.stamp(base, TokenTypeRefresh, now, s.refreshTTL))
	if err != nil {
		return TokenPair{}, err
	}
	access, err := s.sign(s.stamp(base, TokenTypeAccess, now, s.accessTTL))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Refresh: refresh, Access: access}, nil
}

func (s *HMACSigner) Decode(token, tokenType string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, s.keyFunc, opts...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if tokenType != "" && claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, tokenType)
	}

	return &claims, nil
}

func (s *HMACSigner) Refresh(refresh string) (string, error) {
	claims, err := s.Decode(refresh, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	base := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: claims.Subject},
		Name:             claims.Name,
	}
	return s.sign(s.stamp(base, TokenTypeAccess, s.clock.Now().UTC(), s.accessTTL))
}

func (s *HMACSigner) stamp(base Claims, tokenType string, now time.Time, ttl time.Duration) Claims {
	claims := base
	claims.Issuer = s.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()
	claims.TokenType = tokenType
	return claims
}

func (s *HMACSigner) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	encoded, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.TokenType, err)
	}
	return encoded, nil
}

func (s *HMACSigner) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return s.secret, nil
}

var _ TokenSigner = (*HMACSigner)(nil)
