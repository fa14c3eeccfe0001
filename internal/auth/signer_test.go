package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/auth"
	"account-service/internal/auth/authtest"
)

var testStart = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestSigner(t *testing.T) (*auth.HMACSigner, *authtest.FakeClock) {
	t.Helper()
	clock := authtest.NewFakeClock(testStart)
	signer, err := auth.NewHMACSigner(auth.SignerConfig{
		Secret:     authtest.Secret,
		Issuer:     "account-service",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Clock:      clock,
	})
	require.NoError(t, err)
	return signer, clock
}

func TestNewHMACSignerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  auth.SignerConfig
	}{
		{"short secret", auth.SignerConfig{Secret: "short", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"zero access ttl", auth.SignerConfig{Secret: authtest.Secret, RefreshTTL: time.Hour}},
		{"negative refresh ttl", auth.SignerConfig{Secret: authtest.Secret, AccessTTL: time.Minute, RefreshTTL: -time.Hour}},
		{"sub-second access ttl", auth.SignerConfig{Secret: authtest.Secret, AccessTTL: 500 * time.Millisecond, RefreshTTL: time.Hour}},
		{"access outlives refresh", auth.SignerConfig{Secret: authtest.Secret, AccessTTL: 2 * time.Hour, RefreshTTL: time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewHMACSigner(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, auth.ErrSigningKey))
		})
	}
}

func TestOneSecondAccessTokenDecodesAtIssue(t *testing.T) {
	clock := authtest.NewFakeClock(testStart.Add(900 * time.Millisecond))
	signer, err := auth.NewHMACSigner(auth.SignerConfig{
		Secret:     authtest.Secret,
		AccessTTL:  time.Second,
		RefreshTTL: time.Minute,
		Clock:      clock,
	})
	require.NoError(t, err)

	pair, err := signer.SignPair(signer.ClaimsFor(auth.User{ID: "user-1", Username: "alice"}))
	require.NoError(t, err)

	_, err = signer.Decode(pair.Access, auth.TokenTypeAccess)
	assert.NoError(t, err)
}

func TestSignPair(t *testing.T) {
	signer, _ := newTestSigner(t)

	base := signer.ClaimsFor(auth.User{ID: "user-1", Username: "alice"})
	base.Name = "alice"
	pair, err := signer.SignPair(base)
	require.NoError(t, err)
	require.NotEqual(t, pair.Access, pair.Refresh)

	access, err := signer.Decode(pair.Access, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.Subject)
	assert.Equal(t, "alice", access.Name)
	assert.Equal(t, auth.TokenTypeAccess, access.TokenType)
	assert.Equal(t, "account-service", access.Issuer)
	assert.Equal(t, testStart.Unix(), access.IssuedAt.Unix())
	assert.Equal(t, testStart.Add(5*time.Minute).Unix(), access.ExpiresAt.Unix())
	assert.NotEmpty(t, access.ID)

	refresh, err := signer.Decode(pair.Refresh, auth.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "alice", refresh.Name)
	assert.Equal(t, testStart.Add(24*time.Hour).Unix(), refresh.ExpiresAt.Unix())
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestDecode(t *testing.T) {
	signer, clock := newTestSigner(t)
	pair, err := signer.SignPair(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}, Name: "alice"})
	require.NoError(t, err)

	t.Run("any type accepted when unspecified", func(t *testing.T) {
		_, err := signer.Decode(pair.Refresh, "")
		require.NoError(t, err)
	})

	t.Run("wrong token type", func(t *testing.T) {
		_, err := signer.Decode(pair.Refresh, auth.TokenTypeAccess)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("tampered signature", func(t *testing.T) {
		tampered := pair.Access[:len(pair.Access)-4] + "AAAA"
		if tampered == pair.Access {
			tampered = pair.Access[:len(pair.Access)-4] + "BBBB"
		}
		_, err := signer.Decode(tampered, "")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := signer.Decode("not-a-jwt", "")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("signed with another secret", func(t *testing.T) {
		other, err := auth.NewHMACSigner(auth.SignerConfig{
			Secret:     strings.Repeat("z", 40),
			Issuer:     "account-service",
			AccessTTL:  5 * time.Minute,
			RefreshTTL: time.Hour,
			Clock:      clock,
		})
		require.NoError(t, err)
		otherPair, err := other.SignPair(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
		require.NoError(t, err)

		_, err = signer.Decode(otherPair.Access, "")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("unsigned token rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub":        "user-1",
			"token_type": "access",
			"iat":        testStart.Unix(),
			"exp":        testStart.Add(time.Hour).Unix(),
		})
		unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = signer.Decode(unsigned, "")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("expired access token", func(t *testing.T) {
		clock.Set(testStart.Add(5*time.Minute + time.Second))
		defer clock.Set(testStart)

		_, err := signer.Decode(pair.Access, auth.TokenTypeAccess)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
		assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

		_, err = signer.Decode(pair.Refresh, auth.TokenTypeRefresh)
		assert.NoError(t, err)
	})
}

func TestRefresh(t *testing.T) {
	signer, clock := newTestSigner(t)
	pair, err := signer.SignPair(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}, Name: "alice"})
	require.NoError(t, err)

	t.Run("new access token keeps subject and name", func(t *testing.T) {
		clock.Set(testStart.Add(time.Hour))
		defer clock.Set(testStart)

		access, err := signer.Refresh(pair.Refresh)
		require.NoError(t, err)

		claims, err := signer.Decode(access, auth.TokenTypeAccess)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "alice", claims.Name)
		assert.Equal(t, testStart.Add(time.Hour+5*time.Minute).Unix(), claims.ExpiresAt.Unix())
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, err := signer.Refresh(pair.Access)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("expired refresh token", func(t *testing.T) {
		clock.Set(testStart.Add(25 * time.Hour))
		defer clock.Set(testStart)

		_, err := signer.Refresh(pair.Refresh)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})
}
