package account_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/account"
	"account-service/internal/auth"
	"account-service/internal/auth/authtest"
)

type fixture struct {
	handler *account.Handler
	signer  *auth.HMACSigner
	store   *authtest.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	signer, err := auth.NewHMACSigner(auth.SignerConfig{
		Secret:     authtest.Secret,
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	store := authtest.NewMemoryStore()
	store.Add("alice", "alice@example.com", "correct-pw")

	issuer := auth.NewIssuer(auth.IssuerConfig{Store: store, Signer: signer})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{handler: account.NewHandler(issuer, signer, logger), signer: signer, store: store}
}

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)

	rec := post(f.handler.Login, "/account/login/", `{"username":"alice","password":"correct-pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "alice@example.com", resp.Email)

	claims, err := f.signer.Decode(resp.Access, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, claims.ExpiresAt.Unix(), resp.Expire)
	assert.Equal(t, "alice", claims.Name)

	body := decode(t, rec)
	assert.Len(t, body, 5)
	for _, key := range []string{"refresh", "access", "expire", "username", "email"} {
		assert.Contains(t, body, key)
	}
}

func TestLoginMissingUsername(t *testing.T) {
	f := newFixture(t)

	rec := post(f.handler.Login, "/account/login/", `{"password":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])
	assert.True(t, strings.HasPrefix(body["error"].(string), "validation failed: "))
	fields := body["fields"].(map[string]any)
	assert.Equal(t, []any{"username field is required"}, fields["username"])
}

func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	f := newFixture(t)

	unknown := post(f.handler.Login, "/account/login/", `{"username":"nouser","password":"x"}`)
	wrong := post(f.handler.Login, "/account/login/", `{"username":"alice","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.JSONEq(t, unknown.Body.String(), wrong.Body.String())
	assert.Equal(t, "invalid credentials", decode(t, unknown)["error"])
}

func TestLoginBadBody(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{`,
		`{"username":"alice","password":"x","admin":true}`,
		`[]`,
		`{"username":"alice","password":"correct-pw"} trailing`,
		`{"username":"alice","password":"correct-pw"}{}`,
	} {
		rec := post(f.handler.Login, "/account/login/", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "invalid json body", decode(t, rec)["error"])
	}
}

func TestLoginEmptyBodyReportsMissingFields(t *testing.T) {
	f := newFixture(t)

	rec := post(f.handler.Login, "/account/login/", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])
	fields := body["fields"].(map[string]any)
	assert.Equal(t, []any{"username field is required"}, fields["username"])
	assert.Equal(t, []any{"password field is required"}, fields["password"])
}

func TestLoginNullCharacterIsClientError(t *testing.T) {
	f := newFixture(t)
	// Any store lookup would turn into a 500.
	f.store.Err = io.ErrUnexpectedEOF

	rec := post(f.handler.Login, "/account/login/", `{"username":"ali\u0000ce","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	fields := decode(t, rec)["fields"].(map[string]any)
	assert.Equal(t, []any{"null characters are not allowed"}, fields["username"])
}

func TestLoginStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Err = io.ErrUnexpectedEOF

	rec := post(f.handler.Login, "/account/login/", `{"username":"alice","password":"correct-pw"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "unexpected EOF")
}

func TestObtainPair(t *testing.T) {
	f := newFixture(t)

	rec := post(f.handler.ObtainPair, "/api/token/", `{"username":"alice","password":"correct-pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Len(t, body, 2)
	assert.NotEmpty(t, body["access"])
	assert.NotEmpty(t, body["refresh"])
}

func TestRefreshAndVerify(t *testing.T) {
	f := newFixture(t)

	login := post(f.handler.Login, "/account/login/", `{"username":"alice","password":"correct-pw"}`)
	require.Equal(t, http.StatusOK, login.Code)
	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &resp))

	t.Run("refresh returns a new access token with name", func(t *testing.T) {
		rec := post(f.handler.Refresh, "/api/refresh/", `{"refresh":"`+resp.Refresh+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		access := decode(t, rec)["access"].(string)
		claims, err := f.signer.Decode(access, auth.TokenTypeAccess)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Name)
	})

	t.Run("refresh rejects access token", func(t *testing.T) {
		rec := post(f.handler.Refresh, "/api/refresh/", `{"refresh":"`+resp.Access+`"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_NOT_VALID", decode(t, rec)["code"])
	})

	t.Run("refresh requires field", func(t *testing.T) {
		for _, body := range []string{`{}`, ``} {
			rec := post(f.handler.Refresh, "/api/refresh/", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "refresh field is required", decode(t, rec)["error"])
		}
	})

	t.Run("verify accepts both token kinds", func(t *testing.T) {
		for _, token := range []string{resp.Access, resp.Refresh} {
			rec := post(f.handler.Verify, "/api/token/verify/", `{"token":"`+token+`"}`)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{}`, rec.Body.String())
		}
	})

	t.Run("verify rejects tampered token", func(t *testing.T) {
		rec := post(f.handler.Verify, "/api/token/verify/", `{"token":"`+resp.Access+`x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDemo(t *testing.T) {
	f := newFixture(t)

	t.Run("echoes claims from context", func(t *testing.T) {
		claims := &auth.Claims{Name: "alice", TokenType: auth.TokenTypeAccess}
		claims.Subject = "user-1"
		req := httptest.NewRequest(http.MethodGet, "/account/test/", nil)
		req = req.WithContext(auth.ContextWithClaims(req.Context(), claims))
		rec := httptest.NewRecorder()

		f.handler.Demo(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "authentication passed", body["detail"])
		payload := body["payload"].(map[string]any)
		assert.Equal(t, "alice", payload["name"])
		assert.Equal(t, "user-1", payload["sub"])
	})

	t.Run("without claims", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.Demo(rec, httptest.NewRequest(http.MethodGet, "/account/test/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
