package account

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"account-service/internal/auth"
	"account-service/internal/errmap"
	"account-service/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	issuer *auth.Issuer
	signer auth.TokenSigner
	logger *slog.Logger
}

func NewHandler(issuer *auth.Issuer, signer auth.TokenSigner, logger *slog.Logger) *Handler {
	return &Handler{issuer: issuer, signer: signer, logger: logger}
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

// Login answers POST /account/login/ with the flat login response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body auth.Credential
	if !decodeJSON(w, r, &body) {
		return
	}

	resp, err := h.issuer.Issue(r.Context(), body)
	if err != nil {
		h.writeFailure(w, r, "login_failed", err)
		return
	}

	h.logger.Info("login_succeeded",
		slog.String("username", resp.Username),
		slog.String("ip", observability.ClientIP(r)),
	)
	writeJSON(w, http.StatusOK, resp)
}

// Demo echoes the decoded payload of the caller's access token.
func (h *Handler) Demo(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.logger.Info("token_payload",
		slog.String("subject", claims.Subject),
		slog.String("name", claims.Name),
		slog.Any("payload", claims),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"detail":  "authentication passed",
		"payload": claims,
	})
}

// ObtainPair answers POST /api/token/ with just the refresh/access pair.
func (h *Handler) ObtainPair(w http.ResponseWriter, r *http.Request) {
	var body auth.Credential
	if !decodeJSON(w, r, &body) {
		return
	}

	pair, err := h.issuer.IssuePair(r.Context(), body)
	if err != nil {
		h.writeFailure(w, r, "obtain_pair_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	body.Refresh = strings.TrimSpace(body.Refresh)
	if body.Refresh == "" {
		writeError(w, http.StatusBadRequest, "refresh field is required")
		return
	}

	access, err := h.issuer.Refresh(r.Context(), body.Refresh)
	if err != nil {
		h.writeFailure(w, r, "refresh_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var body verifyRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	body.Token = strings.TrimSpace(body.Token)
	if body.Token == "" {
		writeError(w, http.StatusBadRequest, "token field is required")
		return
	}

	if _, err := h.signer.Decode(body.Token, ""); err != nil {
		h.writeFailure(w, r, "verify_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{})
}

// writeFailure maps err to its HTTP response. Client errors are logged at
// info; anything unexpected is logged and reported to Sentry.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, event string, err error) {
	httpErr := errmap.ToHTTPError(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		sentry.CaptureException(err)
		h.logger.Error(event, slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	} else {
		h.logger.Info(event,
			slog.String("path", r.URL.Path),
			slog.String("outcome", auth.Outcome(err)),
			slog.Int("status", httpErr.StatusCode),
		)
	}

	writeJSON(w, httpErr.StatusCode, httpErr)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)
	if errors.Is(err, io.EOF) {
		// Empty body: leave dst zero so field validation reports what is missing.
		return true
	}
	if err != nil || !errors.Is(decoder.Decode(&struct{}{}), io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
