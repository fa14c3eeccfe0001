package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"account-service/internal/account"
	"account-service/internal/auth"
	"account-service/internal/observability"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterDeps struct {
	Account *account.Handler
	Signer  auth.TokenSigner
	Metrics *observability.Metrics
	Health  Pinger
	Logger  *slog.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	r.HandleFunc("/account/login/", d.Account.Login).Methods(http.MethodPost)
	r.Handle("/account/test/", auth.Middleware(d.Signer, http.HandlerFunc(d.Account.Demo))).Methods(http.MethodGet)

	r.HandleFunc("/api/token/", d.Account.ObtainPair).Methods(http.MethodPost)
	r.HandleFunc("/api/refresh/", d.Account.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/token/verify/", d.Account.Verify).Methods(http.MethodPost)

	r.HandleFunc("/health", healthHandler(d.Health)).Methods(http.MethodGet)
	r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)

	return observability.RecoverMiddleware(d.Logger, observability.RequestLoggingMiddleware(d.Logger, r))
}

func healthHandler(database Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}

		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
