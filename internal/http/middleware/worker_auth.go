package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/DavidFlautero/felxeasy/internal/http/response"
	"github.com/DavidFlautero/felxeasy/internal/security"
)

type workerContextKey string

const workerIDContextKey workerContextKey = "worker_id"

// WorkerAuth verifies the bearer token robot workers present on relay
// routes. When disabled the middleware passes everything through so
// local setups can run without minting tokens.
type WorkerAuth struct {
	tokens  *security.WorkerTokenManager
	enabled bool
}

func NewWorkerAuth(tokens *security.WorkerTokenManager, enabled bool) *WorkerAuth {
	return &WorkerAuth{tokens: tokens, enabled: enabled}
}

func (a *WorkerAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.enabled {
				next.ServeHTTP(w, r)
				return
			}
			raw := bearerToken(r)
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing worker token", nil)
				return
			}
			workerID, err := a.tokens.Verify(raw)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid worker token", nil)
				return
			}
			ctx := context.WithValue(r.Context(), workerIDContextKey, workerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WorkerIDFromContext returns the worker identity set by WorkerAuth, or
// an empty string when auth is disabled or the request was anonymous.
func WorkerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(workerIDContextKey).(string); ok {
		return v
	}
	return ""
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) >= len("bearer ")+1 && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}
