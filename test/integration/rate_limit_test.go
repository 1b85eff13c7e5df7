package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DavidFlautero/felxeasy/internal/http/middleware"
	"github.com/DavidFlautero/felxeasy/internal/security"
)

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	rl := middleware.NewRateLimiter(2, time.Minute)
	r := chi.NewRouter()
	r.With(rl.Middleware()).Get("/x", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 on request %d, got %d", i+1, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", w.Code)
	}
}

func TestRateLimiterWorkerKeyingAcrossIPs(t *testing.T) {
	workerLimiter := middleware.NewRateLimiterWithKey(2, time.Minute, middleware.WorkerKeyFunc())

	r := chi.NewRouter()
	r.With(workerLimiter.Middleware()).Get("/x", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	addrs := []string{"10.0.0.1:1234", "10.0.0.2:1234"}
	for i, addr := range addrs {
		req := httptest.NewRequest(http.MethodGet, "/x?user_id=u-1", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected request %d from %s to pass, got %d", i+1, addr, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/x?user_id=u-1", nil)
	req.RemoteAddr = "10.0.0.3:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected third request for same worker to be limited, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/x?user_id=u-2", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected different worker on same IP to have separate quota, got %d", w.Code)
	}
}

func TestWorkerAuthProtectsRobotRoutes(t *testing.T) {
	tokens := security.NewWorkerTokenManager("flexeasy-relay", "0123456789abcdef0123456789abcdef")
	auth := middleware.NewWorkerAuth(tokens, true)

	r := chi.NewRouter()
	r.With(auth.Middleware()).Get("/x", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	token, err := tokens.Sign("u-1", time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}
