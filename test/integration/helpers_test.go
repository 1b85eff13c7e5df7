package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DavidFlautero/felxeasy/internal/database"
	"github.com/DavidFlautero/felxeasy/internal/http/handler"
	"github.com/DavidFlautero/felxeasy/internal/http/router"
	"github.com/DavidFlautero/felxeasy/internal/repository"
	"github.com/DavidFlautero/felxeasy/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type relayStack struct {
	DB      *gorm.DB
	Redis   *miniredis.Miniredis
	Relay   service.RelayService
	BaseURL string
	Client  *http.Client
}

func newRelayTestServer(t *testing.T, robotLimit int) *relayStack {
	t.Helper()

	dsn := fmt.Sprintf("file:integration_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := repository.NewSessionRepository(db)
	captures := repository.NewCaptureRepository(db)
	presence := service.NewRedisPresenceTracker(client, "presence", 2*time.Minute)
	relay := service.NewRelayService(sessions, captures, presence, log)
	captureSvc := service.NewCaptureService(captures)

	r := router.New(router.Dependencies{
		RobotHandler:      handler.NewRobotHandler(relay),
		CaptureHandler:    handler.NewCaptureHandler(captureSvc, service.NewDisabledExportService()),
		HealthHandler:     handler.NewHealthHandler(db, client),
		RobotRateLimitRPM: robotLimit,
		APIRateLimitRPM:   1000,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &relayStack{
		DB:      db,
		Redis:   m,
		Relay:   relay,
		BaseURL: srv.URL,
		Client:  srv.Client(),
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, raw)
		}
	}
	return resp, env
}
