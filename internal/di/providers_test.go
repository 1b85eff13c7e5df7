package di

import (
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/DavidFlautero/felxeasy/internal/config"
	"github.com/DavidFlautero/felxeasy/internal/http/router"
)

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999"}
	srv := provideHTTPServer(cfg, chi.NewRouter())
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout.Seconds() != 10 {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{RobotRateLimitPerMin: 240, APIRateLimitPerMin: 120, RateLimitFailOpen: true}
	dep := provideRouterDependencies(nil, nil, nil, nil, nil, nil, cfg)
	if dep.RobotRateLimitRPM != 240 || dep.APIRateLimitRPM != 120 {
		t.Fatalf("unexpected rate limits: %+v", dep)
	}
	if !dep.RateLimitFailOpen {
		t.Fatal("expected fail-open forwarded")
	}
	_ = router.Dependencies(dep)
}

func TestProvideSealerDisabledWithoutKey(t *testing.T) {
	sealer, err := provideSealer(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sealer != nil {
		t.Fatal("expected nil sealer when no key configured")
	}
}

func TestProvideExportServiceDisabled(t *testing.T) {
	svc, err := provideExportService(&config.Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc == nil {
		t.Fatal("expected disabled export service, got nil")
	}
}
