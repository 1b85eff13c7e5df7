package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/DavidFlautero/felxeasy/internal/http/handler"
	"github.com/DavidFlautero/felxeasy/internal/http/middleware"
)

// Dependencies carries everything the router needs. Handlers may be nil
// in tests that only exercise a subset of routes.
type Dependencies struct {
	RobotHandler      *handler.RobotHandler
	CaptureHandler    *handler.CaptureHandler
	CredentialHandler *handler.CredentialHandler
	HealthHandler     *handler.HealthHandler

	WorkerAuth *middleware.WorkerAuth

	RobotLimiter      middleware.Limiter
	APILimiter        middleware.Limiter
	RobotRateLimitRPM int
	APIRateLimitRPM   int
	RateLimitFailOpen bool
}

// New builds the relay's route tree. Worker routes sit behind worker
// auth and a per-user rate limit; dashboard routes share a separate
// limit; probes bypass both.
func New(dep Dependencies) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	if dep.HealthHandler != nil {
		r.Get("/healthz", dep.HealthHandler.Healthz)
		r.Get("/readyz", dep.HealthHandler.Readyz)
	}

	mode := middleware.FailClosed
	if dep.RateLimitFailOpen {
		mode = middleware.FailOpen
	}

	robotLimiter := dep.RobotLimiter
	if robotLimiter == nil {
		robotLimiter = middleware.NewLocalFixedWindowLimiter()
	}
	apiLimiter := dep.APILimiter
	if apiLimiter == nil {
		apiLimiter = middleware.NewLocalFixedWindowLimiter()
	}

	robotRL := middleware.NewDistributedRateLimiterWithKey(
		robotLimiter, dep.RobotRateLimitRPM, time.Minute, mode, "robots", middleware.WorkerKeyFunc(),
	)
	apiRL := middleware.NewDistributedRateLimiter(
		apiLimiter, dep.APIRateLimitRPM, time.Minute, mode, "api",
	)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/robots", func(robots chi.Router) {
			robots.Use(robotRL.Middleware())
			if dep.WorkerAuth != nil {
				robots.Use(dep.WorkerAuth.Middleware())
			}
			if dep.RobotHandler != nil {
				robots.Post("/register", dep.RobotHandler.Register)
				robots.Post("/status", dep.RobotHandler.ReportStatus)
				robots.Post("/blocks", dep.RobotHandler.ReportBlocks)
				robots.Get("/commands", dep.RobotHandler.PollCommands)
				robots.Post("/commands", dep.RobotHandler.PostCommand)
				robots.Get("/session", dep.RobotHandler.GetSession)
			}
		})

		api.Group(func(dashboard chi.Router) {
			dashboard.Use(apiRL.Middleware())
			if dep.CaptureHandler != nil {
				dashboard.Get("/captures", dep.CaptureHandler.List)
				dashboard.Get("/captures/stats", dep.CaptureHandler.Stats)
				dashboard.Post("/captures/export", dep.CaptureHandler.Export)
			}
			if dep.CredentialHandler != nil {
				dashboard.Put("/credentials", dep.CredentialHandler.Store)
				dashboard.Get("/credentials/status", dep.CredentialHandler.Status)
				dashboard.Delete("/credentials", dep.CredentialHandler.Clear)
			}
		})
	})

	return r
}
