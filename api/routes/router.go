package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conjurecontent/backend/api/controllers"
	"github.com/conjurecontent/backend/api/middleware"
	"github.com/conjurecontent/backend/internal/jobstore"
	"github.com/conjurecontent/backend/pkg/config"
	"github.com/conjurecontent/backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter assembles the HTTP surface: health probes plus the job and
// platform-session management API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisP pinger,
	jobService jobstore.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", controllers.CreateJob(jobService, logg))
			r.Get("/", controllers.ListJobs(jobService, logg))
			r.Get("/{jobID}", controllers.GetJob(jobService, logg))
			r.Delete("/{jobID}", controllers.DeleteJob(jobService, logg))
		})

		r.Route("/platform-sessions", func(r chi.Router) {
			r.Post("/", controllers.LinkPlatformSession(jobService, logg))
			r.Get("/", controllers.ListPlatformSessions(jobService, logg))
			r.Delete("/{sessionID}", controllers.UnlinkPlatformSession(jobService, logg))
		})
	})

	return r
}
