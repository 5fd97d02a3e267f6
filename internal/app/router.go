package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/registration-demo/registration/internal/accounts"
	"github.com/registration-demo/registration/internal/observability"
	"github.com/registration-demo/registration/internal/platform/db"
	"github.com/registration-demo/registration/internal/platform/httpx"
	"github.com/registration-demo/registration/jobs"
)

const readinessTimeout = 3 * time.Second

// ReadinessCheck probes one dependency for /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Pool            db.Beginner
	AccountsHandler *accounts.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
	Readiness       []ReadinessCheck
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(logger, params.Readiness))
	r.Handle("/metrics", params.Metrics.Handler())

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(params.Config))
		r.Use(db.Scope(params.Pool, logger))
		params.AccountsHandler.MountRoutes(r)
	})

	return r
}

func readinessHandler(logger *slog.Logger, checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := make([]string, len(checks))
		var g errgroup.Group
		for i, check := range checks {
			g.Go(func() error {
				if err := check.Check(ctx); err != nil {
					logger.Warn("readiness check failed", slog.String("check", check.Name), slog.Any("error", err))
					failed[i] = check.Name
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			names := make([]string, 0, len(failed))
			for _, name := range failed {
				if name != "" {
					names = append(names, name)
				}
			}
			httpx.Problem(w, http.StatusServiceUnavailable, "Not Ready", strings.Join(names, ", "))
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
