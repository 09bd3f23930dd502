package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/api/handler"
	apimw "github.com/alumnihub/event-mailer/internal/api/middleware"
	"github.com/alumnihub/event-mailer/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.DispatchService,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	dh := handler.NewDispatchHandler(svc, logger)
	jh := handler.NewJobHandler(svc, logger)
	qh := handler.NewQueueHandler(svc)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Dispatch trigger + status
		r.Post("/events/{id}/dispatch", dh.Dispatch)
		r.Get("/dispatches/{id}", dh.GetDispatch)

		// Jobs
		r.Get("/jobs", jh.List)
		r.Get("/jobs/{id}", jh.GetByID)
		r.Delete("/jobs/{id}", jh.Cancel)

		// Durable-queue snapshot
		r.Get("/queue", qh.GetQueue)
	})

	return r
}
