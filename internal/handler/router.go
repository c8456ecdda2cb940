package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/observability"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles what the HTTP layer calls into.
type Services struct {
	Transactions *service.TransactionService
	Reports      *service.ReportService
	Catalog      *service.CatalogService
	Sync         *service.SyncQueue
	Tokens       *service.TokenService
	Calendar     *ledger.Calendar
	AuthRequired bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(svcs.Tokens, svcs.AuthRequired, logger))
		r.Use(durationMiddleware(metrics))
		admin := RequireRole(domain.RoleAdmin, logger)

		// Transactions
		r.Get("/transactions", listTransactionsHandler(svcs.Transactions, svcs.Calendar, logger))
		r.Post("/transactions", createTransactionHandler(svcs.Transactions, logger))
		r.With(admin).Patch("/transactions/{id}", updateTransactionHandler(svcs.Transactions, logger))
		r.With(admin).Delete("/transactions/{id}", deleteTransactionHandler(svcs.Transactions, logger))
		r.With(admin).Delete("/transactions", deleteTransactionByIndexHandler(svcs.Transactions, logger))

		// Admin maintenance
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Post("/transactions/backfill-ids", backfillIDsHandler(svcs.Transactions, logger))
			r.Post("/transactions/headers", ensureHeadersHandler(svcs.Transactions, logger))
		})

		// Reports
		r.Get("/reports/daily", dailyReportHandler(svcs.Reports, logger))
		r.Get("/reports/sales", salesReportHandler(svcs.Reports, logger))
		r.Get("/reports/range", rangeReportHandler(svcs.Reports, logger))

		// Offline sync
		r.Get("/sync/status", syncStatusHandler(svcs.Sync, logger))
		r.Post("/sync/drain", syncDrainHandler(svcs.Sync, logger))

		// Workers
		r.Get("/workers", listWorkersHandler(svcs.Catalog, logger))
		r.With(admin).Post("/workers", createWorkerHandler(svcs.Catalog, logger))
		r.With(admin).Put("/workers/{email}", updateWorkerHandler(svcs.Catalog, logger))
		r.With(admin).Delete("/workers/{email}", deleteWorkerHandler(svcs.Catalog, logger))

		// Service catalog
		r.Get("/services", priceListHandler(svcs.Catalog, logger))
		r.With(admin).Post("/services", createServiceHandler(svcs.Catalog, logger))
		r.With(admin).Put("/services/{category}/{name}", updateServiceHandler(svcs.Catalog, logger))
		r.With(admin).Delete("/services/{category}/{name}", deleteServiceHandler(svcs.Catalog, logger))

		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", listUsersHandler(svcs.Catalog, logger))
			r.Post("/", createUserHandler(svcs.Catalog, logger))
			r.Put("/{email}", updateUserHandler(svcs.Catalog, logger))
			r.Delete("/{email}", deleteUserHandler(svcs.Catalog, logger))
		})
	})

	return r
}

// durationMiddleware records request latency per route pattern.
func durationMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			pattern := r.Method + " " + r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = r.Method + " " + rctx.RoutePattern()
			}
			metrics.RecordRequestDuration(pattern, time.Since(start))
		})
	}
}

// pathParam returns a URL parameter with percent-escapes decoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// ============================================================
// Health
// ============================================================

func healthzHandler(svcs Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now()
		checked := now.Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "salon-api", Status: "healthy", LatencyMs: 0, LastChecked: checked},
		}

		if svcs.Transactions != nil && svcs.Calendar != nil {
			start := time.Now()
			_, err := svcs.Transactions.List(ctx, svcs.Calendar.Today(now))
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("health: backend probe failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "backend", Status: status, LatencyMs: latency, LastChecked: checked,
			})
		}

		if svcs.Sync != nil {
			status := "healthy"
			st, err := svcs.Sync.Status(ctx)
			switch {
			case err != nil:
				status = "unhealthy"
			case st.Pending > 0:
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "offline-queue", Status: status, LastChecked: checked,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
