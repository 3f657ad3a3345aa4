package app

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"testportal/internal/app/apiresp"
	"testportal/internal/app/observability"
	"testportal/internal/assignment"
	"testportal/internal/ingest"
	"testportal/internal/student"
	"testportal/internal/testpool"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	poolSvc := testpool.NewService(db)
	ingestSvc := ingest.NewService(poolSvc)
	assignSvc := assignment.NewService(db, poolSvc)
	rosterSvc := student.NewService(db)

	poolHandler := testpool.NewHandler(poolSvc)
	ingestHandler := ingest.NewHandler(ingestSvc)
	assignHandler := assignment.NewHandler(assignSvc)
	rosterHandler := student.NewHandler(rosterSvc)

	collector := observability.NewCollector(db)
	adminLimiter := NewIPRateLimiter(cfg.AdminRateLimitPerMin, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(collector.Middleware)
	r.Use(CSRFMiddleware(cfg.CSRFEnforced))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		apiresp.WriteOK(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.Use(RateLimitMiddleware(adminLimiter))

			r.Route("/tests", func(r chi.Router) {
				r.Get("/", poolHandler.List)
				r.Get("/{testID}", poolHandler.Get)
				r.Delete("/{testID}", poolHandler.Deactivate)
				r.Post("/import/preview", ingestHandler.Preview)
				r.Post("/import", ingestHandler.Import)
			})

			r.Route("/students", func(r chi.Router) {
				r.Get("/", rosterHandler.List)
				r.Post("/", rosterHandler.Create)
				r.Post("/import", rosterHandler.Import)
				r.Get("/export", rosterHandler.Export)
			})

			r.Post("/assignments", assignHandler.Assign)
			r.Post("/assignments/{studentID}/{testID}/recompute", assignHandler.Recompute)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", assignHandler.List)
			r.Put("/{testID}/answers/{questionNo}", assignHandler.RecordAnswer)
			r.Post("/{testID}/complete", assignHandler.Complete)
			r.Get("/{testID}/result", assignHandler.Result)
		})
	})

	return r
}
