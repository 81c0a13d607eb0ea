package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Overland-East-Bay/carpool-api/internal/platform/observability"
)

type RouterOptions struct {
	// Metrics enables request instrumentation and the /metrics endpoint when set.
	Metrics *observability.Metrics
	// CORSOrigins are the allowed browser origins; empty allows any origin.
	CORSOrigins []string
}

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: it decodes requests, delegates to the
// application services and encodes their results.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders: []string{"Idempotent-Replayed", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.StripSlashes)
	if opts.Metrics != nil {
		r.Use(metricsMiddleware(opts.Metrics))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("API is running"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.Signup)
			r.Post("/login", s.Login)
			r.Post("/logout", s.Logout)
			r.Post("/updateUserInfos", s.UpdateUserInfos)
			r.Post("/trajet", s.UpsertTrip)
		})
		r.Get("/trajets", s.ListTrips)
		r.Post("/trajets", s.CreateTrip)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}

// metricsMiddleware labels requests by route pattern; unmatched paths share one label.
func metricsMiddleware(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.RecordRequest(route, r.Method, status, time.Since(start))
		})
	}
}
