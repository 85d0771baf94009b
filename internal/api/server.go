package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/rosterdex/internal/api/handler"
	"github.com/albapepper/rosterdex/internal/auth"
	"github.com/albapepper/rosterdex/internal/config"
	"github.com/albapepper/rosterdex/internal/metrics"
)

// Deps are the collaborators the router wires into handlers and middleware.
type Deps struct {
	Handler handler.Deps
	Auth    *auth.Issuer
	Metrics *metrics.Metrics
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(cfg *config.Config, d Deps) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	r.Use(MetricsMiddleware(d.Metrics))
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Request-Id", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(d.Handler)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		// Catalog (public)
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/generations", h.ListGenerations)
			r.Get("/generations/{index}", h.GetGeneration)
			r.Get("/types", h.ListTypes)
			r.Get("/abilities", h.ListAbilities)
			r.Get("/species/{name}", h.GetSpecies)
		})

		// Everything below is scoped to the token's owner
		r.Group(func(r chi.Router) {
			r.Use(RequireOwner(d.Auth))

			r.Post("/sessions", h.CreateSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Delete("/", h.CloseSession)

				r.Get("/filter", h.GetFilter)
				r.Put("/filter/generation", h.SetGeneration)
				r.Put("/filter/facets/{facet}", h.LoadFacet)
				r.Delete("/filter/facets/{facet}", h.ClearFacet)
				r.Put("/filter/text", h.SetText)
				r.Get("/species", h.ListVisible)

				r.Get("/roster", h.GetRoster)
				r.Put("/roster/name", h.RenameRoster)
				r.Put("/roster/slots/{slot}", h.PutSlot)
				r.Patch("/roster/slots/{slot}", h.PatchSlot)
				r.Delete("/roster/slots/{slot}", h.ClearSlot)
				r.Post("/roster/save", h.SaveRoster)
				r.Post("/roster/new", h.NewRoster)
				r.Post("/roster/duplicate", h.DuplicateRoster)
				r.Post("/roster/load/{rosterID}", h.LoadRoster)
				r.Delete("/rosters/{rosterID}", h.DeleteSessionRoster)
			})

			r.Get("/rosters", h.ListRosters)
			r.Post("/rosters", h.CreateRoster)
			r.Get("/rosters/{id}", h.GetStoredRoster)
			r.Put("/rosters/{id}", h.UpdateRoster)
			r.Delete("/rosters/{id}", h.DeleteRoster)
		})
	})

	return r
}
