package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/randytsao24/carefinder/internal/api/handlers"
	"github.com/randytsao24/carefinder/internal/config"
)

// requestSlack is added to the search timeout so the pipeline reports its own
// timeout before the HTTP layer gives up.
const requestSlack = 5 * time.Second

// Services bundles the handler dependencies. History and Overrides may be nil.
type Services struct {
	Sessions  handlers.SessionStore
	History   handlers.HistoryStore
	FDA       handlers.FDAProvider
	Treatment handlers.TreatmentProvider
	Overrides handlers.OverrideStatus
}

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Recovery)
	r.Use(Logging)
	r.Use(CORS)
	r.Use(Timeout(requestTimeout(cfg)))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(svc.Overrides, svc.Sessions, svc.History)
	rootHandler := handlers.NewRootHandler()
	facilityHandler := handlers.NewFacilityHandler(svc.Sessions, svc.History, cfg.DirectionsURL)
	upstreamHandler := handlers.NewUpstreamHandler(svc.FDA, svc.Treatment)

	r.NotFound(rootHandler.NotFound)

	// Core routes
	r.Get("/", rootHandler.Index)
	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", rootHandler.Index)

		// Facility discovery
		r.Get("/facilities", facilityHandler.Search)
		r.Get("/facilities/map", facilityHandler.Map)
		r.Get("/facilities/current", facilityHandler.Current)
		r.Get("/facilities/current/map", facilityHandler.CurrentMap)
		r.Get("/searches/recent", facilityHandler.Recent)

		// Upstream proxies
		r.Get("/fda/stats", upstreamHandler.FDAStats)
		r.Get("/fda/drug-trends", upstreamHandler.DrugTrends)
		r.Get("/treatment-centers", upstreamHandler.TreatmentCenters)
	})

	return r
}

func requestTimeout(cfg *config.Config) time.Duration {
	d := cfg.SearchTimeout
	if cfg.HTTPTimeout > d {
		d = cfg.HTTPTimeout
	}
	return d + requestSlack
}
