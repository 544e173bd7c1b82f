package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/condo-backend/api/controllers"
	"github.com/angelmondragon/condo-backend/api/middleware"
	"github.com/angelmondragon/condo-backend/internal/maintenance"
	"github.com/angelmondragon/condo-backend/internal/units"
	"github.com/angelmondragon/condo-backend/internal/water"
	"github.com/angelmondragon/condo-backend/pkg/config"
	"github.com/angelmondragon/condo-backend/pkg/db"
	"github.com/angelmondragon/condo-backend/pkg/logger"
)

type rateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services groups the domain services exposed over HTTP.
type Services struct {
	Units       units.Service
	Maintenance maintenance.Service
	Water       water.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient rateLimitStore,
	gatherer prometheus.Gatherer,
	services Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	checks := []controllers.ReadinessCheck{{Name: "database", Pinger: dbP}}
	if redisClient != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
	}

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, checks...))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	codeLookupLimit := middleware.NewRateLimitPolicy("code_lookup", cfg.RateLimit.CodeLookupWindow, cfg.RateLimit.CodeLookupLimit)
	joinLimit := middleware.NewRateLimitPolicy("join", cfg.RateLimit.JoinWindow, cfg.RateLimit.JoinLimit)

	r.Route("/api/v1/units", func(r chi.Router) {
		r.Post("/", controllers.UnitCreate(services.Units, logg))
		r.Get("/", controllers.UnitList(services.Units, logg))

		r.With(middleware.RateLimit(codeLookupLimit, redisClient, logg)).
			Get("/code/{code}", controllers.UnitGetByCode(services.Units, logg))
		r.With(middleware.RateLimit(joinLimit, redisClient, logg)).
			Post("/join", controllers.UnitJoin(services.Units, logg))
		r.Get("/by-user/{userID}", controllers.UnitListByUser(services.Units, logg))

		r.Route("/{unitID}", func(r chi.Router) {
			r.Get("/", controllers.UnitGet(services.Units, logg))
			r.Patch("/", controllers.UnitPatch(services.Units, logg))
			r.Delete("/", controllers.UnitDelete(services.Units, logg))
			r.Post("/codes", controllers.UnitRotateCodes(services.Units, logg))

			r.Post("/members", controllers.MemberAdd(services.Units, logg))
			r.Patch("/members/{userID}", controllers.MemberChangePermission(services.Units, logg))
			r.Delete("/members/{userID}", controllers.MemberRemove(services.Units, logg))

			r.Post("/maintenance", controllers.MaintenanceCreate(services.Maintenance, logg))
			r.Get("/maintenance", controllers.MaintenanceList(services.Maintenance, logg))

			r.Post("/water", controllers.WaterReadingCreate(services.Water, logg))
			r.Get("/water", controllers.WaterReadingList(services.Water, logg))
		})
	})

	return r
}
