package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/posrelay/api/controllers"
	"github.com/angelmondragon/posrelay/api/middleware"
	"github.com/angelmondragon/posrelay/internal/centres"
	"github.com/angelmondragon/posrelay/internal/sales"
	"github.com/angelmondragon/posrelay/pkg/config"
	"github.com/angelmondragon/posrelay/pkg/logger"
	"github.com/angelmondragon/posrelay/pkg/metrics"
	"github.com/angelmondragon/posrelay/pkg/redis"
)

// RouterParams carries everything the relay router wires.
type RouterParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Redis   *redis.Client
	DB      controllers.Pinger
	Centres centres.Service
	Sales   sales.Service
	Metrics *metrics.RelayMetrics
	// Gatherer backs /metrics; the route is skipped when nil.
	Gatherer prometheus.Gatherer
}

type recordRoute struct {
	collection centres.Collection
	param      string
}

var recordRoutes = []recordRoute{
	{collection: centres.Items, param: "item"},
	{collection: centres.Customers, param: "customer"},
	{collection: centres.Bookings, param: "booking"},
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Relay.CORSOrigins),
		middleware.Timeout(cfg.Relay.RequestTimeout),
		middleware.BodyLimit(cfg.Relay.MaxBodyBytes),
	)

	salesPolicy := middleware.NewRateLimitPolicy(
		"sales",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.CentreLimit,
	)

	gate := middleware.RequireCentre(params.Centres, logg)
	resolve := middleware.ResolveCentre(logg)
	idempotent := middleware.Idempotency(params.Redis, cfg.Relay.IdempotencyTTL, logg)

	deps := map[string]controllers.Pinger{"redis": params.Redis}
	if params.DB != nil {
		deps["postgres"] = params.DB
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps, logg))
	})
	if params.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	r.With(resolve).Patch("/config/{centre}", controllers.PatchConfig(params.Centres, params.Metrics, logg))

	for _, rr := range recordRoutes {
		base := "/" + rr.collection.Name + "/{centre}"
		record := base + "/{" + rr.param + "}"
		r.With(gate).Get(base, controllers.ListRecords(params.Centres, rr.collection, logg))
		r.With(resolve, idempotent).Post(base, controllers.CreateRecord(params.Centres, rr.collection, params.Metrics, logg))
		r.With(gate).Put(record, controllers.UpdateRecord(params.Centres, rr.collection, rr.param, params.Metrics, logg))
		if rr.collection.Tracked {
			r.With(gate).Get(record+"/history", controllers.RecordHistory(params.Centres, rr.collection, rr.param, logg))
		}
	}

	r.With(middleware.RateLimit(salesPolicy, params.Redis, logg), resolve, idempotent).
		Post("/sales/{centre}", controllers.EnqueueSale(params.Sales, params.Metrics, logg))
	r.With(gate).Get("/sales/{centre}/{sale}/audit", controllers.SaleAudit(params.Sales, logg))

	r.With(gate).Get("/{centre}", controllers.CentreConfig(params.Centres, logg))
	r.With(gate).Get("/{centre}/status", controllers.CentreStatus(params.Sales, cfg.Relay, logg))

	return r
}
