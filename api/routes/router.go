package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packfinderz-storefront/api/controllers"
	cartcontrollers "github.com/angelmondragon/packfinderz-storefront/api/controllers/cart"
	"github.com/angelmondragon/packfinderz-storefront/api/middleware"
	"github.com/angelmondragon/packfinderz-storefront/pkg/config"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/packfinderz-storefront/pkg/redis"
)

// NewRouter wires the storefront HTTP surface. idempotency may be nil when Redis is
// not configured; readiness entries that are nil are skipped.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	registry cartcontrollers.StoreRegistry,
	readiness map[string]controllers.Pinger,
	idempotency pkgredis.IdempotencyStore,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.Device(logg))

		r.Get("/session/ping", controllers.SessionPing())

		r.Route("/cart", func(r chi.Router) {
			idem := middleware.Idempotency(idempotency, logg)

			r.Get("/", cartcontrollers.CartFetch(registry, logg))
			r.Delete("/", cartcontrollers.CartClear(registry, logg))
			r.With(idem).Post("/items", cartcontrollers.CartAddItem(registry, logg))
			r.Patch("/items/{lineId}", cartcontrollers.CartUpdateItem(registry, logg))
			r.Delete("/items/{lineId}", cartcontrollers.CartRemoveItem(registry, logg))
			r.With(idem).Post("/reconcile", cartcontrollers.CartReconcile(registry, logg))
		})
	})

	return r
}
