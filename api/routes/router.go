package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/propnest/propnest-client/api/controllers"
	"github.com/propnest/propnest-client/api/middleware"
	"github.com/propnest/propnest-client/pkg/config"
	"github.com/propnest/propnest-client/pkg/logger"
)

// Runtime is everything the status API drives. *app.App satisfies it.
type Runtime interface {
	controllers.SessionService
	controllers.NotificationService
}

// NewRouter builds the local status API. gatherer may be nil to omit
// /metrics; pingers feed the readiness probe.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	runtime Runtime,
	gatherer prometheus.Gatherer,
	pingers map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Status.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, runtime, pingers, logg))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Status.Token, logg))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionStatus(runtime))
			r.Post("/", controllers.SessionLogin(runtime, logg))
			r.Delete("/", controllers.SessionLogout(runtime, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(runtime, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(runtime, logg))
			r.Post("/clear", controllers.ClearNotifications(runtime, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(runtime, logg))
		})
	})

	return r
}
