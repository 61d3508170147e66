package internal

import (
	"net/http"
	"roverchat/internal/controllers"
	"roverchat/internal/providers"
	"roverchat/internal/structures"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func InitRoutes(
	socketController *controllers.SocketController,
	pollController *controllers.PollController,
	healthController *controllers.HealthController,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
	conf *structures.Config,
) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(providers.NewRequestLogFormatter(logger)),
		middleware.Recoverer,
		providers.MetricsMiddleware(metrics),
	)

	routers.Get("/socket", http.HandlerFunc(socketController.Serve))
	routers.Get("/poll", http.HandlerFunc(pollController.State))
	routers.Get("/health", http.HandlerFunc(healthController.Health))
	if conf.Metrics.Enabled {
		routers.Get("/metrics", promhttp.Handler())
	}
	return routers
}
