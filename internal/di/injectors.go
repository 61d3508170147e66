//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"roverchat/internal"
	"roverchat/internal/controllers"
	"roverchat/internal/poll"
	"roverchat/internal/providers"
	"roverchat/internal/realtime"
	"roverchat/internal/services"
	"roverchat/internal/storage"
	"roverchat/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.ProvideLogger,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		storage.NewEventLog,
		realtime.NewRegistry,
		wire.Bind(new(realtime.RegistryInterface), new(*realtime.Registry)),
		services.NewDispatcher,
		services.NewChatService,
		services.NewReplayService,

		poll.ProvideCompressor,
		poll.ProvideArchive,
		poll.NewEngine,

		controllers.NewSocketController,
		controllers.NewPollController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}
