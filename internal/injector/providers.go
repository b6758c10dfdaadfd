package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/voxphys/internal/app"
	"github.com/zeusync/voxphys/internal/config"
	"github.com/zeusync/voxphys/internal/core/events/bus"
	"github.com/zeusync/voxphys/internal/core/observability/log"
	"github.com/zeusync/voxphys/internal/core/system"
	"github.com/zeusync/voxphys/internal/core/systems/physics"
	"github.com/zeusync/voxphys/internal/core/terrain"
	"github.com/zeusync/voxphys/internal/telemetry"
)

// ProviderSet builds an App from a loaded Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideTerrain,
	wire.Bind(new(terrain.Volume), new(*terrain.Chunked)),
	ProvideEngine,
	ProvideManager,
	ProvideHub,
	ProvideServer,
	app.New,
)

func ProvideLogger(cfg config.Config) log.Log {
	return log.Provide(cfg.Log)
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

func ProvideTerrain(cfg config.Config) *terrain.Chunked {
	return app.BuildTerrain(cfg.Simulation.Scene)
}

func ProvideEngine(cfg config.Config, vol terrain.Volume, eb bus.EventBus, logger log.Log) (*physics.Engine, error) {
	return physics.NewEngine(cfg.Physics, nil, vol, nil, eb, logger)
}

func ProvideManager(logger log.Log) *system.Manager {
	return system.NewManager(logger)
}

func ProvideHub(cfg config.Config, logger log.Log) *telemetry.Hub {
	return telemetry.NewHub(cfg.Telemetry, logger)
}

func ProvideServer(cfg config.Config, hub *telemetry.Hub, logger log.Log) *telemetry.Server {
	return telemetry.NewServer(cfg.Telemetry, hub, logger)
}
