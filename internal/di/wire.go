//go:build wireinject
// +build wireinject

package di

import (
	"BookPulse/pkg/config"
	"BookPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// Market data and execution
		ProvideDepthStream,
		ProvideTradeStream,
		ProvideExecutor,

		// Decision components
		ProvideImbalanceCalculator,
		ProvideTradeFlowAnalyzer,
		ProvideSpreadFilter,
		ProvidePositionSizer,
		ProvideRiskManager,
		ProvidePolicy,

		// Use cases
		ProvideDecisionRecorder,
		ProvideSnapshotMailbox,
		ProvideMarketCollector,
		ProvideEngine,
		ProvideKafkaHandlers,
		ProvideRedisQueue,

		// HTTP and application server
		ProvideOpsHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
