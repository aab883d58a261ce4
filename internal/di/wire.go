//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"nichescope/pkg/config"
	"nichescope/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideJobQueue,

		// Data providers
		ProvideTrendProvider,
		ProvideCompetitionProvider,

		// Analytics
		ProvideScorer,
		ProvideKeywordExpander,
		ProvideTrendValidator,
		ProvideCompetitiveAnalyzer,
		ProvideListingGenerator,
		ProvideStressTester,

		// Repositories
		ProvideReportStore,
		ProvideReportPublisher,

		// Use cases
		ProvideNicheEngine,
		ProvideReportCollector,
		ProvideNicheService,
		ProvideKafkaEvaluationHandler,
		ProvideJobs,

		// Application server
		ProvideHTTPHandler,
		ProvideClosers,
		ProvideApp,
	)
	return &server.App{}, nil
}
