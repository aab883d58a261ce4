package service

import (
	"context"

	"nichescope/internal/domain/models"
)

// TrendDataProvider returns a trend snapshot for a keyword. A nil analysis with a nil error
// means the provider has no data for the keyword.
type TrendDataProvider interface {
	GetTrendAnalysis(ctx context.Context, keyword string, tf models.Timeframe, geo string) (*models.TrendAnalysis, error)
}

// TrendHistoryProvider returns the raw interest series behind a snapshot.
type TrendHistoryProvider interface {
	GetTrendHistory(ctx context.Context, keyword string, tf models.Timeframe, geo string) ([]models.TrendPoint, error)
}

// CompetitionDataProvider searches marketplace listings. An empty slice means no competition.
type CompetitionDataProvider interface {
	SearchProducts(ctx context.Context, keyword string, limit int) ([]models.Product, error)
}

// KeywordExpander derives keyword phrases from seed terms.
type KeywordExpander interface {
	Expand(seeds []string, maxCombinations int) []string
}

// ValidateOptions toggles the optional parts of a trend validation.
type ValidateOptions struct {
	IncludeForecasts   bool
	IncludeSeasonality bool
}

// TrendValidator scores strength, seasonality, forecasts and sustainability of a trend.
type TrendValidator interface {
	Validate(trend *models.TrendAnalysis, history []models.TrendPoint, opts ValidateOptions) *models.TrendValidation
}

// CompetitiveAnalyzer derives market metrics from competitor listings.
type CompetitiveAnalyzer interface {
	AnalyzeProduct(p models.Product) models.CompetitorMetrics
	AnalyzeMarket(keyword string, products []models.Product) *models.MarketAnalysis
}

// NicheScorer fuses trend and competition data into scores.
type NicheScorer interface {
	Profitability(in models.ScoringInput) (float64, models.ComponentScores)
	CompetitionFavorability(summary *models.CompetitiveMarketSummary) (float64, bool)
	MarketSize(trend *models.TrendAnalysis, summary *models.CompetitiveMarketSummary) float64
}

// StressTester simulates adverse scenarios against a scored niche.
type StressTester interface {
	Run(niche *models.Niche, scenarios []models.ScenarioParameters) (*models.StressTestReport, error)
}

// NicheSource builds a scored niche for a keyword so it can be stress tested.
type NicheSource interface {
	NicheForKeyword(ctx context.Context, keyword string) (*models.Niche, error)
}

// ListingGenerator drafts a marketplace listing for a scored niche.
type ListingGenerator interface {
	Generate(niche *models.Niche, opts models.ListingOptions, market models.ListingMarket) (*models.ListingResult, error)
}
