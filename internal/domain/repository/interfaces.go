package repository

import (
	"context"
	"time"

	"nichescope/internal/domain/models"
)

// ReportStore persists evaluation runs and stress reports.
type ReportStore interface {
	Init(ctx context.Context) error // ensure tables
	SaveEvaluation(ctx context.Context, r *models.EvaluationResult) error
	SaveStressReport(ctx context.Context, r *models.StressTestReport) error
	RecentStressReports(ctx context.Context, keyword string, limit int) ([]StressReportRow, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// StressReportRow is the flattened, queryable form of a stored stress report.
type StressReportRow struct {
	ID                string    `json:"id"`
	Keyword           string    `json:"niche_keyword"`
	BaselineScore     float64   `json:"baseline_score"`
	OverallResilience float64   `json:"overall_resilience"`
	RiskProfile       string    `json:"risk_profile"`
	Scenarios         int       `json:"scenarios"`
	Failed            int       `json:"failed_scenarios"`
	Confidence        float64   `json:"confidence_level"`
	TestedAt          time.Time `json:"tested_at"`
}

// ReportPublisher streams reports to downstream consumers.
type ReportPublisher interface {
	PublishEvaluation(ctx context.Context, r *models.EvaluationResult) error
	PublishStressReport(ctx context.Context, r *models.StressTestReport) error
	Close() error
}

type Metrics interface {
	RecordEvaluation(outcome string)
	RecordDroppedKeyword(stage string)
	RecordScenarioFailure(scenario string)
	RecordNicheScore(score float64)
	RecordProviderCall(provider, outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
