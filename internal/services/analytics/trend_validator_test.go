package analytics

import (
	"testing"
	"time"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
)

var june = time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

func monthlyHistory(start time.Time, scores ...float64) []models.TrendPoint {
	out := make([]models.TrendPoint, len(scores))
	for i, s := range scores {
		out[i] = models.TrendPoint{Date: start.AddDate(0, i, 0), Score: s}
	}
	return out
}

func TestValidateStrengthBelowMinimum(t *testing.T) {
	v := NewTrendValidator(WithClock(func() time.Time { return june }))
	tr := mustTrend(t, models.TrendAnalysisInput{Keyword: "k", Score: 10, Confidence: 0.9})
	got := v.ValidateStrength(tr, nil)
	if got.IsStrong || len(got.WeaknessFactors) != 1 || got.StrengthScore != 10 {
		t.Fatalf("unexpected validation %+v", got)
	}
}

func TestValidateStrengthRisingStrong(t *testing.T) {
	v := NewTrendValidator()
	tr := mustTrend(t, models.TrendAnalysisInput{Keyword: "k", Score: 70, Direction: models.DirectionRising, Confidence: 0.8})
	got := v.ValidateStrength(tr, nil)
	// 70 * 1.1 * 1.2
	if got.StrengthScore != 92.4 {
		t.Fatalf("expected 92.4, got %.2f", got.StrengthScore)
	}
	if !got.IsStrong {
		t.Fatalf("expected strong trend: %+v", got)
	}
}

func TestValidateStrengthUsesHistory(t *testing.T) {
	v := NewTrendValidator()
	tr := mustTrend(t, models.TrendAnalysisInput{Keyword: "k", Score: 50, Confidence: 0.8})
	stable := monthlyHistory(june.AddDate(-1, 0, 0), 50, 51, 49, 50, 52, 50, 51, 49, 50, 51, 50, 52)
	got := v.ValidateStrength(tr, stable)
	// 50 * 1.1 for very low volatility
	if got.StrengthScore != 55 {
		t.Fatalf("expected 55, got %.2f (%+v)", got.StrengthScore, got)
	}

	erratic := monthlyHistory(june.AddDate(-1, 0, 0), 90, 5, 80, 2, 95, 3, 70, 1, 85, 4, 3, 2)
	got = v.ValidateStrength(tr, erratic)
	if got.StrengthScore >= 50 {
		t.Fatalf("expected penalty for erratic history, got %.2f", got.StrengthScore)
	}
}

func TestAnalyzeSeasonalityFromHistory(t *testing.T) {
	v := NewTrendValidator(WithClock(func() time.Time { return june }))
	tr := mustTrend(t, models.TrendAnalysisInput{Keyword: "k", Score: 50, Confidence: 0.8})
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	hist := monthlyHistory(jan, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 80, 100)

	got := v.AnalyzeSeasonality(tr, hist)
	if !got.HasSeasonality {
		t.Fatalf("expected seasonality")
	}
	if got.Strength <= 0 || got.Strength > 1 {
		t.Fatalf("strength out of range %.3f", got.Strength)
	}
	if len(got.PeakMonths) != 1 || got.PeakMonths[0] != time.December {
		t.Fatalf("unexpected peaks %v", got.PeakMonths)
	}
	if len(got.LowMonths) != 10 {
		t.Fatalf("expected 10 low months, got %v", got.LowMonths)
	}
	if len(got.Patterns) != 4 {
		t.Fatalf("expected 4 season patterns, got %d", len(got.Patterns))
	}
}

func TestAnalyzeSeasonalityNeedsData(t *testing.T) {
	v := NewTrendValidator()
	tr := mustTrend(t, models.TrendAnalysisInput{Keyword: "k", Score: 50, Confidence: 0.8})
	got := v.AnalyzeSeasonality(tr, monthlyHistory(june, 10, 20, 30))
	if got.HasSeasonality {
		t.Fatalf("three months must not produce seasonality: %+v", got)
	}
}

func TestForecastHorizonsBounded(t *testing.T) {
	v := NewTrendValidator(WithClock(func() time.Time { return june }))
	tr := mustTrend(t, models.TrendAnalysisInput{Keyword: "k", Score: 95, Direction: models.DirectionRising, Confidence: 0.2})
	hist := monthlyHistory(june.AddDate(-1, 0, 0), 10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 95, 95)

	fs := v.Forecast(tr, hist, nil)
	if len(fs) != 4 {
		t.Fatalf("expected 4 horizons, got %d", len(fs))
	}
	for _, f := range fs {
		if f.PredictedScore < 0 || f.PredictedScore > 100 {
			t.Fatalf("%s: prediction out of range %.1f", f.Horizon, f.PredictedScore)
		}
		if f.LowerBound > f.PredictedScore || f.UpperBound < f.PredictedScore {
			t.Fatalf("%s: interval does not contain prediction %+v", f.Horizon, f)
		}
	}
	if fs[3].RiskLevel != "high" {
		t.Fatalf("12 month forecast at low confidence should be high risk, got %s", fs[3].RiskLevel)
	}
	if fs[0].RiskLevel != "low" {
		t.Fatalf("1 month forecast should be low risk, got %s", fs[0].RiskLevel)
	}
}

func TestValidateAssemblesReport(t *testing.T) {
	v := NewTrendValidator(WithClock(func() time.Time { return june }))
	tr := mustTrend(t, models.TrendAnalysisInput{Keyword: "gratitude journal", Score: 80, Direction: models.DirectionRising, Confidence: 0.9})
	hist := monthlyHistory(june.AddDate(-1, 0, 0), 70, 72, 71, 74, 73, 75, 76, 78, 77, 79, 80, 81)

	got := v.Validate(tr, hist, domsvc.ValidateOptions{IncludeForecasts: true, IncludeSeasonality: true})
	if got == nil {
		t.Fatalf("expected report")
	}
	if !got.IsValid {
		t.Fatalf("expected valid trend, got %+v", got)
	}
	if len(got.Forecasts) != 4 || got.Seasonality == nil {
		t.Fatalf("optional sections missing")
	}
	if got.HistoryPoints != 12 || !got.ValidatedAt.Equal(june) {
		t.Fatalf("unexpected metadata %+v", got)
	}
	if len(got.Recommendations) == 0 {
		t.Fatalf("expected recommendations")
	}

	bare := v.Validate(tr, nil, domsvc.ValidateOptions{})
	if bare.Forecasts != nil || bare.Seasonality != nil {
		t.Fatalf("options ignored")
	}
	if v.Validate(nil, nil, domsvc.ValidateOptions{}) != nil {
		t.Fatalf("nil trend must yield nil")
	}
}

func TestMonthsUntil(t *testing.T) {
	if got := monthsUntil([]time.Month{time.December, time.February}, time.November); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := monthsUntil([]time.Month{time.March}, time.March); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}

func TestValidateStrengthThresholdIsExclusive(t *testing.T) {
	v := NewTrendValidator()
	// 38.96 * 1.1 rising * 0.7 weak band rounds to exactly 1.5x the minimum score
	tr := mustTrend(t, models.TrendAnalysisInput{Keyword: "k", Score: 38.96, Direction: models.DirectionRising, Confidence: 0.9})
	got := v.ValidateStrength(tr, nil)
	if got.StrengthScore != MinTrendScore*1.5 {
		t.Fatalf("expected %.1f, got %.2f", MinTrendScore*1.5, got.StrengthScore)
	}
	if got.IsStrong {
		t.Fatalf("a score equal to the threshold must not be strong: %+v", got)
	}
}
