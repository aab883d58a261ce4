package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func mustTrend(t *testing.T, in TrendAnalysisInput) *TrendAnalysis {
	t.Helper()
	tr, err := NewTrendAnalysis(in)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	return tr
}

func TestNewTrendAnalysisRejects(t *testing.T) {
	cases := []struct {
		name string
		in   TrendAnalysisInput
		want error
	}{
		{"empty keyword", TrendAnalysisInput{Keyword: "  ", Score: 50}, ErrInvalidKeywords},
		{"score", TrendAnalysisInput{Keyword: "journal", Score: 101}, ErrInvalidScore},
		{"confidence", TrendAnalysisInput{Keyword: "journal", Score: 50, Confidence: 1.2}, ErrInvalidScore},
		{"forecast length", TrendAnalysisInput{Keyword: "journal", Score: 50, Forecast: []float64{1, 2, 3}}, ErrInvalidForecast},
		{"seasonal factor", TrendAnalysisInput{Keyword: "journal", Score: 50, Seasonal: SeasonalFactors{time.May: 6}}, ErrInvalidScore},
		{"direction", TrendAnalysisInput{Keyword: "journal", Score: 50, Direction: "sideways"}, ErrInvalidScore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTrendAnalysis(tc.in)
			if !errors.Is(err, tc.want) || !IsValidation(err) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewTrendAnalysisDerivesFields(t *testing.T) {
	tr := mustTrend(t, TrendAnalysisInput{
		Keyword:  " gratitude journal ",
		Score:    85,
		Forecast: []float64{-5, 10, 20, 30, 40, 150},
	})
	if tr.Keyword != "gratitude journal" || tr.Direction != DirectionStable || tr.Strength != StrengthVeryStrong {
		t.Fatalf("unexpected trend %+v", tr)
	}
	if tr.Forecast[0] != 0 || tr.Forecast[5] != 100 {
		t.Fatalf("expected clamped forecast, got %v", tr.Forecast)
	}
	if tr.AnalyzedAt.IsZero() {
		t.Fatalf("expected analysis time to be set")
	}
}

func TestStrengthFromScore(t *testing.T) {
	for score, want := range map[float64]TrendStrength{
		0:   StrengthVeryWeak,
		20:  StrengthVeryWeak,
		21:  StrengthWeak,
		60:  StrengthModerate,
		80:  StrengthStrong,
		81:  StrengthVeryStrong,
		100: StrengthVeryStrong,
	} {
		if got := StrengthFromScore(score); got != want {
			t.Fatalf("score %.0f: expected %s, got %s", score, want, got)
		}
	}
}

func TestTrendRiskAndOpportunity(t *testing.T) {
	good := mustTrend(t, TrendAnalysisInput{Keyword: "journal", Score: 80, Direction: DirectionRising, Confidence: 0.9, Volatility: 10, DataPoints: 52})
	if good.RiskAssessment() != RiskLow || !good.IsReliable() || !good.IsRising() {
		t.Fatalf("expected a low risk reliable rising trend, got %+v", good)
	}
	if got := good.OpportunityScore(); got != 78 {
		t.Fatalf("expected opportunity 78, got %.1f", got)
	}

	bad := mustTrend(t, TrendAnalysisInput{Keyword: "fidget", Score: 20, Direction: DirectionDeclining, Confidence: 0.4, Volatility: 75})
	if bad.RiskAssessment() != RiskVeryHigh || bad.IsReliable() {
		t.Fatalf("expected a very high risk trend, got %s", bad.RiskAssessment())
	}
	if got := bad.OpportunityScore(); got != 12.5 {
		t.Fatalf("expected opportunity 12.5, got %.1f", got)
	}
}

func TestForecastTrend(t *testing.T) {
	up := mustTrend(t, TrendAnalysisInput{Keyword: "journal", Score: 50, Forecast: []float64{10, 10, 10, 20, 20, 20}})
	if up.ForecastTrend() != "improving" {
		t.Fatalf("expected improving, got %s", up.ForecastTrend())
	}
	flat := mustTrend(t, TrendAnalysisInput{Keyword: "journal", Score: 50, Forecast: []float64{50, 50, 50, 51, 51, 51}})
	if flat.ForecastTrend() != "stable" {
		t.Fatalf("expected stable, got %s", flat.ForecastTrend())
	}
	none := mustTrend(t, TrendAnalysisInput{Keyword: "journal", Score: 50})
	if none.ForecastTrend() != "unknown" {
		t.Fatalf("expected unknown, got %s", none.ForecastTrend())
	}
}

func TestSeasonalRankings(t *testing.T) {
	tr := mustTrend(t, TrendAnalysisInput{
		Keyword: "planner",
		Score:   60,
		Seasonal: SeasonalFactors{
			time.January:  1.5,
			time.February: 0.5,
			time.July:     1.0,
			time.December: 2.0,
		},
	})
	if !tr.IsSeasonal() {
		t.Fatalf("trend with seasonal factors must be seasonal")
	}
	best := tr.BestMonths(2)
	if len(best) != 2 || best[0].Month != time.December || best[1].Month != time.January {
		t.Fatalf("unexpected best months %v", best)
	}
	worst := tr.WorstMonths(1)
	if len(worst) != 1 || worst[0].Month != time.February {
		t.Fatalf("unexpected worst months %v", worst)
	}
	if tr.BestMonths(0) != nil {
		t.Fatalf("expected no months for a zero limit")
	}

	b, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Keyword    string        `json:"keyword"`
		IsSeasonal bool          `json:"is_seasonal"`
		IsRising   bool          `json:"is_rising"`
		PeakMonths []MonthFactor `json:"peak_months"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Keyword != "planner" || !out.IsSeasonal || out.IsRising || len(out.PeakMonths) != 3 {
		t.Fatalf("unexpected json %s", b)
	}

	var back TrendAnalysis
	if err := json.Unmarshal(b, &back); err != nil || back.Seasonal[time.December] != 2.0 {
		t.Fatalf("expected derived fields to be ignored on decode, got %+v (%v)", back, err)
	}
}

func TestSeasonalVolatility(t *testing.T) {
	if _, ok := (SeasonalFactors{}).Volatility(); ok {
		t.Fatalf("expected no volatility without data")
	}
	v, ok := SeasonalFactors{time.March: 1, time.April: 1}.Volatility()
	if !ok || v != 0 {
		t.Fatalf("expected zero volatility for flat factors, got %.2f", v)
	}
}
