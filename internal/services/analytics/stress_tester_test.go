package analytics

import (
	"errors"
	"math"
	"testing"
	"time"

	"nichescope/internal/domain/models"
)

func testNiche(t *testing.T, competition float64) *models.Niche {
	t.Helper()
	trend := mustTrend(t, models.TrendAnalysisInput{
		Keyword:    "gratitude journal",
		Score:      80,
		Direction:  models.DirectionRising,
		Confidence: 0.8,
	})
	pr, err := models.NewPriceRange(8.99, 14.99)
	if err != nil {
		t.Fatalf("price range: %v", err)
	}
	n, err := models.NewNiche(models.NicheInput{
		PrimaryKeyword: "gratitude journal",
		Keywords:       []string{"gratitude journal", "daily gratitude journal"},
		Trend:          trend,
		Competition:    &models.CompetitiveMarketSummary{CompetitorCount: 5, AvgReviewCount: 50, AvgRating: 4.0, AvgPrice: 11.99},
		ContentGaps:    []string{"guided prompts"},
		PriceRange:     &pr,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, models.NicheScores{Competition: competition, Profitability: 80, MarketSize: 70, Confidence: 80})
	if err != nil {
		t.Fatalf("niche: %v", err)
	}
	return n
}

func fixedTester() *StressTester {
	return NewStressTester(
		WithStressClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }),
		WithReportIDs(func() string { return "report-1" }),
	)
}

func TestStressRunAllDefaults(t *testing.T) {
	report, err := fixedTester().Run(testNiche(t, 10), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(report.Results))
	}
	if report.ID != "report-1" || report.NoUsableResults {
		t.Fatalf("unexpected report header %+v", report)
	}
	for _, r := range report.Results {
		if r.StressedScore > r.InitialScore || r.RecoveryScore > r.InitialScore {
			t.Fatalf("%s: score ordering broken %+v", r.Scenario, r)
		}
		if r.RecoveryScore < r.StressedScore {
			t.Fatalf("%s: recovery below stressed %+v", r.Scenario, r)
		}
		if r.ImpactPercentage < 0 || r.ImpactPercentage > 100 {
			t.Fatalf("%s: impact out of range %.2f", r.Scenario, r.ImpactPercentage)
		}
		want := 100 * r.StressedScore / r.InitialScore
		if math.Abs(r.ResilienceScore-want) > 0.2 {
			t.Fatalf("%s: resilience %.2f want %.2f", r.Scenario, r.ResilienceScore, want)
		}
		if r.SurvivalProbability < 0.05 || r.SurvivalProbability > 1 {
			t.Fatalf("%s: survival out of range %.2f", r.Scenario, r.SurvivalProbability)
		}
		if len(r.Mitigations) > maxScenarioMitigations {
			t.Fatalf("%s: too many mitigations", r.Scenario)
		}
	}
	if got := riskProfile(report.Results, report.OverallResilience); got != report.RiskProfile {
		t.Fatalf("risk profile %s inconsistent with resilience %.1f", report.RiskProfile, report.OverallResilience)
	}
	if report.Survival == nil || len(report.HighestRisk) != 3 || len(report.LowestResilience) != 3 {
		t.Fatalf("aggregates missing: %+v", report)
	}
	if report.Confidence <= 0 || report.Confidence > 1 {
		t.Fatalf("confidence out of range %.2f", report.Confidence)
	}
	if report.DataCompleteness != 1 {
		t.Fatalf("expected full completeness, got %.2f", report.DataCompleteness)
	}
}

func TestSaturationHitsCrowdedNichesHarder(t *testing.T) {
	p, _ := DefaultScenario(models.ScenarioMarketSaturation)
	tester := fixedTester()

	crowded := testNiche(t, 90)
	open := testNiche(t, 20)
	hi, err := tester.Simulate(crowded, crowded.OverallScore(), p)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	lo, err := tester.Simulate(open, open.OverallScore(), p)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if hi.ImpactPercentage <= lo.ImpactPercentage {
		t.Fatalf("expected crowded impact %.1f > open impact %.1f", hi.ImpactPercentage, lo.ImpactPercentage)
	}
}

func TestStressRunRecordsFailedScenarios(t *testing.T) {
	bad := models.ScenarioParameters{Scenario: models.ScenarioPlatformChanges, Severity: 2, DurationMonths: 3, Probability: 0.3}
	good, _ := DefaultScenario(models.ScenarioConsumerShift)

	report, err := fixedTester().Run(testNiche(t, 10), []models.ScenarioParameters{bad, good})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Results) != 1 || len(report.FailedScenarios) != 1 {
		t.Fatalf("expected one result and one failure, got %d/%d", len(report.Results), len(report.FailedScenarios))
	}
	if report.FailedScenarios[0].Scenario != models.ScenarioPlatformChanges {
		t.Fatalf("unexpected failed scenario %+v", report.FailedScenarios[0])
	}
}

func TestStressRunNoUsableResults(t *testing.T) {
	bad := models.ScenarioParameters{Scenario: "meteor_strike", Severity: 0.5, DurationMonths: 3}
	report, err := fixedTester().Run(testNiche(t, 10), []models.ScenarioParameters{bad})
	if !errors.Is(err, models.ErrNoUsableScenarios) {
		t.Fatalf("expected ErrNoUsableScenarios, got %v", err)
	}
	if report == nil || !report.NoUsableResults || report.OverallResilience != 0 {
		t.Fatalf("expected flagged empty report, got %+v", report)
	}
}

func TestStressRunNilNiche(t *testing.T) {
	if _, err := fixedTester().Run(nil, nil); !errors.Is(err, models.ErrNicheNotFound) {
		t.Fatalf("expected ErrNicheNotFound, got %v", err)
	}
}

func TestScenariosByName(t *testing.T) {
	got, err := ScenariosByName([]string{"Trend_Reversal", "trend_reversal", "seasonal_crash"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 2 || got[0].Scenario != models.ScenarioTrendReversal || got[1].Scenario != models.ScenarioSeasonalCrash {
		t.Fatalf("unexpected scenarios %+v", got)
	}
	if _, err := ScenariosByName([]string{"nope"}); !errors.Is(err, models.ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
	all, _ := ScenariosByName(nil)
	if len(all) != 8 {
		t.Fatalf("expected 8 defaults, got %d", len(all))
	}
}

func TestRiskProfileThresholds(t *testing.T) {
	res := func(impacts ...float64) []models.ScenarioResult {
		out := make([]models.ScenarioResult, len(impacts))
		for i, v := range impacts {
			out[i] = models.ScenarioResult{ImpactPercentage: v}
		}
		return out
	}
	cases := []struct {
		results    []models.ScenarioResult
		resilience float64
		want       models.RiskLevel
	}{
		{res(10, 60), 85, models.RiskLow},
		{res(60, 60), 85, models.RiskMedium},
		{res(60, 60, 60, 60), 65, models.RiskHigh},
		{res(10), 30, models.RiskVeryHigh},
	}
	for i, c := range cases {
		if got := riskProfile(c.results, c.resilience); got != c.want {
			t.Fatalf("case %d: got %s want %s", i, got, c.want)
		}
	}
}

func TestCriticalVulnerabilitiesAndMitigations(t *testing.T) {
	results := []models.ScenarioResult{
		{ImpactPercentage: 70, SurvivalProbability: 0.8, Vulnerabilities: []string{"a"},
			Parameters: models.ScenarioParameters{Probability: 0.5}, Mitigations: []string{"m1", "m2"}},
		{ImpactPercentage: 20, SurvivalProbability: 0.9, Vulnerabilities: []string{"b", "c"},
			Parameters: models.ScenarioParameters{Probability: 0.1}, Mitigations: []string{"m2"}},
		{ImpactPercentage: 20, SurvivalProbability: 0.9, Vulnerabilities: []string{"c"},
			Parameters: models.ScenarioParameters{Probability: 0.1}, Mitigations: []string{"m3"}},
	}
	vulns := criticalVulnerabilities(results)
	if len(vulns) != 2 || vulns[0] != "c" || vulns[1] != "a" {
		t.Fatalf("unexpected critical vulnerabilities %v", vulns)
	}
	mits := rankedMitigations(results)
	if len(mits) != 3 || mits[0] != "m2" || mits[1] != "m1" || mits[2] != "m3" {
		t.Fatalf("unexpected mitigation ranking %v", mits)
	}
}

func TestOverallResilienceFallsBackToMean(t *testing.T) {
	results := []models.ScenarioResult{{ResilienceScore: 40}, {ResilienceScore: 60}}
	if got := overallResilience(results); got != 50 {
		t.Fatalf("expected plain mean 50, got %.1f", got)
	}
	results[0].Parameters.Probability = 0.3
	results[1].Parameters.Probability = 0.1
	if got := overallResilience(results); got != 45 {
		t.Fatalf("expected weighted 45, got %.1f", got)
	}
}
