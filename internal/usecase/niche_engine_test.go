package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
	"nichescope/internal/services/analytics"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeTrends struct {
	byKeyword map[string]*models.TrendAnalysis
	fail      map[string]error
	calls     atomic.Int32
}

func (f *fakeTrends) GetTrendAnalysis(_ context.Context, kw string, _ models.Timeframe, _ string) (*models.TrendAnalysis, error) {
	f.calls.Add(1)
	if err, ok := f.fail[kw]; ok {
		return nil, err
	}
	return f.byKeyword[kw], nil
}

type fakeProducts struct {
	mu       sync.Mutex
	products []models.Product
	err      error
	keywords []string
}

func (f *fakeProducts) SearchProducts(_ context.Context, kw string, limit int) ([]models.Product, error) {
	f.mu.Lock()
	f.keywords = append(f.keywords, kw)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.products) > limit {
		return f.products[:limit], nil
	}
	return f.products, nil
}

func trend(t *testing.T, kw string, score float64, dir models.TrendDirection, confidence float64) *models.TrendAnalysis {
	t.Helper()
	ta, err := models.NewTrendAnalysis(models.TrendAnalysisInput{
		Keyword:        kw,
		Score:          score,
		Direction:      dir,
		Confidence:     confidence,
		DataPoints:     52,
		Volatility:     15,
		RelatedQueries: []string{kw + " for women", kw + " 2026", "daily " + kw},
		AnalyzedAt:     fixedNow,
	})
	if err != nil {
		t.Fatalf("trend %q: %v", kw, err)
	}
	return ta
}

func fiveCompetitors() []models.Product {
	out := make([]models.Product, 5)
	for i := range out {
		out[i] = models.Product{
			ASIN:        fmt.Sprintf("B00%d", i+1),
			Title:       fmt.Sprintf("Journal %d", i+1),
			Price:       8.99 + float64(i),
			Rank:        20000 + i*5000,
			ReviewCount: 50,
			Rating:      4.2,
		}
	}
	return out
}

func newTestEngine(tr *fakeTrends, pr *fakeProducts, cfg EngineConfig) *NicheEngine {
	seq := 0
	var products domsvc.CompetitionDataProvider
	if pr != nil {
		products = pr
	}
	scorer, err := analytics.NewNicheScorer(models.DefaultScoringWeights())
	if err != nil {
		panic(err)
	}
	return NewNicheEngine(cfg, tr, products,
		analytics.NewKeywordExpander(),
		analytics.NewCompetitiveAnalyzer(),
		scorer,
		analytics.NewStressTester(analytics.WithStressClock(func() time.Time { return fixedNow })),
		WithEngineClock(func() time.Time { return fixedNow }),
		WithEngineIDs(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)
}

// testConfig is the default engine configuration without the pause between trend batches.
func testConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.BatchDelay = 0
	return cfg
}

func TestEvaluateGratitudeJournal(t *testing.T) {
	tr := &fakeTrends{byKeyword: map[string]*models.TrendAnalysis{
		"gratitude journal": trend(t, "gratitude journal", 80, models.DirectionRising, 0.9),
	}}
	pr := &fakeProducts{products: fiveCompetitors()}
	e := newTestEngine(tr, pr, testConfig())

	var stages []string
	res, err := e.Evaluate(context.Background(), models.EvaluationCriteria{
		SeedKeywords:     []string{"journal"},
		MinProfitability: 60,
		MaxCompetition:   models.CompetitionMedium,
	}, func(p models.Progress) { stages = append(stages, p.Stage) })
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Niches) != 1 {
		t.Fatalf("expected 1 niche, got %d (stats %+v)", len(res.Niches), res.Stats)
	}
	n := res.Niches[0]
	if n.PrimaryKeyword != "gratitude journal" {
		t.Fatalf("unexpected niche %q", n.PrimaryKeyword)
	}
	if n.CompetitionLevel() != models.CompetitionLow {
		t.Fatalf("expected LOW competition, got %s (score %.2f)", n.CompetitionLevel(), n.Scores.Competition)
	}
	if n.Scores.Profitability <= 60 {
		t.Fatalf("expected profitability above 60, got %.2f", n.Scores.Profitability)
	}
	if n.Competition == nil || n.Competition.Estimated || n.Competition.CompetitorCount != 5 {
		t.Fatalf("expected measured competition of 5, got %+v", n.Competition)
	}
	if n.PriceRange == nil || n.PriceRange.Min != 8.99 {
		t.Fatalf("expected observed price range, got %+v", n.PriceRange)
	}
	if len(n.TopCompetitors) != 5 || n.Keywords[0] != "gratitude journal" {
		t.Fatalf("unexpected niche details %+v", n)
	}
	if res.RunID != "id-1" || res.Stats.PromisingKeywords != 1 || res.Stats.Returned != 1 {
		t.Fatalf("unexpected run metadata %s %+v", res.RunID, res.Stats)
	}
	if res.Recommendations.Primary == nil || res.Recommendations.Primary.Keyword != "gratitude journal" {
		t.Fatalf("expected primary recommendation, got %+v", res.Recommendations)
	}
	if len(stages) == 0 || stages[len(stages)-1] != StageDone {
		t.Fatalf("expected progress ending with done, got %v", stages)
	}

	report, err := e.StressTest(context.Background(), n, nil)
	if err != nil {
		t.Fatalf("stress test: %v", err)
	}
	if len(report.Results) != 8 || len(report.FailedScenarios) != 0 {
		t.Fatalf("expected 8 scenario results, got %d (failed %d)", len(report.Results), len(report.FailedScenarios))
	}
	if report.OverallResilience < 40 && report.RiskProfile != models.RiskVeryHigh {
		t.Fatalf("resilience %.2f must be VERY_HIGH risk, got %s", report.OverallResilience, report.RiskProfile)
	}
	if report.OverallResilience >= 40 && report.RiskProfile == models.RiskVeryHigh {
		t.Fatalf("resilience %.2f cannot be VERY_HIGH risk", report.OverallResilience)
	}
}

func TestEvaluateDropsMissingAndFailingKeywords(t *testing.T) {
	tr := &fakeTrends{
		byKeyword: map[string]*models.TrendAnalysis{
			"journal":           trend(t, "journal", 70, models.DirectionStable, 0.8),
			"gratitude journal": trend(t, "gratitude journal", 80, models.DirectionRising, 0.9),
			"journal kids":      trend(t, "journal kids", 20, models.DirectionStable, 0.9),
			"journal diary":     trend(t, "journal diary", 45, models.DirectionDeclining, 0.9),
		},
		fail: map[string]error{"notebook journal": errors.New("upstream 503")},
	}
	e := newTestEngine(tr, &fakeProducts{products: fiveCompetitors()}, testConfig())

	res, err := e.Evaluate(context.Background(), models.EvaluationCriteria{
		SeedKeywords: []string{"journal", "  "},
	}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Stats.AnalyzedTrends != 4 {
		t.Fatalf("expected 4 trends with data, got %d", res.Stats.AnalyzedTrends)
	}
	if res.Stats.PromisingKeywords != 2 {
		t.Fatalf("weak and weakly declining keywords must be filtered, got %d promising", res.Stats.PromisingKeywords)
	}
	if _, ok := res.Errors["notebook journal"]; !ok {
		t.Fatalf("expected failed lookup in errors, got %v", res.Errors)
	}
	if res.MaxCompetition != models.CompetitionMedium {
		t.Fatalf("expected default ceiling medium, got %s", res.MaxCompetition)
	}
	if len(res.SeedKeywords) != 1 {
		t.Fatalf("blank seeds must be dropped, got %v", res.SeedKeywords)
	}
}

func TestEvaluateWithoutProductsUsesEstimates(t *testing.T) {
	tr := &fakeTrends{byKeyword: map[string]*models.TrendAnalysis{
		"journal": trend(t, "journal", 90, models.DirectionRising, 1),
	}}
	e := newTestEngine(tr, nil, testConfig())

	res, err := e.Evaluate(context.Background(), models.EvaluationCriteria{
		SeedKeywords:   []string{"journal"},
		MaxCompetition: models.CompetitionHigh,
	}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Stats.CompetitionLooked != 0 || len(res.Niches) != 1 {
		t.Fatalf("unexpected result %+v", res.Stats)
	}
	n := res.Niches[0]
	if !n.Competition.Estimated {
		t.Fatalf("expected estimated competition")
	}
	if n.Scores.Confidence != 80 {
		t.Fatalf("estimated competition must lower confidence to 80, got %.2f", n.Scores.Confidence)
	}
}

func TestEvaluateCompetitionLookupBudget(t *testing.T) {
	tr := &fakeTrends{byKeyword: map[string]*models.TrendAnalysis{}}
	for _, kw := range analytics.NewKeywordExpander().Expand([]string{"planner"}, 10) {
		tr.byKeyword[kw] = trend(t, kw, 75, models.DirectionStable, 0.8)
	}
	pr := &fakeProducts{products: fiveCompetitors()}
	cfg := testConfig()
	cfg.MaxExpandedKeywords = 10
	cfg.MaxCompetitionLookups = 3
	e := newTestEngine(tr, pr, cfg)

	res, err := e.Evaluate(context.Background(), models.EvaluationCriteria{
		SeedKeywords:   []string{"planner"},
		MaxCompetition: models.CompetitionHigh,
		Limit:          50,
	}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(pr.keywords) != 3 || res.Stats.CompetitionLooked != 3 {
		t.Fatalf("expected 3 lookups, got %d", len(pr.keywords))
	}
	estimated := 0
	for _, n := range res.Niches {
		if n.Competition.Estimated {
			estimated++
		}
	}
	if estimated != res.Stats.Candidates-3 {
		t.Fatalf("expected %d estimated niches, got %d", res.Stats.Candidates-3, estimated)
	}
}

func TestEvaluateRejectsInvalidCriteria(t *testing.T) {
	e := newTestEngine(&fakeTrends{}, nil, testConfig())
	cases := []struct {
		name string
		c    models.EvaluationCriteria
		want error
	}{
		{"no seeds", models.EvaluationCriteria{SeedKeywords: []string{" "}}, models.ErrNoSeedKeywords},
		{"score", models.EvaluationCriteria{SeedKeywords: []string{"journal"}, MinProfitability: 120}, models.ErrInvalidScore},
		{"level", models.EvaluationCriteria{SeedKeywords: []string{"journal"}, MaxCompetition: "extreme"}, models.ErrInvalidCompetition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Evaluate(context.Background(), tc.c, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEvaluateCancelled(t *testing.T) {
	tr := &fakeTrends{byKeyword: map[string]*models.TrendAnalysis{}}
	cfg := testConfig()
	cfg.BatchDelay = time.Hour
	e := newTestEngine(tr, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for tr.calls.Load() < int32(cfg.BatchSize) {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()
	if _, err := e.Evaluate(ctx, models.EvaluationCriteria{SeedKeywords: []string{"journal"}}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildNiche(t *testing.T) {
	tr := &fakeTrends{byKeyword: map[string]*models.TrendAnalysis{
		"bullet journal": trend(t, "bullet journal", 65, models.DirectionStable, 0.75),
	}}
	e := newTestEngine(tr, &fakeProducts{err: errors.New("blocked")}, testConfig())

	n, err := e.BuildNiche(context.Background(), " bullet journal ")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !n.Competition.Estimated {
		t.Fatalf("failed lookup must fall back to the estimate")
	}
	if _, err := e.BuildNiche(context.Background(), "unknown"); !errors.Is(err, models.ErrNicheNotFound) {
		t.Fatalf("expected ErrNicheNotFound, got %v", err)
	}
	if _, err := e.BuildNiche(context.Background(), ""); !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStressTestNoUsableScenarios(t *testing.T) {
	n := testNiche(t, "habit tracker", 70, 20)
	e := newTestEngine(&fakeTrends{}, nil, testConfig())
	report, err := e.StressTest(context.Background(), n, []models.ScenarioParameters{{Scenario: "bogus", Severity: 0.5, DurationMonths: 1}})
	if !errors.Is(err, models.ErrNoUsableScenarios) {
		t.Fatalf("expected ErrNoUsableScenarios, got %v", err)
	}
	if report == nil || !report.NoUsableResults || report.OverallResilience != 0 {
		t.Fatalf("expected an explicit empty report, got %+v", report)
	}
}

func testNiche(t *testing.T, kw string, profit, competition float64) *models.Niche {
	t.Helper()
	n, err := models.NewNiche(models.NicheInput{
		ID:             strings.ReplaceAll(kw, " ", "-"),
		PrimaryKeyword: kw,
		Keywords:       []string{kw},
		CreatedAt:      fixedNow,
	}, models.NicheScores{Profitability: profit, Competition: competition, MarketSize: 60, Confidence: 70})
	if err != nil {
		t.Fatalf("niche: %v", err)
	}
	return n
}

func TestQualifyAndRank(t *testing.T) {
	niches := []*models.Niche{
		testNiche(t, "b planner", 70, 20),
		testNiche(t, "a planner", 70, 20),
		testNiche(t, "crowded", 90, 80),
		testNiche(t, "weak", 40, 10),
		testNiche(t, "top", 85, 50),
	}
	got := Qualify(niches, 60, models.CompetitionMedium)
	RankNiches(got)
	want := []string{"top", "a planner", "b planner"}
	if len(got) != len(want) {
		t.Fatalf("expected %d niches, got %d", len(want), len(got))
	}
	for i, kw := range want {
		if got[i].PrimaryKeyword != kw {
			t.Fatalf("position %d: expected %q, got %q", i, kw, got[i].PrimaryKeyword)
		}
	}
}

func TestIsPromising(t *testing.T) {
	cases := []struct {
		score float64
		dir   models.TrendDirection
		conf  float64
		want  bool
	}{
		{80, models.DirectionRising, 0.9, true},
		{25, models.DirectionRising, 0.9, false},
		{45, models.DirectionDeclining, 0.9, false},
		{55, models.DirectionDeclining, 0.9, true},
		{70, models.DirectionStable, 0.2, false},
	}
	for _, tc := range cases {
		if got := IsPromising(trend(t, "kw", tc.score, tc.dir, tc.conf)); got != tc.want {
			t.Fatalf("score %.0f %s conf %.1f: expected %v", tc.score, tc.dir, tc.conf, tc.want)
		}
	}
	if IsPromising(nil) {
		t.Fatalf("nil trend must not be promising")
	}
}

func TestBuildNicheScoresMeasuredGaps(t *testing.T) {
	e := newTestEngine(&fakeTrends{}, nil, testConfig())
	tr := trend(t, "gratitude journal", 80, models.DirectionRising, 0.9)

	measured := func(gaps int) *models.Niche {
		s := models.SummarizeProducts(fiveCompetitors(), fixedNow)
		s.GapCount = gaps
		n, err := e.buildNiche("gratitude journal", "", tr, competitionData{summary: s})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		return n
	}
	if few, many := measured(1), measured(11); many.Scores.Profitability <= few.Scores.Profitability {
		t.Fatalf("more gaps must raise profitability: %d gaps %.2f, %d gaps %.2f",
			1, few.Scores.Profitability, 11, many.Scores.Profitability)
	}

	estimated := func(gaps int) float64 {
		s := models.EstimatedSummary(2, fixedNow)
		s.GapCount = gaps
		n, err := e.buildNiche("gratitude journal", "", tr, competitionData{summary: s})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		return n.Scores.Profitability
	}
	if a, b := estimated(0), estimated(11); a != b {
		t.Fatalf("estimated summaries must not score content gaps: %.2f vs %.2f", a, b)
	}
}
