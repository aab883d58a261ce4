package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"nichescope/internal/domain/models"
)

func stressReport(keyword string, failed int, at time.Time) *models.StressTestReport {
	r := &models.StressTestReport{
		ID:                keyword + at.Format("150405"),
		NicheKeyword:      keyword,
		BaselineScore:     72.5,
		OverallResilience: 61,
		RiskProfile:       models.RiskMedium,
		Results:           make([]models.ScenarioResult, 3),
		Confidence:        80,
		TestedAt:          at,
	}
	for i := 0; i < failed; i++ {
		r.FailedScenarios = append(r.FailedScenarios, models.FailedScenario{Scenario: models.ScenarioSeasonalCrash})
	}
	return r
}

func TestStressRow(t *testing.T) {
	row := stressRow(stressReport("  Gratitude Journal ", 1, time.Unix(100, 0)))
	if row.Keyword != "gratitude journal" {
		t.Fatalf("expected normalized keyword, got %q", row.Keyword)
	}
	if row.Scenarios != 4 || row.Failed != 1 || row.RiskProfile != "medium" {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestMemoryReportStoreRecent(t *testing.T) {
	s := NewMemoryReportStore(3)
	ctx := context.Background()
	base := time.Unix(1000, 0)
	for i, kw := range []string{"a", "b", "a", "c"} {
		if err := s.SaveStressReport(ctx, stressReport(kw, 0, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	all, _ := s.RecentStressReports(ctx, "", 10)
	if len(all) != 3 || all[0].Keyword != "c" {
		t.Fatalf("expected 3 newest-first rows, got %+v", all)
	}
	onlyA, _ := s.RecentStressReports(ctx, "A", 10)
	if len(onlyA) != 1 {
		t.Fatalf("expected the oldest report to be evicted, got %d rows", len(onlyA))
	}
}

func TestNicheInsert(t *testing.T) {
	n, err := models.NewNiche(models.NicheInput{PrimaryKeyword: "bird journal", Keywords: []string{"bird journal"}},
		models.NicheScores{Competition: 40, Profitability: 70, MarketSize: 50, Confidence: 60})
	if err != nil {
		t.Fatalf("niche: %v", err)
	}
	q, args := nicheInsert("nichescope", "run-1", 4, []*models.Niche{n, nil})
	if !strings.Contains(q, "nichescope.evaluation_niches") || strings.Count(q, "(?,") != 1 {
		t.Fatalf("unexpected query %q", q)
	}
	if len(args) != 10 || args[1].(uint16) != 5 {
		t.Fatalf("unexpected args %v", args)
	}
	if q, _ := nicheInsert("nichescope", "run-1", 0, nil); q != "" {
		t.Fatalf("expected no statement for an empty batch")
	}
}

func TestSchemaUsesDatabase(t *testing.T) {
	for _, stmt := range Schema("reports") {
		if !strings.Contains(stmt, "reports") {
			t.Fatalf("statement does not reference database: %s", stmt)
		}
	}
}

func TestEvaluationMessages(t *testing.T) {
	n, err := models.NewNiche(models.NicheInput{PrimaryKeyword: " Habit Tracker", Keywords: []string{"habit tracker"}},
		models.NicheScores{Competition: 30, Profitability: 70, MarketSize: 50, Confidence: 70})
	if err != nil {
		t.Fatalf("niche: %v", err)
	}
	msgs := evaluationMessages(&models.EvaluationResult{RunID: "run-7", Niches: []*models.Niche{n, nil}})
	if len(msgs) != 2 {
		t.Fatalf("expected run and niche events, got %d", len(msgs))
	}
	if msgs[0].Key != "run-7" || msgs[0].Event != EventEvaluation || msgs[0].Value.(ReportEvent).Type != EventEvaluation {
		t.Fatalf("unexpected run event %+v", msgs[0])
	}
	ev := msgs[1].Value.(ReportEvent)
	if msgs[1].Key != "habit tracker" || msgs[1].Event != EventNiche || ev.Type != EventNiche || ev.Payload.(*models.Niche) != n {
		t.Fatalf("unexpected niche event %+v", msgs[1])
	}
}
