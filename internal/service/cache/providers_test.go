package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"nichescope/internal/domain/models"
	pkgcache "nichescope/pkg/cache"
)

type countingTrends struct {
	calls int
	data  map[string]*models.TrendAnalysis
	err   error
}

func (c *countingTrends) GetTrendAnalysis(_ context.Context, kw string, _ models.Timeframe, _ string) (*models.TrendAnalysis, error) {
	c.calls++
	return c.data[kw], c.err
}

type countingProducts struct {
	calls int
}

func (c *countingProducts) SearchProducts(_ context.Context, _ string, limit int) ([]models.Product, error) {
	c.calls++
	return []models.Product{{ASIN: "B1", Price: 9.99}}[:min(limit, 1)], nil
}

type recorder struct{ outcomes []string }

func (r *recorder) RecordEvaluation(string)              {}
func (r *recorder) RecordDroppedKeyword(string)          {}
func (r *recorder) RecordScenarioFailure(string)         {}
func (r *recorder) RecordNicheScore(float64)             {}
func (r *recorder) RecordError(string)                   {}
func (r *recorder) RecordLatency(string, float64)        {}
func (r *recorder) RecordProviderCall(_, outcome string) { r.outcomes = append(r.outcomes, outcome) }

func TestTrendProviderCachesHits(t *testing.T) {
	ta, err := models.NewTrendAnalysis(models.TrendAnalysisInput{
		Keyword: "journal", Score: 70, Direction: models.DirectionRising, Confidence: 0.8,
		Seasonal: models.SeasonalFactors{time.December: 1.4}, DataPoints: 12,
	})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	src := &countingTrends{data: map[string]*models.TrendAnalysis{"journal": ta}}
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	rec := &recorder{}
	p := NewTrendProvider(src, mem, time.Hour, rec)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := p.GetTrendAnalysis(ctx, "journal", models.DefaultTimeframe(), "US")
		if err != nil || got == nil || got.Score != 70 {
			t.Fatalf("unexpected %+v, %v", got, err)
		}
		if got.Seasonal[time.December] != 1.4 {
			t.Fatalf("seasonal factors lost in cache: %v", got.Seasonal)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", src.calls)
	}
	if len(rec.outcomes) != 3 || rec.outcomes[0] != "fetched" || rec.outcomes[2] != "cache_hit" {
		t.Fatalf("unexpected outcomes %v", rec.outcomes)
	}
	if !mem.Contains("trends:analysis:journal:today 12-m:us") {
		t.Fatalf("expected entry under the trends key")
	}
}

func TestTrendProviderDoesNotCacheMissingData(t *testing.T) {
	src := &countingTrends{data: map[string]*models.TrendAnalysis{}}
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	p := NewTrendProvider(src, mem, time.Hour, nil)

	for i := 0; i < 2; i++ {
		got, err := p.GetTrendAnalysis(context.Background(), "nothing", models.DefaultTimeframe(), "US")
		if err != nil || got != nil {
			t.Fatalf("expected no data, got %+v, %v", got, err)
		}
	}
	if src.calls != 2 {
		t.Fatalf("missing data must be refetched, got %d calls", src.calls)
	}
}

func TestTrendProviderPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	p := NewTrendProvider(&countingTrends{err: boom}, mem, time.Hour, nil)
	if _, err := p.GetTrendAnalysis(context.Background(), "x", models.DefaultTimeframe(), "US"); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestCompetitionProviderCaches(t *testing.T) {
	src := &countingProducts{}
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	p := NewCompetitionProvider(src, mem, time.Hour, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := p.SearchProducts(ctx, "journal", 20)
		if err != nil || len(got) != 1 || got[0].ASIN != "B1" {
			t.Fatalf("unexpected %v, %v", got, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", src.calls)
	}
	if !mem.Contains(SearchKey("journal", 20)) {
		t.Fatalf("expected keepa search key")
	}
}
