package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nichescope/internal/domain/models"
	domrepo "nichescope/internal/domain/repository"
	domsvc "nichescope/internal/domain/service"
	"nichescope/internal/services/analytics"
	"nichescope/pkg/logger"
	"nichescope/pkg/metrics"
)

// Pipeline stages reported through progress callbacks and dropped-keyword metrics.
const (
	StageExpand      = "expand"
	StageTrends      = "trends"
	StageFilter      = "filter"
	StageCompetition = "competition"
	StageScore       = "score"
	StageRank        = "rank"
	StageDone        = "done"
)

const (
	relatedKeywordsPerNiche = 10
	topCompetitorsPerNiche  = 5
	contentGapsPerNiche     = 5
	neutralContentScore     = 50
	neutralCategorySize     = 50
	estimatedConfidence     = 0.8

	minPromisingScore      = 30
	decliningScoreFloor    = 50
	minPromisingConfidence = 0.3
)

// EngineConfig bounds the work done by one evaluation run.
type EngineConfig struct {
	MaxExpandedKeywords   int
	MaxAnalyzedKeywords   int
	MaxCompetitionLookups int
	ProductsPerKeyword    int
	MaxNiches             int
	BatchSize             int
	BatchDelay            time.Duration
	Timeframe             models.Timeframe
	Geo                   string
}

// DefaultEngineConfig mirrors the defaults of the engine config section.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxExpandedKeywords:   200,
		MaxAnalyzedKeywords:   50,
		MaxCompetitionLookups: 20,
		ProductsPerKeyword:    20,
		MaxNiches:             10,
		BatchSize:             5,
		BatchDelay:            2 * time.Second,
		Timeframe:             models.DefaultTimeframe(),
		Geo:                   "US",
	}
}

// ProgressFunc observes pipeline stages. It is called from the evaluating goroutine.
type ProgressFunc func(models.Progress)

// NicheEngine runs the evaluation pipeline: expand seeds, fetch trends in rate-limited
// batches, keep promising keywords, look up competition, score and rank the niches.
// A nil product provider makes every competition summary an estimate.
type NicheEngine struct {
	cfg      EngineConfig
	trends   domsvc.TrendDataProvider
	products domsvc.CompetitionDataProvider
	expander domsvc.KeywordExpander
	analyzer domsvc.CompetitiveAnalyzer
	scorer   domsvc.NicheScorer
	stress   domsvc.StressTester
	metrics  domrepo.Metrics
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

type EngineOption func(*NicheEngine)

func WithEngineLogger(l *logger.Logger) EngineOption {
	return func(e *NicheEngine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithEngineMetrics(m domrepo.Metrics) EngineOption {
	return func(e *NicheEngine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *NicheEngine) { e.now = now }
}

// WithEngineIDs overrides run and niche ID generation.
func WithEngineIDs(gen func() string) EngineOption {
	return func(e *NicheEngine) { e.newID = gen }
}

func NewNicheEngine(
	cfg EngineConfig,
	trends domsvc.TrendDataProvider,
	products domsvc.CompetitionDataProvider,
	expander domsvc.KeywordExpander,
	analyzer domsvc.CompetitiveAnalyzer,
	scorer domsvc.NicheScorer,
	stress domsvc.StressTester,
	opts ...EngineOption,
) *NicheEngine {
	def := DefaultEngineConfig()
	if cfg.MaxExpandedKeywords <= 0 {
		cfg.MaxExpandedKeywords = def.MaxExpandedKeywords
	}
	if cfg.MaxAnalyzedKeywords <= 0 {
		cfg.MaxAnalyzedKeywords = def.MaxAnalyzedKeywords
	}
	if cfg.MaxCompetitionLookups <= 0 {
		cfg.MaxCompetitionLookups = def.MaxCompetitionLookups
	}
	if cfg.ProductsPerKeyword <= 0 {
		cfg.ProductsPerKeyword = def.ProductsPerKeyword
	}
	if cfg.MaxNiches <= 0 {
		cfg.MaxNiches = def.MaxNiches
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if !models.IsValidTimeframe(cfg.Timeframe) {
		cfg.Timeframe = def.Timeframe
	}
	if cfg.Geo == "" {
		cfg.Geo = def.Geo
	}
	e := &NicheEngine{
		cfg:      cfg,
		trends:   trends,
		products: products,
		expander: expander,
		analyzer: analyzer,
		scorer:   scorer,
		stress:   stress,
		metrics:  metrics.Nop{},
		log:      logger.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// run carries the state of one evaluation.
type run struct {
	id       string
	progress ProgressFunc
	mu       sync.Mutex
	errs     map[string]string
}

func (r *run) report(stage string, done, total int, msg string) {
	if r.progress != nil {
		r.progress(models.Progress{RunID: r.id, Stage: stage, Done: done, Total: total, Message: msg})
	}
}

func (r *run) fail(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[key] = err.Error()
}

// competitionData is the competition side of one keyword.
type competitionData struct {
	summary  models.CompetitiveMarketSummary
	analysis *models.MarketAnalysis
}

// Evaluate runs the full pipeline for the criteria. Keywords without data are dropped and
// recorded in the result's Errors map; only invalid criteria or cancellation fail the run.
func (e *NicheEngine) Evaluate(ctx context.Context, c models.EvaluationCriteria, progress ProgressFunc) (*models.EvaluationResult, error) {
	start := time.Now()
	crit, err := e.normalizeCriteria(c)
	if err != nil {
		e.metrics.RecordEvaluation("invalid")
		return nil, err
	}

	r := &run{id: e.newID(), progress: progress, errs: map[string]string{}}
	res := &models.EvaluationResult{
		RunID:            r.id,
		SeedKeywords:     crit.SeedKeywords,
		MinProfitability: crit.MinProfitability,
		MaxCompetition:   crit.MaxCompetition,
		Niches:           []*models.Niche{},
		StartedAt:        e.now(),
	}
	e.log.Info("evaluation started",
		logger.String("run_id", r.id),
		logger.Strings("seeds", crit.SeedKeywords),
		logger.Float64("min_profitability", crit.MinProfitability),
		logger.String("max_competition", string(crit.MaxCompetition)))

	expanded := e.expander.Expand(crit.SeedKeywords, e.cfg.MaxExpandedKeywords)
	res.Stats.ExpandedKeywords = len(expanded)
	r.report(StageExpand, len(expanded), len(expanded), "")

	analyzed := head(expanded, e.cfg.MaxAnalyzedKeywords)
	trends, err := e.fetchTrends(ctx, r, analyzed)
	if err != nil {
		e.metrics.RecordEvaluation("cancelled")
		return nil, err
	}
	res.Stats.AnalyzedTrends = len(trends)

	promising := make([]string, 0, len(analyzed))
	for _, kw := range analyzed {
		t, ok := trends[kw]
		if !ok {
			continue
		}
		if !IsPromising(t) {
			e.metrics.RecordDroppedKeyword(StageFilter)
			continue
		}
		promising = append(promising, kw)
	}
	res.Stats.PromisingKeywords = len(promising)
	r.report(StageFilter, len(promising), len(analyzed), "")

	competition, looked, err := e.fetchCompetition(ctx, r, promising)
	if err != nil {
		e.metrics.RecordEvaluation("cancelled")
		return nil, err
	}
	res.Stats.CompetitionLooked = looked

	candidates := make([]*models.Niche, 0, len(promising))
	for i, kw := range promising {
		n, err := e.buildNiche(kw, crit.Category, trends[kw], competition[kw])
		if err != nil {
			r.fail(kw, err)
			e.metrics.RecordDroppedKeyword(StageScore)
			e.log.Warn("niche rejected", logger.String("keyword", kw), logger.Error(err))
			continue
		}
		candidates = append(candidates, n)
		r.report(StageScore, i+1, len(promising), kw)
	}
	res.Stats.Candidates = len(candidates)

	qualified := Qualify(candidates, crit.MinProfitability, crit.MaxCompetition)
	RankNiches(qualified)
	res.Stats.Qualified = len(qualified)
	top := head(qualified, crit.Limit)
	res.Niches = top
	res.Stats.Returned = len(top)
	res.Recommendations = analytics.NicheRecommendations(top, candidates)
	r.report(StageRank, len(top), len(qualified), "")

	for _, n := range top {
		e.metrics.RecordNicheScore(n.Scores.Profitability)
	}
	if len(r.errs) > 0 {
		res.Errors = r.errs
	}
	res.FinishedAt = e.now()
	e.metrics.RecordEvaluation("ok")
	e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	r.report(StageDone, len(top), len(top), "")
	e.log.Info("evaluation finished",
		logger.String("run_id", r.id),
		logger.Int("expanded", res.Stats.ExpandedKeywords),
		logger.Int("promising", res.Stats.PromisingKeywords),
		logger.Int("niches", len(top)),
		logger.Int("errors", len(r.errs)),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (e *NicheEngine) normalizeCriteria(c models.EvaluationCriteria) (models.EvaluationCriteria, error) {
	seeds := make([]string, 0, len(c.SeedKeywords))
	for _, s := range c.SeedKeywords {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	if len(seeds) == 0 {
		return c, &models.ValidationError{Field: "base_keywords", Reason: "at least one seed keyword is required", Err: models.ErrNoSeedKeywords}
	}
	c.SeedKeywords = seeds
	if c.MinProfitability < 0 || c.MinProfitability > 100 {
		return c, &models.ValidationError{
			Field:  "min_profitability_score",
			Reason: fmt.Sprintf("must be within [0,100], got %.2f", c.MinProfitability),
			Err:    models.ErrInvalidScore,
		}
	}
	if c.MaxCompetition == "" {
		c.MaxCompetition = models.CompetitionMedium
	}
	level, err := models.ParseCompetitionLevel(string(c.MaxCompetition))
	if err != nil {
		return c, err
	}
	c.MaxCompetition = level
	if c.Limit <= 0 {
		c.Limit = e.cfg.MaxNiches
	}
	return c, nil
}

// fetchTrends queries the trend provider in batches. Calls within a batch run concurrently;
// batches are separated by the configured delay. Keywords without data are left out.
func (e *NicheEngine) fetchTrends(ctx context.Context, r *run, keywords []string) (map[string]*models.TrendAnalysis, error) {
	out := make(map[string]*models.TrendAnalysis, len(keywords))
	results := make([]*models.TrendAnalysis, len(keywords))
	size := e.cfg.BatchSize

	for lo := 0; lo < len(keywords); lo += size {
		if lo > 0 && e.cfg.BatchDelay > 0 {
			if err := sleepCtx(ctx, e.cfg.BatchDelay); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := lo + size
		if hi > len(keywords) {
			hi = len(keywords)
		}

		var wg sync.WaitGroup
		for i := lo; i < hi; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				kw := keywords[i]
				t, err := e.trends.GetTrendAnalysis(ctx, kw, e.cfg.Timeframe, e.cfg.Geo)
				switch {
				case err != nil:
					r.fail(kw, fmt.Errorf("trend lookup: %w", err))
					e.metrics.RecordDroppedKeyword(StageTrends)
					e.log.Warn("trend lookup failed", logger.String("keyword", kw), logger.Error(err))
				case t == nil:
					e.metrics.RecordDroppedKeyword(StageTrends)
				default:
					results[i] = t
				}
			}(i)
		}
		wg.Wait()
		r.report(StageTrends, hi, len(keywords), "")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, t := range results {
		if t != nil {
			out[keywords[i]] = t
		}
	}
	return out, nil
}

// fetchCompetition looks up listings for the first keywords within the lookup budget.
// Keywords past the budget, failed lookups and a missing provider fall back to an
// estimated summary, which lowers the niche confidence.
func (e *NicheEngine) fetchCompetition(ctx context.Context, r *run, keywords []string) (map[string]competitionData, int, error) {
	out := make(map[string]competitionData, len(keywords))
	looked := 0
	for i, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return nil, looked, err
		}
		if e.products == nil || i >= e.cfg.MaxCompetitionLookups {
			out[kw] = competitionData{summary: models.EstimatedSummary(len(strings.Fields(kw)), e.now())}
			continue
		}
		d, err := e.lookupCompetition(ctx, kw)
		looked++
		if err != nil {
			if ctx.Err() != nil {
				return nil, looked, ctx.Err()
			}
			r.fail(kw, fmt.Errorf("competition lookup: %w", err))
			e.log.Warn("competition lookup failed", logger.String("keyword", kw), logger.Error(err))
			out[kw] = competitionData{summary: models.EstimatedSummary(len(strings.Fields(kw)), e.now())}
			continue
		}
		out[kw] = d
		r.report(StageCompetition, i+1, minInt(len(keywords), e.cfg.MaxCompetitionLookups), kw)
	}
	return out, looked, nil
}

func (e *NicheEngine) lookupCompetition(ctx context.Context, keyword string) (competitionData, error) {
	products, err := e.products.SearchProducts(ctx, keyword, e.cfg.ProductsPerKeyword)
	if err != nil {
		return competitionData{}, err
	}
	ma := e.analyzer.AnalyzeMarket(keyword, products)
	return competitionData{
		summary:  analytics.SummaryFromAnalysis(products, ma, e.now()),
		analysis: ma,
	}, nil
}

// buildNiche scores one keyword in a single pass from raw inputs to an immutable niche.
func (e *NicheEngine) buildNiche(keyword, category string, t *models.TrendAnalysis, c competitionData) (*models.Niche, error) {
	summary := c.summary
	marketSize := e.scorer.MarketSize(t, &summary)

	var seasonality *models.SeasonalityMetrics
	if vol, ok := t.Seasonal.Volatility(); ok {
		seasonality = &models.SeasonalityMetrics{Strength: vol * 100, Consistency: t.Confidence * 100}
	}
	// Estimated summaries carry no gap data, so the content-gap sub-score drops out.
	var content *models.ContentMetrics
	if !summary.Estimated {
		content = &models.ContentMetrics{
			IdentifiedGaps:  summary.GapCount,
			AvgQuality:      neutralContentScore,
			Differentiation: neutralContentScore,
		}
	}
	profit, _ := e.scorer.Profitability(models.ScoringInput{
		Trend:       t,
		Competition: &summary,
		Market: &models.MarketMetrics{
			SearchVolume:    marketSize * 100,
			RelatedKeywords: len(t.RelatedQueries),
			CategorySize:    neutralCategorySize,
		},
		Seasonality: seasonality,
		Content:     content,
	})

	competition := 100.0
	if favor, ok := e.scorer.CompetitionFavorability(&summary); ok {
		competition = 100 - favor
	}
	confidence := t.Confidence * 100
	if summary.Estimated {
		confidence *= estimatedConfidence
	}

	in := models.NicheInput{
		ID:             e.newID(),
		Category:       category,
		PrimaryKeyword: keyword,
		Keywords:       append([]string{keyword}, head(t.RelatedQueries, relatedKeywordsPerNiche)...),
		Trend:          t,
		Competition:    &summary,
		Seasonal:       t.Seasonal,
		ContentGaps:    contentGaps(c.analysis),
		TopCompetitors: head(summary.TopASINs, topCompetitorsPerNiche),
		CreatedAt:      e.now(),
	}
	if pr, ok := summary.PriceRange(); ok {
		in.PriceRange = &pr
	}
	return models.NewNiche(in, models.NicheScores{
		Competition:   models.Round(clampScore(competition), 2),
		Profitability: models.Round(clampScore(profit), 2),
		MarketSize:    models.Round(clampScore(marketSize), 2),
		Confidence:    models.Round(clampScore(confidence), 2),
	})
}

// BuildNiche evaluates a single keyword without the ranking filters.
// It returns ErrNicheNotFound when the trend provider has no data for it.
func (e *NicheEngine) BuildNiche(ctx context.Context, keyword string) (*models.Niche, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, &models.ValidationError{Field: "niche_keyword", Reason: "must not be empty", Err: models.ErrInvalidKeywords}
	}
	t, err := e.trends.GetTrendAnalysis(ctx, keyword, e.cfg.Timeframe, e.cfg.Geo)
	if err != nil {
		return nil, fmt.Errorf("trend lookup %q: %w", keyword, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%q: %w", keyword, models.ErrNicheNotFound)
	}
	c := competitionData{summary: models.EstimatedSummary(len(strings.Fields(keyword)), e.now())}
	if e.products != nil {
		d, err := e.lookupCompetition(ctx, keyword)
		if err != nil {
			e.log.Warn("competition lookup failed, using estimate", logger.String("keyword", keyword), logger.Error(err))
		} else {
			c = d
		}
	}
	return e.buildNiche(keyword, "", t, c)
}

// StressTest runs the scenarios against a niche, or every default scenario when none are given.
// The report is returned together with ErrNoUsableScenarios when every scenario failed.
func (e *NicheEngine) StressTest(ctx context.Context, niche *models.Niche, scenarios []models.ScenarioParameters) (*models.StressTestReport, error) {
	if niche == nil {
		return nil, fmt.Errorf("stress test: %w", models.ErrNicheNotFound)
	}
	if err := niche.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	report, err := e.stress.Run(niche, scenarios)
	if report != nil {
		for _, f := range report.FailedScenarios {
			e.metrics.RecordScenarioFailure(string(f.Scenario))
		}
	}
	e.metrics.RecordLatency("stress_test", time.Since(start).Seconds())
	if err != nil {
		e.metrics.RecordError("stress_test")
		return report, err
	}
	e.log.Info("stress test finished",
		logger.String("niche", niche.PrimaryKeyword),
		logger.Float64("resilience", report.OverallResilience),
		logger.String("risk", string(report.RiskProfile)),
		logger.Int("failed", len(report.FailedScenarios)))
	return report, nil
}

// IsPromising keeps keywords with enough interest, no weak decline and a trustworthy signal.
func IsPromising(t *models.TrendAnalysis) bool {
	if t == nil || t.Score < minPromisingScore {
		return false
	}
	if t.Direction == models.DirectionDeclining && t.Score < decliningScoreFloor {
		return false
	}
	return t.Confidence >= minPromisingConfidence
}

// Qualify keeps niches at or above the profitability floor and at or below the competition ceiling.
func Qualify(niches []*models.Niche, minProfitability float64, maxCompetition models.CompetitionLevel) []*models.Niche {
	out := make([]*models.Niche, 0, len(niches))
	for _, n := range niches {
		if n.Scores.Profitability < minProfitability {
			continue
		}
		if n.CompetitionLevel().Rank() > maxCompetition.Rank() {
			continue
		}
		out = append(out, n)
	}
	return out
}

// RankNiches orders by profitability, then overall score, then keyword for a stable result.
func RankNiches(niches []*models.Niche) {
	sort.SliceStable(niches, func(i, j int) bool {
		a, b := niches[i], niches[j]
		if a.Scores.Profitability != b.Scores.Profitability {
			return a.Scores.Profitability > b.Scores.Profitability
		}
		if oa, ob := a.OverallScore(), b.OverallScore(); oa != ob {
			return oa > ob
		}
		return a.PrimaryKeyword < b.PrimaryKeyword
	})
}

func contentGaps(ma *models.MarketAnalysis) []string {
	if ma == nil {
		return nil
	}
	var out []string
	for _, g := range ma.Gaps {
		if g.Type == models.GapEmptyMarket || g.Description == "" {
			continue
		}
		out = append(out, g.Description)
		if len(out) == contentGapsPerNiche {
			break
		}
	}
	return out
}

func head[T any](s []T, n int) []T {
	if n < 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
