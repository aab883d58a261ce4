package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nichescope/internal/domain/models"
	drepo "nichescope/internal/domain/repository"
	domsvc "nichescope/internal/domain/service"
	"nichescope/internal/services/analytics"
	"nichescope/pkg/logger"
	"nichescope/pkg/queue"
)

// StressTestJobType is the queue message type of an asynchronous stress test.
const StressTestJobType = "stress_test"

// ErrAsyncUnavailable is returned when an asynchronous stress test is requested without a queue.
var ErrAsyncUnavailable = errors.New("asynchronous stress tests are not enabled")

// ReportSink receives finished reports.
type ReportSink interface {
	Process(ctx context.Context, r *models.Report) error
}

// NicheService is the entry point used by the HTTP API, the Kafka request consumer and the
// stress-test queue job. It resolves requests into engine calls and hands the finished
// reports to the sink.
type NicheService struct {
	engine    *NicheEngine
	source    domsvc.NicheSource
	trends    domsvc.TrendDataProvider
	products  domsvc.CompetitionDataProvider
	expander  domsvc.KeywordExpander
	validator domsvc.TrendValidator
	analyzer  domsvc.CompetitiveAnalyzer
	listing   domsvc.ListingGenerator
	store     drepo.ReportStore
	sink      ReportSink
	queue     queue.Publisher
	geo       string
	minProfit float64
	maxLevel  string
	log       *logger.Logger
}

// ServiceDeps groups the collaborators of a NicheService. Products, Sink and Queue may be nil.
// A nil Listing uses the default listing generator.
type ServiceDeps struct {
	Engine    *NicheEngine
	Source    domsvc.NicheSource
	Trends    domsvc.TrendDataProvider
	Products  domsvc.CompetitionDataProvider
	Expander  domsvc.KeywordExpander
	Validator domsvc.TrendValidator
	Analyzer  domsvc.CompetitiveAnalyzer
	Listing   domsvc.ListingGenerator
	Store     drepo.ReportStore
	Sink      ReportSink
	Queue     queue.Publisher
	Geo       string
	Logger    *logger.Logger

	// Defaults applied to evaluation requests that leave the thresholds out.
	MinProfitability float64
	MaxCompetition   string
}

func NewNicheService(d ServiceDeps) *NicheService {
	l := d.Logger
	if l == nil {
		l = logger.Nop()
	}
	source := d.Source
	if source == nil && d.Engine != nil {
		source = NewEngineNicheSource(d.Engine)
	}
	listing := d.Listing
	if listing == nil {
		listing = analytics.NewListingGenerator()
	}
	geo := d.Geo
	if geo == "" {
		geo = "US"
	}
	return &NicheService{
		engine:    d.Engine,
		source:    source,
		trends:    d.Trends,
		products:  d.Products,
		expander:  d.Expander,
		validator: d.Validator,
		analyzer:  d.Analyzer,
		listing:   listing,
		store:     d.Store,
		sink:      d.Sink,
		queue:     d.Queue,
		geo:       geo,
		minProfit: d.MinProfitability,
		maxLevel:  d.MaxCompetition,
		log:       l,
	}
}

// NewEvaluateRequest returns a request carrying the configured thresholds. Decoding a
// client request into it keeps the thresholds the client leaves out.
func (s *NicheService) NewEvaluateRequest() *models.EvaluateRequest {
	return &models.EvaluateRequest{MinProfitability: s.minProfit, MaxCompetition: s.maxLevel}
}

// Evaluate runs an evaluation for the request and forwards the result to the sink.
func (s *NicheService) Evaluate(ctx context.Context, req models.EvaluateRequest, progress ProgressFunc) (*models.EvaluationResult, error) {
	level, err := models.ParseCompetitionLevel(req.MaxCompetition)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Evaluate(ctx, models.EvaluationCriteria{
		SeedKeywords:     req.Keywords,
		Category:         req.Category,
		MinProfitability: req.MinProfitability,
		MaxCompetition:   level,
		Limit:            req.Limit,
	}, progress)
	if err != nil {
		return nil, err
	}
	s.submit(ctx, &models.Report{Evaluation: res})
	return res, nil
}

// StressTest resolves the niche and scenarios of the request and runs the stress test.
// When every scenario fails the report is returned with ErrNoUsableScenarios.
func (s *NicheService) StressTest(ctx context.Context, req models.StressTestRequest) (*models.StressTestReport, error) {
	niche, err := s.resolveNiche(ctx, req)
	if err != nil {
		return nil, err
	}
	scenarios, err := ResolveScenarios(req.Scenarios, req.Custom)
	if err != nil {
		return nil, err
	}
	report, err := s.engine.StressTest(ctx, niche, scenarios)
	if report != nil {
		if id := queue.MessageID(ctx); id != "" {
			report.ID = id
		}
		s.submit(ctx, &models.Report{Stress: report})
	}
	return report, err
}

// EnqueueStressTest schedules the request on the job queue and returns the report ID it will carry.
func (s *NicheService) EnqueueStressTest(ctx context.Context, req models.StressTestRequest) (string, error) {
	if s.queue == nil {
		return "", ErrAsyncUnavailable
	}
	if _, err := ResolveScenarios(req.Scenarios, req.Custom); err != nil {
		return "", err
	}
	req.Async = false
	id, err := s.queue.Enqueue(ctx, StressTestJobType, req)
	if err != nil {
		return "", fmt.Errorf("enqueue stress test: %w", err)
	}
	return id, nil
}

func (s *NicheService) resolveNiche(ctx context.Context, req models.StressTestRequest) (*models.Niche, error) {
	return s.nicheFor(ctx, req.Niche, req.Keyword)
}

// nicheFor validates an inline niche or builds one for the keyword.
func (s *NicheService) nicheFor(ctx context.Context, inline *models.Niche, keyword string) (*models.Niche, error) {
	if inline != nil {
		if err := inline.Validate(); err != nil {
			return nil, err
		}
		return inline, nil
	}
	if strings.TrimSpace(keyword) == "" {
		return nil, &models.ValidationError{Field: "niche_keyword", Reason: "a niche or a niche keyword is required", Err: models.ErrInvalidKeywords}
	}
	return s.source.NicheForKeyword(ctx, keyword)
}

// Bounds on the lookups made for one listing.
const (
	listingTrendKeywords = 5
	listingComparables   = 20
)

// GenerateListing drafts a marketplace listing for the niche of the request. Trend scores and
// comparable prices are best effort: lookup failures are logged and the listing is still drafted.
func (s *NicheService) GenerateListing(ctx context.Context, req models.ListingRequest) (*models.ListingResult, error) {
	opts, err := req.Options()
	if err != nil {
		return nil, err
	}
	niche, err := s.nicheFor(ctx, req.Niche, req.Keyword)
	if err != nil {
		return nil, err
	}

	market := models.ListingMarket{
		TrendScores: map[string]float64{},
		WithPricing: boolOr(req.IncludePricing, true),
	}
	if s.trends != nil {
		for _, kw := range niche.TopKeywords(listingTrendKeywords) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			trend, err := s.trends.GetTrendAnalysis(ctx, kw, models.DefaultTimeframe(), s.geo)
			if err != nil {
				s.log.Warn("listing trend lookup failed", logger.String("keyword", kw), logger.Error(err))
				continue
			}
			if trend != nil {
				market.TrendScores[kw] = trend.Score
			}
		}
	}
	if market.WithPricing && s.products != nil {
		query := niche.PrimaryKeyword + " " + opts.ContentType.BookType()
		products, err := s.products.SearchProducts(ctx, query, listingComparables)
		if err != nil {
			s.log.Warn("listing price lookup failed", logger.String("query", query), logger.Error(err))
		}
		market.Products = products
	}
	return s.listing.Generate(niche, opts, market)
}

// ResolveScenarios combines named default scenarios with custom ones. With neither,
// every default scenario is used.
func ResolveScenarios(names []string, custom []models.ScenarioParameters) ([]models.ScenarioParameters, error) {
	for _, p := range custom {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	if len(names) == 0 && len(custom) > 0 {
		return append([]models.ScenarioParameters(nil), custom...), nil
	}
	named, err := analytics.ScenariosByName(names)
	if err != nil {
		return nil, err
	}
	return append(named, custom...), nil
}

// Scenarios lists the built-in stress scenarios.
func (s *NicheService) Scenarios() []models.ScenarioParameters {
	return analytics.DefaultScenarios()
}

// ExpandKeywords derives keyword phrases from the request seeds.
func (s *NicheService) ExpandKeywords(req models.ExpandRequest) []string {
	return s.expander.Expand(req.Keywords, req.MaxCombinations)
}

// ValidateTrend fetches the trend of a keyword and its longer history, then validates it.
func (s *NicheService) ValidateTrend(ctx context.Context, req models.TrendValidateRequest) (*models.TrendValidation, error) {
	tf := models.NormalizeTimeframe(req.Timeframe)
	trend, err := s.trends.GetTrendAnalysis(ctx, req.Keyword, tf, s.geo)
	if err != nil {
		return nil, fmt.Errorf("trend lookup %q: %w", req.Keyword, err)
	}
	if trend == nil {
		return nil, fmt.Errorf("no trend data for %q: %w", req.Keyword, models.ErrNicheNotFound)
	}

	var history []models.TrendPoint
	if hp, ok := s.trends.(domsvc.TrendHistoryProvider); ok {
		history, err = hp.GetTrendHistory(ctx, req.Keyword, models.HistoryTimeframe(), s.geo)
		if err != nil {
			s.log.Warn("trend history unavailable", logger.String("keyword", req.Keyword), logger.Error(err))
			history = nil
		}
	}
	return s.validator.Validate(trend, history, domsvc.ValidateOptions{
		IncludeForecasts:   boolOr(req.IncludeForecasts, true),
		IncludeSeasonality: boolOr(req.IncludeSeasonality, true),
	}), nil
}

// AnalyzeCompetitors analyses the listings of a keyword with at least MinReviews reviews.
// Without a product provider the analysis is an estimate.
func (s *NicheService) AnalyzeCompetitors(ctx context.Context, req models.CompetitorRequest) (*models.MarketAnalysis, error) {
	var products []models.Product
	if s.products != nil {
		found, err := s.products.SearchProducts(ctx, req.Keyword, req.MaxProducts)
		if err != nil {
			return nil, fmt.Errorf("product search %q: %w", req.Keyword, err)
		}
		for _, p := range found {
			if p.ReviewCount >= req.MinReviews {
				products = append(products, p)
			}
		}
	}
	return s.analyzer.AnalyzeMarket(req.Keyword, products), nil
}

// RecentStressReports lists stored stress reports, newest first.
func (s *NicheService) RecentStressReports(ctx context.Context, keyword string, limit int) ([]drepo.StressReportRow, error) {
	if s.store == nil {
		return []drepo.StressReportRow{}, nil
	}
	return s.store.RecentStressReports(ctx, keyword, limit)
}

// Health checks the report store.
func (s *NicheService) Health(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Health(ctx)
}

type queueStatser interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

// QueueStats reports job queue lengths. ok is false when no queue is configured
// or the queue does not expose its lengths.
func (s *NicheService) QueueStats(ctx context.Context) (st queue.Stats, ok bool, err error) {
	q, ok := s.queue.(queueStatser)
	if !ok {
		return queue.Stats{}, false, nil
	}
	st, err = q.Stats(ctx)
	return st, true, err
}

// submit hands a report to the sink. Sink failures are logged; the caller already has the result.
func (s *NicheService) submit(ctx context.Context, r *models.Report) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Process(ctx, r); err != nil {
		s.log.Warn("report sink failed",
			logger.String("kind", r.Kind()),
			logger.String("id", r.ID()),
			logger.Error(err))
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
