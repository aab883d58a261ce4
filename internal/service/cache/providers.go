package cache

import (
	"context"
	"time"

	"nichescope/internal/domain/models"
	"nichescope/internal/domain/repository"
	domsvc "nichescope/internal/domain/service"
	pkgcache "nichescope/pkg/cache"
)

const (
	trendsAnalysisPrefix = "trends:analysis"
	trendsHistoryPrefix  = "trends:history"
	keepaSearchPrefix    = "keepa:search"
)

// TrendKey is the cache key of a trend snapshot.
func TrendKey(keyword string, tf models.Timeframe, geo string) string {
	return pkgcache.Key(trendsAnalysisPrefix, keyword, string(tf), geo)
}

// SearchKey is the cache key of a product search.
func SearchKey(keyword string, limit int) string {
	return pkgcache.Key(keepaSearchPrefix, keyword, limit)
}

// TrendProvider caches trend snapshots and histories of the wrapped provider.
// Missing data is not cached so a later run can pick it up.
type TrendProvider struct {
	next    domsvc.TrendDataProvider
	history domsvc.TrendHistoryProvider
	cache   pkgcache.Service
	ttl     time.Duration
	metrics repository.Metrics
}

func NewTrendProvider(next domsvc.TrendDataProvider, c pkgcache.Service, ttl time.Duration, m repository.Metrics) *TrendProvider {
	hist, _ := next.(domsvc.TrendHistoryProvider)
	return &TrendProvider{next: next, history: hist, cache: c, ttl: ttl, metrics: m}
}

func (p *TrendProvider) GetTrendAnalysis(ctx context.Context, keyword string, tf models.Timeframe, geo string) (*models.TrendAnalysis, error) {
	v, hit, err := pkgcache.GetOrLoad(ctx, p.cache, TrendKey(keyword, tf, geo), p.ttl,
		func(ctx context.Context) (*models.TrendAnalysis, bool, error) {
			ta, err := p.next.GetTrendAnalysis(ctx, keyword, tf, geo)
			return ta, ta != nil, err
		})
	p.record("trends", hit, err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (p *TrendProvider) GetTrendHistory(ctx context.Context, keyword string, tf models.Timeframe, geo string) ([]models.TrendPoint, error) {
	if p.history == nil {
		return nil, nil
	}
	key := pkgcache.Key(trendsHistoryPrefix, keyword, string(tf), geo)
	v, hit, err := pkgcache.GetOrLoad(ctx, p.cache, key, p.ttl,
		func(ctx context.Context) ([]models.TrendPoint, bool, error) {
			pts, err := p.history.GetTrendHistory(ctx, keyword, tf, geo)
			return pts, len(pts) > 0, err
		})
	p.record("trends_history", hit, err)
	return v, err
}

func (p *TrendProvider) record(provider string, hit bool, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordProviderCall(provider, outcome(hit, err))
}

// CompetitionProvider caches product searches of the wrapped provider.
type CompetitionProvider struct {
	next    domsvc.CompetitionDataProvider
	cache   pkgcache.Service
	ttl     time.Duration
	metrics repository.Metrics
}

func NewCompetitionProvider(next domsvc.CompetitionDataProvider, c pkgcache.Service, ttl time.Duration, m repository.Metrics) *CompetitionProvider {
	return &CompetitionProvider{next: next, cache: c, ttl: ttl, metrics: m}
}

func (p *CompetitionProvider) SearchProducts(ctx context.Context, keyword string, limit int) ([]models.Product, error) {
	v, hit, err := pkgcache.GetOrLoad(ctx, p.cache, SearchKey(keyword, limit), p.ttl,
		func(ctx context.Context) ([]models.Product, bool, error) {
			ps, err := p.next.SearchProducts(ctx, keyword, limit)
			return ps, ps != nil, err
		})
	if p.metrics != nil {
		p.metrics.RecordProviderCall("products", outcome(hit, err))
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []models.Product{}
	}
	return v, nil
}

func outcome(hit bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case hit:
		return "cache_hit"
	default:
		return "fetched"
	}
}

var (
	_ domsvc.TrendDataProvider       = (*TrendProvider)(nil)
	_ domsvc.TrendHistoryProvider    = (*TrendProvider)(nil)
	_ domsvc.CompetitionDataProvider = (*CompetitionProvider)(nil)
)
