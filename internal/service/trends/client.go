package trends

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
	"nichescope/internal/services/features"
	xhttp "nichescope/pkg/http"
	"nichescope/pkg/logger"
	"nichescope/pkg/util"
)

const relatedPerKind = 10

// Config configures the trend data client.
type Config struct {
	BaseURL           string
	Geo               string
	Timeout           time.Duration
	RequestsPerMinute int
	Retries           int
}

// Client fetches interest-over-time series from a trends gateway and turns them into
// trend snapshots. Requests are paced by the transport's token bucket, shared by every caller.
type Client struct {
	http    *xhttp.Client
	baseURL string
	geo     string
	log     *logger.Logger
	now     func() time.Time
}

type Option func(*Client)

// WithHTTP replaces the transport client.
func WithHTTP(c *xhttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

func New(cfg Config, log *logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.Nop()
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	c := &Client{
		http: xhttp.NewClient(
			xhttp.WithTimeout(cfg.Timeout),
			xhttp.WithRateLimit(rpm),
			xhttp.WithRetries(cfg.Retries, time.Second),
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		geo:     cfg.Geo,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type timelinePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type relatedQuery struct {
	Query string `json:"query"`
	Value int    `json:"value"`
}

type interestResponse struct {
	Keyword        string                    `json:"keyword"`
	Timeline       []timelinePoint           `json:"timeline"`
	RelatedQueries map[string][]relatedQuery `json:"related_queries"`
}

// GetTrendAnalysis returns nil without error when the gateway has no data for the keyword.
func (c *Client) GetTrendAnalysis(ctx context.Context, keyword string, tf models.Timeframe, geo string) (*models.TrendAnalysis, error) {
	resp, err := c.fetch(ctx, keyword, tf, geo)
	if err != nil || resp == nil {
		return nil, err
	}
	points := toPoints(resp.Timeline)
	ta, err := features.ExtractTrendAnalysis(keyword, points, relatedQueries(resp.RelatedQueries), tf, c.now())
	if err != nil {
		return nil, fmt.Errorf("trends %q: %w", keyword, err)
	}
	return ta, nil
}

// GetTrendHistory returns the raw series for validation.
func (c *Client) GetTrendHistory(ctx context.Context, keyword string, tf models.Timeframe, geo string) ([]models.TrendPoint, error) {
	resp, err := c.fetch(ctx, keyword, tf, geo)
	if err != nil || resp == nil {
		return nil, err
	}
	return toPoints(resp.Timeline), nil
}

func (c *Client) fetch(ctx context.Context, keyword string, tf models.Timeframe, geo string) (*interestResponse, error) {
	if !models.IsValidTimeframe(tf) {
		tf = models.DefaultTimeframe()
	}
	if geo == "" {
		geo = c.geo
	}
	var out interestResponse
	err := c.http.GetJSON(ctx, c.baseURL+"/api/interest", url.Values{
		"keyword":   {keyword},
		"timeframe": {string(tf)},
		"geo":       {geo},
	}, &out)
	if xhttp.IsStatus(err, http.StatusNotFound) {
		c.log.Debug("trends: no data", logger.String("keyword", keyword))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trends %q: %w", keyword, err)
	}
	if len(out.Timeline) == 0 {
		return nil, nil
	}
	return &out, nil
}

func toPoints(timeline []timelinePoint) []models.TrendPoint {
	out := make([]models.TrendPoint, 0, len(timeline))
	for _, p := range timeline {
		at, ok := util.ParseTime(p.Date)
		if !ok {
			continue
		}
		out = append(out, models.TrendPoint{Date: at, Score: p.Value})
	}
	return out
}

// relatedQueries keeps the first queries of each kind, top before rising.
func relatedQueries(m map[string][]relatedQuery) []string {
	var out []string
	seen := map[string]bool{}
	for _, kind := range []string{"top", "rising"} {
		qs := m[kind]
		if len(qs) > relatedPerKind {
			qs = qs[:relatedPerKind]
		}
		for _, q := range qs {
			s := strings.TrimSpace(strings.ToLower(q.Query))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

var (
	_ domsvc.TrendDataProvider    = (*Client)(nil)
	_ domsvc.TrendHistoryProvider = (*Client)(nil)
)
