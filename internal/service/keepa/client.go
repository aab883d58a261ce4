package keepa

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
	xhttp "nichescope/pkg/http"
	"nichescope/pkg/logger"
)

// Indices into stats.current and csv of a Keepa product object.
const (
	idxAmazon    = 0
	idxNew       = 1
	idxSalesRank = 3
	idxRating    = 16
	idxReviews   = 17

	maxPerPage = 100
)

var ErrMissingAPIKey = errors.New("keepa: api key is required")

type Config struct {
	BaseURL           string
	APIKey            string
	Domain            int
	Timeout           time.Duration
	RequestsPerMinute int
	Retries           int
}

// Client searches marketplace listings through the Keepa API.
type Client struct {
	http *xhttp.Client
	cfg  Config
	log  *logger.Logger
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.keepa.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Domain <= 0 {
		cfg.Domain = 1
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	return &Client{
		http: xhttp.NewClient(
			xhttp.WithTimeout(cfg.Timeout),
			xhttp.WithRateLimit(cfg.RequestsPerMinute),
			xhttp.WithRetries(cfg.Retries, 2*time.Second),
		),
		cfg: cfg,
		log: log,
	}, nil
}

type searchResponse struct {
	ASINList []string `json:"asinList"`
}

type productResponse struct {
	Products []rawProduct `json:"products"`
}

type rawProduct struct {
	ASIN  string    `json:"asin"`
	Title string    `json:"title"`
	Stats *rawStats `json:"stats"`
	CSV   [][]int   `json:"csv"`
	// categoryTree is reduced to the leaf name
	CategoryTree []struct {
		Name string `json:"name"`
	} `json:"categoryTree"`
}

type rawStats struct {
	Current []int `json:"current"`
}

// SearchProducts resolves a keyword to ASINs, then loads their current stats.
// An empty result is a market without competition.
func (c *Client) SearchProducts(ctx context.Context, keyword string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		return []models.Product{}, nil
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}

	var search searchResponse
	if err := c.get(ctx, "/search", url.Values{
		"type":    {"product"},
		"term":    {keyword},
		"page":    {"0"},
		"perPage": {strconv.Itoa(limit)},
	}, &search); err != nil {
		return nil, fmt.Errorf("keepa search %q: %w", keyword, err)
	}
	asins := search.ASINList
	if len(asins) > limit {
		asins = asins[:limit]
	}
	if len(asins) == 0 {
		c.log.Debug("keepa: no search results", logger.String("keyword", keyword))
		return []models.Product{}, nil
	}

	var products productResponse
	if err := c.get(ctx, "/product", url.Values{
		"asin":  {strings.Join(asins, ",")},
		"stats": {"1"},
	}, &products); err != nil {
		return nil, fmt.Errorf("keepa products %q: %w", keyword, err)
	}

	out := make([]models.Product, 0, len(products.Products))
	for _, raw := range products.Products {
		if p, ok := toProduct(raw); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	params.Set("key", c.cfg.APIKey)
	params.Set("domain", strconv.Itoa(c.cfg.Domain))
	return c.http.GetJSON(ctx, c.cfg.BaseURL+path, params, dest)
}

func toProduct(raw rawProduct) (models.Product, bool) {
	if raw.ASIN == "" {
		return models.Product{}, false
	}
	p := models.Product{ASIN: raw.ASIN, Title: raw.Title}
	if n := len(raw.CategoryTree); n > 0 {
		p.Category = raw.CategoryTree[n-1].Name
	}
	if raw.Stats != nil {
		cur := raw.Stats.Current
		price := statAt(cur, idxAmazon)
		if price <= 0 {
			price = statAt(cur, idxNew)
		}
		if price > 0 {
			p.Price = float64(price) / 100
		}
		if rank := statAt(cur, idxSalesRank); rank > 0 {
			p.Rank = rank
		}
		if rating := statAt(cur, idxRating); rating > 0 {
			p.Rating = float64(rating) / 10
		}
		if reviews := statAt(cur, idxReviews); reviews > 0 {
			p.ReviewCount = reviews
		}
	}
	for _, v := range historyValues(raw.CSV, idxAmazon) {
		p.PriceHistory = append(p.PriceHistory, float64(v)/100)
	}
	p.RankHistory = historyValues(raw.CSV, idxSalesRank)
	return p, true
}

// statAt returns -1 when the value is missing, matching Keepa's own marker.
func statAt(vals []int, i int) int {
	if i < len(vals) {
		return vals[i]
	}
	return -1
}

// historyValues drops the timestamps from a Keepa (time, value) pair series and skips gaps.
func historyValues(csv [][]int, i int) []int {
	if i >= len(csv) {
		return nil
	}
	series := csv[i]
	var out []int
	for j := 1; j < len(series); j += 2 {
		if series[j] > 0 {
			out = append(out, series[j])
		}
	}
	return out
}

var _ domsvc.CompetitionDataProvider = (*Client)(nil)
