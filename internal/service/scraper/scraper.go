package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"nichescope/internal/domain/models"
	domsvc "nichescope/internal/domain/service"
	xhttp "nichescope/pkg/http"
	"nichescope/pkg/logger"
)

var hosts = map[string]string{
	"US": "www.amazon.com",
	"CA": "www.amazon.ca",
	"GB": "www.amazon.co.uk",
	"UK": "www.amazon.co.uk",
	"DE": "www.amazon.de",
	"FR": "www.amazon.fr",
	"ES": "www.amazon.es",
	"IT": "www.amazon.it",
	"AU": "www.amazon.com.au",
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

var numberRe = regexp.MustCompile(`[\d][\d,.]*`)

type Config struct {
	Country           string
	BaseURL           string // overrides the marketplace host, e.g. in tests
	Timeout           time.Duration
	RequestsPerMinute int
}

// Scraper reads the first search results page of a book marketplace. It is the
// product source used when no Keepa key is configured.
type Scraper struct {
	http    *xhttp.Client
	baseURL string
	log     *logger.Logger
	ua      atomic.Uint32
}

func New(cfg Config, log *logger.Logger) *Scraper {
	if log == nil {
		log = logger.Nop()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		host, ok := hosts[strings.ToUpper(cfg.Country)]
		if !ok {
			host = hosts["US"]
		}
		base = "https://" + host
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 10
	}
	return &Scraper{
		http: xhttp.NewClient(
			xhttp.WithTimeout(cfg.Timeout),
			xhttp.WithRateLimit(cfg.RequestsPerMinute),
			xhttp.WithHeader("Accept-Language", "en-US,en;q=0.9"),
		),
		baseURL: base,
		log:     log,
	}
}

func (s *Scraper) SearchProducts(ctx context.Context, keyword string, limit int) ([]models.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || limit <= 0 {
		return []models.Product{}, nil
	}
	resp, err := s.http.Get(ctx, s.baseURL+"/s",
		url.Values{"k": {keyword}, "i": {"stripbooks"}},
		http.Header{"User-Agent": {s.nextUserAgent()}})
	if err != nil {
		return nil, fmt.Errorf("scrape %q: %w", keyword, err)
	}
	defer resp.Body.Close()
	products, err := ParseSearchResults(resp.Body, limit)
	if err != nil {
		return nil, fmt.Errorf("scrape %q: %w", keyword, err)
	}
	s.log.Debug("scraper: parsed results", logger.String("keyword", keyword), logger.Int("products", len(products)))
	return products, nil
}

func (s *Scraper) nextUserAgent() string {
	n := s.ua.Add(1) - 1
	return userAgents[int(n)%len(userAgents)]
}

// ParseSearchResults extracts up to limit listings from a search results page.
// Listings without a title are skipped. Search pages carry no best-seller rank, so Rank stays 0.
func ParseSearchResults(r io.Reader, limit int) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	products := []models.Product{}
	doc.Find("div[data-component-type='s-search-result']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("h2 span").First().Text())
		if title == "" {
			return true
		}
		asin, _ := sel.Attr("data-asin")
		price := parseNumber(firstNonEmpty(
			sel.Find("span.a-price span.a-offscreen").First().Text(),
			sel.Find("span.a-price-whole").First().Text(),
		))
		rating := parseNumber(sel.Find("span.a-icon-alt").First().Text())
		reviewsText := sel.Find("span[aria-label$='ratings']").First().AttrOr("aria-label", "")
		if reviewsText == "" {
			reviewsText = sel.Find("span.a-size-base.s-underline-text").First().Text()
		}
		products = append(products, models.Product{
			ASIN:        asin,
			Title:       title,
			Price:       price,
			Rating:      rating,
			ReviewCount: int(parseNumber(reviewsText)),
		})
		return len(products) < limit
	})
	return products, nil
}

// parseNumber reads the first number in s, treating commas as thousands separators.
func parseNumber(s string) float64 {
	m := numberRe.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

var _ domsvc.CompetitionDataProvider = (*Scraper)(nil)
