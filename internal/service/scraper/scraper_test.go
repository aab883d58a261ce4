package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const resultsPage = `<html><body><div class="s-main-slot">
<div data-component-type="s-search-result" data-asin="B0A1">
  <h2><a href="/dp/B0A1"><span>Gratitude Journal for Women</span></a></h2>
  <span class="a-price"><span class="a-offscreen">$12.99</span></span>
  <span class="a-icon-alt">4.6 out of 5 stars</span>
  <span aria-label="1,234 ratings">1,234</span>
</div>
<div data-component-type="s-search-result" data-asin="B0A2">
  <h2><span></span></h2>
</div>
<div data-component-type="s-search-result" data-asin="B0A3">
  <h2><span>Five Minute Journal</span></h2>
  <span class="a-price"><span class="a-price-whole">9.</span></span>
</div>
</div></body></html>`

func TestParseSearchResults(t *testing.T) {
	got, err := ParseSearchResults(strings.NewReader(resultsPage), 10)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(got))
	}
	first := got[0]
	if first.ASIN != "B0A1" || first.Price != 12.99 || first.Rating != 4.6 || first.ReviewCount != 1234 || first.Rank != 0 {
		t.Fatalf("unexpected first listing %+v", first)
	}
	if got[1].Price != 9 || got[1].ReviewCount != 0 {
		t.Fatalf("unexpected second listing %+v", got[1])
	}
}

func TestParseSearchResultsLimit(t *testing.T) {
	got, _ := ParseSearchResults(strings.NewReader(resultsPage), 1)
	if len(got) != 1 {
		t.Fatalf("expected limit of 1, got %d", len(got))
	}
}

func TestSearchProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s" || r.URL.Query().Get("k") != "gratitude journal" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, RequestsPerMinute: 6000}, nil)
	got, err := s.SearchProducts(context.Background(), "gratitude journal", 20)
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 products, got %v, %v", got, err)
	}
	if _, err := s.SearchProducts(context.Background(), "missing", 20); err == nil {
		t.Fatalf("expected error on 404")
	}
}
