package keepa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func keepaServer(t *testing.T, asins string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/search":
			fmt.Fprintf(w, `{"asinList": [%s]}`, asins)
		case "/product":
			fmt.Fprint(w, `{"products": [
				{"asin": "B001", "title": "Gratitude Journal",
				 "stats": {"current": [1299, 999, -1, 15000, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, 46, 230]},
				 "csv": [[100, 1299, 200, 1399], null, null, [100, 15000, 200, -1, 300, 12000]],
				 "categoryTree": [{"name": "Books"}, {"name": "Journals"}]},
				{"asin": "B002", "title": "Daily Journal",
				 "stats": {"current": [-1, 899, -1, -1]}},
				{"asin": "", "title": "broken"}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSearchProducts(t *testing.T) {
	srv := keepaServer(t, `"B001","B002"`)
	defer srv.Close()
	c, err := New(Config{BaseURL: srv.URL, APIKey: "secret", RequestsPerMinute: 6000}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := c.SearchProducts(context.Background(), "gratitude journal", 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got))
	}
	p := got[0]
	if p.Price != 12.99 || p.Rank != 15000 || p.Rating != 4.6 || p.ReviewCount != 230 {
		t.Fatalf("unexpected product %+v", p)
	}
	if p.Category != "Journals" || len(p.PriceHistory) != 2 || len(p.RankHistory) != 2 {
		t.Fatalf("unexpected history %+v", p)
	}
	if got[1].Price != 8.99 || got[1].Rank != 0 {
		t.Fatalf("expected new-offer price fallback, got %+v", got[1])
	}
}

func TestSearchProductsEmpty(t *testing.T) {
	srv := keepaServer(t, "")
	defer srv.Close()
	c, _ := New(Config{BaseURL: srv.URL, APIKey: "secret", RequestsPerMinute: 6000}, nil)

	got, err := c.SearchProducts(context.Background(), "nothing", 20)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %v, %v", got, err)
	}
}

func TestSearchProductsUnauthorized(t *testing.T) {
	srv := keepaServer(t, `"B001"`)
	defer srv.Close()
	c, _ := New(Config{BaseURL: srv.URL, APIKey: "wrong", RequestsPerMinute: 6000}, nil)
	if _, err := c.SearchProducts(context.Background(), "journal", 5); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
