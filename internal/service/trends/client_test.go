package trends

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nichescope/internal/domain/models"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/interest" {
			http.NotFound(w, r)
			return
		}
		kw := r.URL.Query().Get("keyword")
		if kw == "unknown" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("timeframe") == "" {
			t.Errorf("timeframe missing")
		}
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		var tl []map[string]interface{}
		for i := 0; i < 12; i++ {
			tl = append(tl, map[string]interface{}{
				"date":  start.AddDate(0, i, 0).Format("2006-01-02"),
				"value": 40 + i*5,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keyword":  kw,
			"timeline": tl,
			"related_queries": map[string]interface{}{
				"top":    []map[string]interface{}{{"query": "Gratitude Journal for Women", "value": 100}},
				"rising": []map[string]interface{}{{"query": "gratitude journal for women", "value": 50}, {"query": "5 minute journal", "value": 40}},
			},
		})
	}))
}

func TestGetTrendAnalysis(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL, Geo: "US", RequestsPerMinute: 6000}, nil)

	ta, err := c.GetTrendAnalysis(context.Background(), "gratitude journal", models.DefaultTimeframe(), "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ta == nil || ta.DataPoints != 12 || ta.Direction != models.DirectionRising {
		t.Fatalf("unexpected analysis %+v", ta)
	}
	if len(ta.RelatedQueries) != 2 || ta.RelatedQueries[0] != "gratitude journal for women" {
		t.Fatalf("unexpected related queries %v", ta.RelatedQueries)
	}
	if ta.Timeframe != string(models.Timeframe12Months) {
		t.Fatalf("unexpected timeframe %s", ta.Timeframe)
	}
}

func TestGetTrendAnalysisNoData(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL, RequestsPerMinute: 6000}, nil)

	ta, err := c.GetTrendAnalysis(context.Background(), "unknown", models.DefaultTimeframe(), "US")
	if err != nil || ta != nil {
		t.Fatalf("expected no data, got %+v, %v", ta, err)
	}
}

func TestGetTrendHistory(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL, RequestsPerMinute: 6000}, nil)

	pts, err := c.GetTrendHistory(context.Background(), "journal", models.HistoryTimeframe(), "US")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(pts) != 12 || pts[0].Score != 40 || pts[11].Date.Month() != time.December {
		t.Fatalf("unexpected history %+v", pts)
	}
}

func TestServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL, RequestsPerMinute: 6000}, nil)
	if _, err := c.GetTrendAnalysis(context.Background(), "journal", models.DefaultTimeframe(), "US"); err == nil {
		t.Fatalf("expected error")
	}
}
