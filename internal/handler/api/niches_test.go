package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"nichescope/internal/domain/models"
	"nichescope/internal/repository"
	"nichescope/internal/service/ratelimit"
	"nichescope/internal/services/analytics"
	"nichescope/internal/usecase"
	"nichescope/pkg/metrics"
)

type staticTrends map[string]*models.TrendAnalysis

func (s staticTrends) GetTrendAnalysis(_ context.Context, kw string, _ models.Timeframe, _ string) (*models.TrendAnalysis, error) {
	return s[kw], nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, rl *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	ta, err := models.NewTrendAnalysis(models.TrendAnalysisInput{
		Keyword: "gratitude journal", Score: 80, Direction: models.DirectionRising,
		Confidence: 0.9, DataPoints: 52, Volatility: 10,
	})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	trends := staticTrends{"gratitude journal": ta}
	cfg := usecase.DefaultEngineConfig()
	cfg.BatchDelay = 0
	scorer, err := analytics.NewNicheScorer(models.DefaultScoringWeights())
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	engine := usecase.NewNicheEngine(cfg, trends, nil,
		analytics.NewKeywordExpander(),
		analytics.NewCompetitiveAnalyzer(),
		scorer,
		analytics.NewStressTester(),
	)
	niche, err := models.NewNiche(models.NicheInput{
		PrimaryKeyword: "habit tracker",
		Keywords:       []string{"habit tracker"},
	}, models.NicheScores{Competition: 25, Profitability: 72, MarketSize: 60, Confidence: 75})
	if err != nil {
		t.Fatalf("niche: %v", err)
	}
	store := repository.NewMemoryReportStore(10)
	svc := usecase.NewNicheService(usecase.ServiceDeps{
		Engine:    engine,
		Source:    usecase.NewFixtureNicheSource(niche),
		Trends:    trends,
		Expander:  analytics.NewKeywordExpander(),
		Validator: analytics.NewTrendValidator(),
		Analyzer:  analytics.NewCompetitiveAnalyzer(),
		Store:     store,
		Sink:      usecase.NewReportCollector(usecase.NewReportProcessor(store, nil, metrics.Nop{}), metrics.Nop{}, nil),
	})
	e := echo.New()
	NewNichesHandler(nil, svc, rl).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return env
}

func TestEvaluateEndpoint(t *testing.T) {
	e := newTestServer(t, nil)

	env := do(t, e, http.MethodPost, "/api/niches/evaluate", `{"base_keywords": []}`)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty seeds, got %d", env.Status)
	}

	env = do(t, e, http.MethodPost, "/api/niches/evaluate", `{"base_keywords": ["journal"], "max_competition_level": "high"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", env.Status, env.Data)
	}
	var res models.EvaluationResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(res.Niches) != 1 || res.Niches[0].PrimaryKeyword != "gratitude journal" {
		t.Fatalf("unexpected niches %+v", res.Niches)
	}
}

func TestStressTestEndpoint(t *testing.T) {
	e := newTestServer(t, nil)

	cases := []struct {
		body string
		want int
	}{
		{`{"niche_keyword": "habit tracker"}`, http.StatusOK},
		{`{"niche_keyword": "missing"}`, http.StatusNotFound},
		{`{"niche_keyword": "habit tracker", "scenarios": ["meteor"]}`, http.StatusBadRequest},
		{`{"niche_keyword": "habit tracker", "async": true}`, http.StatusUnprocessableEntity},
		{`{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if env := do(t, e, http.MethodPost, "/api/niches/stress-test", tc.body); env.Status != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.body, tc.want, env.Status, env.Data)
		}
	}

	env := do(t, e, http.MethodGet, "/api/reports/stress?keyword=habit%20tracker", "")
	var list struct {
		Rows  []map[string]interface{} `json:"rows"`
		Total int64                    `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil || list.Total != 1 {
		t.Fatalf("expected one stored report, got %s (%v)", env.Data, err)
	}
	if env := do(t, e, http.MethodGet, "/api/reports/stress?limit=500", ""); env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit, got %d", env.Status)
	}
}

func TestScenariosAndHealth(t *testing.T) {
	e := newTestServer(t, nil)
	env := do(t, e, http.MethodGet, "/api/scenarios", "")
	var scenarios []models.ScenarioParameters
	if err := json.Unmarshal(env.Data, &scenarios); err != nil || len(scenarios) != 8 {
		t.Fatalf("expected 8 scenarios, got %s (%v)", env.Data, err)
	}
	env = do(t, e, http.MethodGet, "/api/scenarios?names=trend_reversal,Seasonal_Crash", "")
	if err := json.Unmarshal(env.Data, &scenarios); err != nil || len(scenarios) != 2 {
		t.Fatalf("expected 2 named scenarios, got %s (%v)", env.Data, err)
	}
	if env := do(t, e, http.MethodGet, "/api/scenarios?names=meteor", ""); env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown scenario, got %d", env.Status)
	}
	if env := do(t, e, http.MethodGet, "/healthz", ""); env.Status != http.StatusOK {
		t.Fatalf("expected healthy, got %d", env.Status)
	}
}

func TestExpandAndTrendEndpoints(t *testing.T) {
	e := newTestServer(t, nil)
	env := do(t, e, http.MethodPost, "/api/keywords/expand", `{"base_keywords": ["journal"], "max_combinations": 5}`)
	var out struct {
		Total int `json:"total_count"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil || out.Total != 5 {
		t.Fatalf("expected 5 keywords, got %s (%v)", env.Data, err)
	}
	if env := do(t, e, http.MethodPost, "/api/trends/validate", `{"keyword": "unknown"}`); env.Status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown trend, got %d", env.Status)
	}
	if env := do(t, e, http.MethodPost, "/api/trends/validate", `{"keyword": "gratitude journal", "timeframe": "today 1-d"}`); env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timeframe, got %d", env.Status)
	}
	if env := do(t, e, http.MethodPost, "/api/competitors/analyze", `{"keyword": "journal"}`); env.Status != http.StatusOK {
		t.Fatalf("expected estimate without product provider, got %d", env.Status)
	}
}

func TestGenerateListingEndpoint(t *testing.T) {
	e := newTestServer(t, nil)

	env := do(t, e, http.MethodPost, "/api/listings/generate", `{"niche_keyword": "habit tracker", "content_type": "Planner", "target_audience": "students"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", env.Status, env.Data)
	}
	var res models.ListingResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if res.Listing.ContentType != models.ContentPlanner || res.Listing.Audience != models.AudienceStudents {
		t.Fatalf("unexpected listing %+v", res.Listing)
	}
	if !strings.Contains(res.Listing.Title, "Habit Tracker") || len(res.Listing.Keywords) == 0 {
		t.Fatalf("unexpected listing %+v", res.Listing)
	}
	if res.Pricing == nil || res.Pricing.Recommended != 9.99 {
		t.Fatalf("expected default pricing without a product provider, got %+v", res.Pricing)
	}

	cases := []struct {
		body string
		want int
	}{
		{`{"niche_keyword": "habit tracker", "style": "loud"}`, http.StatusBadRequest},
		{`{"niche_keyword": "missing"}`, http.StatusNotFound},
		{`{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if env := do(t, e, http.MethodPost, "/api/listings/generate", tc.body); env.Status != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.body, tc.want, env.Status, env.Data)
		}
	}
}

func TestRateLimitedRoutes(t *testing.T) {
	e := newTestServer(t, ratelimit.New(1, 0))
	body := `{"niche_keyword": "habit tracker"}`
	if env := do(t, e, http.MethodPost, "/api/niches/stress-test", body); env.Status != http.StatusOK {
		t.Fatalf("first request should pass, got %d", env.Status)
	}
	if env := do(t, e, http.MethodPost, "/api/niches/stress-test", body); env.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", env.Status)
	}
	if env := do(t, e, http.MethodGet, "/api/scenarios", ""); env.Status != http.StatusOK {
		t.Fatalf("light routes are not limited, got %d", env.Status)
	}
}

func TestEvaluateStream(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/evaluate"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{"base_keywords": []string{"journal"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	progress := 0
	for {
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch ev.Type {
		case "progress":
			progress++
		case "result":
			if progress == 0 || ev.Result == nil || len(ev.Result.Niches) != 1 {
				t.Fatalf("unexpected result after %d progress events: %+v", progress, ev.Result)
			}
			return
		default:
			t.Fatalf("unexpected event %+v", ev)
		}
	}
}

func TestEvaluateStreamInvalidRequest(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/evaluate", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteJSON(map[string]interface{}{"base_keywords": []string{}})
	var ev streamEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != "error" || len(ev.Errors) == 0 {
		t.Fatalf("expected validation error event, got %+v", ev)
	}
}
