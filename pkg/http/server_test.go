package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		var body map[string]interface{}
		if err := c.Bind(&body); err != nil {
			return err
		}
		return SuccessResponse(c, body)
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("scorer exploded")
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("niche not found").WithParam("keyword", "bird journal"))
	})
}

func newTestServer(opts ...ServerOption) *Server {
	opts = append([]ServerOption{WithMetrics(true, 0, prometheus.NewRegistry())}, opts...)
	return NewServer(routes{}, opts...)
}

func TestServerAssignsRequestIDAndCORS(t *testing.T) {
	s := newTestServer(WithCORS("https://app.example"))
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"k":"v"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderOrigin, "https://app.example")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("missing request id")
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "https://app.example" {
		t.Fatalf("missing CORS header, got %v", rec.Header())
	}
}

func TestServerBodyLimit(t *testing.T) {
	s := newTestServer(WithBodyLimit("16B"))
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"keyword":"`+strings.Repeat("x", 64)+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestServerRecoversPanics(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 envelope, got %d %+v", rec.Code, resp)
	}
}

func TestAppErrorEnvelope(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var resp struct {
		Status int         `json:"status"`
		Data   []*AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusNotFound || len(resp.Data) != 1 || resp.Data[0].Params["keyword"] != "bird journal" {
		t.Fatalf("unexpected envelope %+v", resp)
	}
}
