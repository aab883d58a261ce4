package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"nichescope/internal/domain/models"
	"nichescope/internal/service/ratelimit"
	"nichescope/internal/usecase"
	xhttp "nichescope/pkg/http"
	xlogger "nichescope/pkg/logger"
)

const maxReportsLimit = 100

// NichesHandler serves the evaluation, stress-test and analysis endpoints.
type NichesHandler struct {
	logger *xlogger.Logger
	svc    *usecase.NicheService
	rl     *ratelimit.Limiter
}

// NewNichesHandler creates the handler. rl may be nil to disable per-client limits.
func NewNichesHandler(logger *xlogger.Logger, svc *usecase.NicheService, rl *ratelimit.Limiter) *NichesHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &NichesHandler{logger: logger, svc: svc, rl: rl}
}

func (h *NichesHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	heavy := g.Group("")
	if h.rl != nil {
		heavy.Use(h.rl.Middleware())
	}
	heavy.POST("/niches/evaluate", h.Evaluate)
	heavy.POST("/niches/stress-test", h.StressTest)
	heavy.POST("/trends/validate", h.ValidateTrend)
	heavy.POST("/competitors/analyze", h.AnalyzeCompetitors)
	heavy.POST("/listings/generate", h.GenerateListing)

	g.POST("/keywords/expand", h.ExpandKeywords)
	g.GET("/scenarios", h.Scenarios)
	g.GET("/reports/stress", h.StressReports)

	ws := e.Group("/ws")
	if h.rl != nil {
		ws.Use(h.rl.Middleware())
	}
	ws.GET("/evaluate", h.EvaluateStream)
}

func (h *NichesHandler) Evaluate(c echo.Context) error {
	req := h.svc.NewEvaluateRequest()
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.svc.Evaluate(c.Request().Context(), *req, nil)
	if err != nil {
		return h.errorResponse(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

type queuedResponse struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}

func (h *NichesHandler) StressTest(c echo.Context) error {
	req := &models.StressTestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	if req.Async {
		id, err := h.svc.EnqueueStressTest(ctx, *req)
		if err != nil {
			return h.errorResponse(c, "stress_test_enqueue", err)
		}
		return xhttp.DataResponse(c, http.StatusAccepted, queuedResponse{ReportID: id, Status: "queued"})
	}

	report, err := h.svc.StressTest(ctx, *req)
	if errors.Is(err, models.ErrNoUsableScenarios) && report != nil {
		h.logger.Warn("stress test without usable scenarios", xlogger.String("niche", report.NicheKeyword))
		return xhttp.DataResponse(c, http.StatusUnprocessableEntity, report)
	}
	if err != nil {
		return h.errorResponse(c, "stress_test", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *NichesHandler) ExpandKeywords(c echo.Context) error {
	req := &models.ExpandRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	keywords := h.svc.ExpandKeywords(*req)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"base_keywords":     req.Keywords,
		"expanded_keywords": keywords,
		"total_count":       len(keywords),
	})
}

func (h *NichesHandler) ValidateTrend(c echo.Context) error {
	req := &models.TrendValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.svc.ValidateTrend(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, "validate_trend", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *NichesHandler) AnalyzeCompetitors(c echo.Context) error {
	req := &models.CompetitorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.svc.AnalyzeCompetitors(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, "analyze_competitors", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *NichesHandler) GenerateListing(c echo.Context) error {
	req := &models.ListingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.svc.GenerateListing(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, "generate_listing", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Scenarios lists the built-in scenarios, or only those named in ?names=a,b.
func (h *NichesHandler) Scenarios(c echo.Context) error {
	names := xhttp.QueryList(c, "names")
	if len(names) == 0 {
		c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
		return xhttp.SuccessResponse(c, h.svc.Scenarios())
	}
	scenarios, err := usecase.ResolveScenarios(names, nil)
	if err != nil {
		return h.errorResponse(c, "scenarios", err)
	}
	return xhttp.SuccessResponse(c, scenarios)
}

func (h *NichesHandler) StressReports(c echo.Context) error {
	limit := xhttp.QueryInt(c, "limit", 20)
	if limit <= 0 || limit > maxReportsLimit {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("limit must be within 1..%d", maxReportsLimit))
	}
	rows, err := h.svc.RecentStressReports(c.Request().Context(), strings.TrimSpace(c.QueryParam("keyword")), limit)
	if err != nil {
		return h.errorResponse(c, "stress_reports", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *NichesHandler) Health(c echo.Context) error {
	if err := h.svc.Health(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
	}
	out := map[string]interface{}{"status": "ok"}
	if st, ok, err := h.svc.QueueStats(c.Request().Context()); ok {
		if err != nil {
			h.logger.Warn("queue stats failed", xlogger.Error(err))
		} else {
			out["queue"] = st
		}
	}
	return xhttp.SuccessResponse(c, out)
}

// errorResponse maps engine errors onto the response envelope.
func (h *NichesHandler) errorResponse(c echo.Context, op string, err error) error {
	if appErr := toAppError(err); appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

// toAppError returns nil for errors that are not the caller's fault.
func toAppError(err error) *xhttp.AppError {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return xhttp.NewAppError(xhttp.CodeValidation, verr.Field, verr.Error(), http.StatusBadRequest).
			WithParam("reason", verr.Reason).
			WithError(err)
	case errors.Is(err, models.ErrUnknownScenario), errors.Is(err, models.ErrInvalidCompetition), errors.Is(err, models.ErrInvalidListing):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrNicheNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrNoUsableScenarios):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrAsyncUnavailable):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	}
	return nil
}

var _ xhttp.Handler = (*NichesHandler)(nil)
