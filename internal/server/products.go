package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shoplens/shoplens/internal/identity"
	"github.com/shoplens/shoplens/internal/orchestrator"
	"github.com/shoplens/shoplens/models"
)

type ProductsHandler struct {
	Orch *orchestrator.Orchestrator
}

func (h *ProductsHandler) Register(g *echo.Group, secret []byte) {
	if len(secret) > 0 {
		g.Use(authMiddleware(secret))
	}
	g.POST("/analyze", h.analyze)
	g.GET("/platforms", h.platforms)
}

func (h *ProductsHandler) analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	opts := models.AnalyzeOptions{IncludePriceComparison: true, IncludeWebSearch: true}
	if req.IncludePriceComparison != nil {
		opts.IncludePriceComparison = *req.IncludePriceComparison
	}
	if req.IncludeWebSearch != nil {
		opts.IncludeWebSearch = *req.IncludeWebSearch
	}

	res, err := h.Orch.Analyze(c.Request().Context(), req.URL, opts)
	switch {
	case errors.Is(err, models.ErrInvalidURL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrScrapeFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := AnalyzeResponse{
		Success: true,
		Tier:    string(res.Tier),
	}
	if !res.Record.Key.IsZero() {
		resp.Product = res.Record
	}
	if res.AnalysisErr != nil {
		resp.Message = "product data collected, analysis temporarily unavailable"
	} else {
		resp.Analysis = &AnalysisPayload{
			Report:  res.ReportText,
			Pros:    res.Findings.Pros,
			Cons:    res.Findings.Cons,
			Verdict: res.Findings.Verdict,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) platforms(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"platforms": identity.SupportedPlatforms()})
}
