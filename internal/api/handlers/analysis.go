package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/analysis"
	"spain-energy/internal/api/models"
	"spain-energy/internal/model"
	"spain-energy/internal/observability/metrics"
	"spain-energy/internal/pipeline"
	"spain-energy/internal/report"
)

// AnalysisHandler serves the price and PV analyses
type AnalysisHandler struct {
	svc      *pipeline.Service
	defaults Defaults
}

func NewAnalysisHandler(svc *pipeline.Service, defaults Defaults) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, defaults: defaults}
}

func (h *AnalysisHandler) bindQuery(c *gin.Context, q interface{}, sq *models.SelectionQuery) (model.Selection, bool) {
	if err := c.ShouldBindQuery(q); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error())
		return model.Selection{}, false
	}
	sel, err := h.defaults.SelectionFromQuery(*sq)
	if err != nil {
		respondAnalysisError(c, err)
		return model.Selection{}, false
	}
	return sel, true
}

// PriceSummary handles GET /api/v1/prices/summary
func (h *AnalysisHandler) PriceSummary(c *gin.Context) {
	var q models.SelectionQuery
	sel, ok := h.bindQuery(c, &q, &q)
	if !ok {
		return
	}
	sum, err := h.svc.Summary(c.Request.Context(), sel)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Thresholds handles GET /api/v1/prices/thresholds
func (h *AnalysisHandler) Thresholds(c *gin.Context) {
	var q models.ThresholdQuery
	sel, ok := h.bindQuery(c, &q, &q.SelectionQuery)
	if !ok {
		return
	}
	g, err := parseGrouping(q.Grouping, analysis.ByCalendarMonth)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	res, err := h.svc.Thresholds(c.Request.Context(), sel, q.Threshold, g)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	out := models.ThresholdResponse{ThresholdResult: res}
	if q.BinWidth > 0 {
		if out.Histogram, err = h.svc.Histogram(c.Request.Context(), sel, q.Threshold, q.BinWidth); err != nil {
			respondAnalysisError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, out)
}

// CapturedPrices handles GET /api/v1/captured-prices
func (h *AnalysisHandler) CapturedPrices(c *gin.Context) {
	h.grouped(c, "Captured price", h.svc.CapturedPrices)
}

// CapturedFactors handles GET /api/v1/captured-factors
func (h *AnalysisHandler) CapturedFactors(c *gin.Context) {
	h.grouped(c, "Captured factor", h.svc.CapturedFactors)
}

type groupedFunc func(ctx context.Context, sel model.Selection, g analysis.Grouping) (pipeline.Grouped, error)

func (h *AnalysisHandler) grouped(c *gin.Context, title string, run groupedFunc) {
	var q models.SelectionQuery
	sel, ok := h.bindQuery(c, &q, &q)
	if !ok {
		return
	}
	if sel.Profile == "" {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, "profile query parameter is required")
		return
	}
	g, err := parseGrouping(q.Grouping, analysis.ByCalendarMonth)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	res, err := run(c.Request.Context(), sel, g)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	if c.Query("format") == "xlsx" {
		raw, err := report.BuildGroupedXLSX(title, g, res.Chart)
		metrics.IncExport("xlsx", err)
		if err != nil {
			respondAnalysisError(c, err)
			return
		}
		attachment(c, "grouped.xlsx", xlsxContentType, raw)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"market":  sel.Market,
		"profile": sel.Profile,
		"result":  res,
	})
}

// PPA handles POST /api/v1/ppa. format=xlsx|pdf returns a report instead of JSON.
func (h *AnalysisHandler) PPA(c *gin.Context) {
	var req models.PPARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error())
		return
	}
	sel, err := h.defaults.SelectionFromBody(req.Selection)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	if sel.Profile == "" {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, "selection.profile is required")
		return
	}
	strike := h.defaults.StrikePrice
	if req.StrikePrice != nil {
		strike = *req.StrikePrice
	}
	if strike < 0 {
		respondError(c, http.StatusBadRequest, models.CodeInvalidConfig, "strike_price must be >= 0")
		return
	}
	g, err := parseGrouping(req.Grouping, analysis.ByCalendarMonth)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	res, err := h.svc.PPA(c.Request.Context(), sel, strike, g)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	switch format := c.Query("format"); format {
	case "xlsx":
		raw, err := report.BuildPPAXLSX(res.Metrics, res.Monthly)
		metrics.IncExport(format, err)
		if err != nil {
			respondAnalysisError(c, err)
			return
		}
		attachment(c, "ppa.xlsx", xlsxContentType, raw)
		return
	case "pdf":
		raw, err := report.BuildPPAPDF(sel.Market, sel.Profile, res.Metrics, res.Monthly)
		metrics.IncExport(format, err)
		if err != nil {
			respondAnalysisError(c, err)
			return
		}
		attachment(c, "ppa.pdf", pdfContentType, raw)
		return
	}

	if !req.IncludeRows {
		res.Rows = nil
	}
	c.JSON(http.StatusOK, res)
}
