package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/analysis"
	"spain-energy/internal/api/models"
	"spain-energy/internal/backtest"
	"spain-energy/internal/config"
	"spain-energy/internal/data"
	"spain-energy/internal/model"
	"spain-energy/internal/observability/metrics"
	"spain-energy/internal/pipeline"
	"spain-energy/internal/report"
	"spain-energy/internal/strategy"
	"spain-energy/internal/timeutil"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
	csvContentType  = "text/csv"
)

// BacktestHandler runs scheduled BESS dispatch and serves cached ledgers
type BacktestHandler struct {
	svc       *pipeline.Service
	cache     *data.RunCache
	batteries *BatteryHandler
	defaults  Defaults
	logger    *slog.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(svc *pipeline.Service, cache *data.RunCache, batteries *BatteryHandler, defaults Defaults, logger *slog.Logger) *BacktestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BacktestHandler{svc: svc, cache: cache, batteries: batteries, defaults: defaults, logger: logger}
}

// cachedRunKey is what identifies a run for reuse. Prices is the digest of
// the loaded series, so a re-import or a new inflation base day misses.
type cachedRunKey struct {
	Selection model.Selection
	Battery   model.BatterySpec
	Cycles    []strategy.Cycle
	Prices    string
}

// RunBESS handles POST /api/v1/bess
func (h *BacktestHandler) RunBESS(c *gin.Context) {
	var req models.BESSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error())
		return
	}
	sel, err := h.defaults.SelectionFromBody(req.Selection)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	g, err := parseGrouping(req.Grouping, analysis.ByCalendarMonth)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	run, err := h.run(c.Request.Context(), sel, req.Config)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.buildResponse(run, sel, g, req.IncludeLedger))
}

// CompareBESS handles POST /api/v1/bess/compare
func (h *BacktestHandler) CompareBESS(c *gin.Context) {
	var req models.CompareBESSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error())
		return
	}
	sel, err := h.defaults.SelectionFromBody(req.Selection)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	comparison := make([]models.ComparisonResult, 0, len(req.Variations))
	for _, v := range req.Variations {
		run, err := h.run(c.Request.Context(), sel, mergeBESSConfig(req.BaseConfig, v.Config))
		if err != nil {
			respondAnalysisError(c, fmt.Errorf("variation %q: %w", v.Name, err))
			return
		}
		comparison = append(comparison, models.ComparisonResult{
			Name:    v.Name,
			ID:      run.ID,
			Battery: specsFromModel(run.Result.Battery),
			Metrics: run.Metrics,
		})
	}
	c.JSON(http.StatusOK, models.CompareBESSResponse{Comparison: comparison})
}

// GetLedger handles GET /api/v1/bess/:id/ledger?format=json|csv|xlsx
func (h *BacktestHandler) GetLedger(c *gin.Context) {
	run, ok := h.cached(c)
	if !ok {
		return
	}
	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		c.JSON(http.StatusOK, gin.H{"id": run.ID, "ledger": run.Result.Ledger})
	case "csv":
		var buf bytes.Buffer
		err := backtest.EncodeLedgerCSV(&buf, run.Result.Ledger)
		metrics.IncExport(format, err)
		if err != nil {
			respondAnalysisError(c, err)
			return
		}
		attachment(c, run.ID+".csv", csvContentType, buf.Bytes())
	case "xlsx":
		raw, err := report.BuildBESSXLSX(run.Result, run.Metrics)
		metrics.IncExport(format, err)
		if err != nil {
			respondAnalysisError(c, err)
			return
		}
		attachment(c, run.ID+".xlsx", xlsxContentType, raw)
	default:
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, "format must be json, csv or xlsx")
	}
}

// GetReport handles GET /api/v1/bess/:id/report.pdf
func (h *BacktestHandler) GetReport(c *gin.Context) {
	run, ok := h.cached(c)
	if !ok {
		return
	}
	raw, err := report.BuildBESSPDF(run.Result.Market, run.Result, run.Metrics)
	metrics.IncExport("pdf", err)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	attachment(c, run.ID+".pdf", pdfContentType, raw)
}

func (h *BacktestHandler) cached(c *gin.Context) (*data.CachedRun, bool) {
	id := c.Param("id")
	run, ok := h.cache.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, models.CodeNotFound, fmt.Sprintf("no run with id %q (runs expire after a while)", id))
		return nil, false
	}
	return run, true
}

// run resolves the configuration and loads prices, reuses a cached run with
// identical inputs when there is one, and otherwise simulates and caches.
func (h *BacktestHandler) run(ctx context.Context, sel model.Selection, cfg models.BESSConfig) (*data.CachedRun, error) {
	spec, cycles, err := h.resolveConfig(cfg)
	if err != nil {
		return nil, err
	}
	in, err := h.svc.PrepareBESS(ctx, sel, spec, cycles)
	if err != nil {
		return nil, err
	}
	key, err := data.Fingerprint(cachedRunKey{Selection: sel, Battery: spec, Cycles: cycles, Prices: in.Digest})
	if err != nil {
		return nil, err
	}
	if run, ok := h.cache.Lookup(key); ok {
		h.logger.Debug("reusing cached run", "id", run.ID)
		return run, nil
	}
	res, err := h.svc.Simulate(in)
	if err != nil {
		return nil, err
	}
	return h.cache.Put(key, res.Result, res.Metrics), nil
}

// resolveConfig layers defaults, then the preset, then explicit fields.
func (h *BacktestHandler) resolveConfig(cfg models.BESSConfig) (model.BatterySpec, []strategy.Cycle, error) {
	battery := config.BatteryConfig{
		PowerMW:       h.defaults.Battery.PowerMW,
		DurationHours: h.defaults.Battery.DurationHours,
		Efficiency:    h.defaults.Battery.Efficiency,
	}
	if cfg.BatteryID != "" {
		if h.batteries == nil {
			return model.BatterySpec{}, nil, requestErr("battery presets are not configured")
		}
		preset, err := h.batteries.Preset(cfg.BatteryID)
		if err != nil {
			return model.BatterySpec{}, nil, err
		}
		battery = config.MergeBattery(battery, preset)
	}
	battery = config.MergeBattery(battery, config.BatteryConfig{
		Name:          cfg.Battery.Name,
		PowerMW:       cfg.Battery.PowerMW,
		DurationHours: cfg.Battery.DurationHours,
		Efficiency:    cfg.Battery.Efficiency,
	})

	cycles := h.defaults.Cycles
	if len(cfg.Cycles) > 0 {
		cycles = make([]strategy.Cycle, 0, len(cfg.Cycles))
		for i, cc := range cfg.Cycles {
			charge, err := timeutil.ParseClock(cc.Charge)
			if err != nil {
				return model.BatterySpec{}, nil, requestErr("cycle %d charge: %v", i+1, err)
			}
			discharge, err := timeutil.ParseClock(cc.Discharge)
			if err != nil {
				return model.BatterySpec{}, nil, requestErr("cycle %d discharge: %v", i+1, err)
			}
			cycles = append(cycles, strategy.Cycle{Charge: charge, Discharge: discharge})
		}
	}
	return battery.ToSpec(), cycles, nil
}

func (h *BacktestHandler) buildResponse(run *data.CachedRun, sel model.Selection, g analysis.Grouping, includeLedger bool) models.BESSResponse {
	charge, discharge := backtest.DailyWindows(run.Result)
	resp := models.BESSResponse{
		ID:               run.ID,
		Status:           "completed",
		Market:           sel.Market,
		Resolution:       string(run.Result.Resolution),
		Battery:          specsFromModel(run.Result.Battery),
		Metrics:          run.Metrics,
		Grouping:         g,
		Spreads:          backtest.SpreadsBy(run.Result.Ledger, g),
		ChargeWindows:    charge,
		DischargeWindows: discharge,
	}
	if includeLedger {
		resp.Ledger = run.Result.Ledger
	}
	return resp
}

// mergeBESSConfig overlays a variation on the base configuration.
func mergeBESSConfig(base, override models.BESSConfig) models.BESSConfig {
	out := base
	if override.BatteryID != "" {
		out.BatteryID = override.BatteryID
	}
	merged := config.MergeBattery(
		config.BatteryConfig(base.Battery),
		config.BatteryConfig(override.Battery),
	)
	out.Battery = models.BatteryConfig(merged)
	if len(override.Cycles) > 0 {
		out.Cycles = override.Cycles
	}
	return out
}

func specsFromModel(s model.BatterySpec) models.BatterySpecs {
	return models.BatterySpecs{
		PowerMW:       s.PowerMW,
		DurationHours: s.DurationHours,
		CapacityMWh:   s.CapacityMWh(),
		Efficiency:    s.Efficiency,
	}
}

func attachment(c *gin.Context, filename, contentType string, raw []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, raw)
}
