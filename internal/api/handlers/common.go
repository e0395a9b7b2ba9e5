package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"spain-energy/internal/analysis"
	"spain-energy/internal/api/models"
	"spain-energy/internal/config"
	"spain-energy/internal/model"
	"spain-energy/internal/pipeline"
	"spain-energy/internal/strategy"
	"spain-energy/internal/timeutil"
)

// Defaults are the request defaults taken from configuration.
type Defaults struct {
	Market      string
	StrikePrice float64
	Inflation   model.Inflation
	Battery     model.BatterySpec
	Cycles      []strategy.Cycle
}

// errRequest marks validation failures of the request itself.
var errRequest = errors.New("invalid request")

func requestErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errRequest, fmt.Sprintf(format, args...))
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// respondAnalysisError maps service errors onto the error envelope.
func respondAnalysisError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, errRequest), errors.Is(err, analysis.ErrTooManyBins):
		respondError(c, http.StatusBadRequest, models.CodeInvalidRequest, err.Error())
	case errors.Is(err, pipeline.ErrUnknownMarket):
		respondError(c, http.StatusNotFound, models.CodeUnknownMarket, err.Error())
	case errors.Is(err, pipeline.ErrUnknownProfile):
		respondError(c, http.StatusNotFound, models.CodeNotFound, err.Error())
	case errors.Is(err, strategy.ErrInvalidBatteryConfiguration), errors.Is(err, model.ErrInvalidBattery):
		respondError(c, http.StatusBadRequest, models.CodeInvalidConfig, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, models.CodeAnalysisError, err.Error())
	}
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := timeutil.ParseDate(s)
	if err != nil {
		return time.Time{}, requestErr("%s must be in YYYY-MM-DD format", field)
	}
	return d, nil
}

func parseGrouping(s string, def analysis.Grouping) (analysis.Grouping, error) {
	if s == "" {
		return def, nil
	}
	g, err := analysis.ParseGrouping(s)
	if err != nil {
		return "", requestErr("%v", err)
	}
	return g, nil
}

func (d Defaults) selection(market, start, end, profile string, rate *float64, base string) (model.Selection, error) {
	sel := model.Selection{Market: market, Profile: profile, Inflation: d.Inflation}
	if sel.Market == "" {
		sel.Market = d.Market
	}
	var err error
	if sel.Start, err = parseDate("start", start); err != nil {
		return model.Selection{}, err
	}
	if sel.End, err = parseDate("end", end); err != nil {
		return model.Selection{}, err
	}
	if !sel.Start.IsZero() && !sel.End.IsZero() && sel.End.Before(sel.Start) {
		return model.Selection{}, requestErr("end must not be before start")
	}
	if rate != nil {
		sel.Inflation = model.Inflation{Rate: *rate}
	}
	if base != "" {
		if sel.Inflation.BaseDate, err = parseDate("inflation base date", base); err != nil {
			return model.Selection{}, err
		}
	}
	if sel.Inflation.Rate <= -1 {
		return model.Selection{}, requestErr("inflation rate must be > -1")
	}
	return sel, nil
}

// SelectionFromQuery builds a selection from query parameters.
func (d Defaults) SelectionFromQuery(q models.SelectionQuery) (model.Selection, error) {
	return d.selection(q.Market, q.Start, q.End, q.Profile, q.InflationRate, q.InflationBase)
}

// SelectionFromBody builds a selection from a JSON body.
func (d Defaults) SelectionFromBody(b models.SelectionBody) (model.Selection, error) {
	var rate *float64
	base := ""
	if b.Inflation != nil {
		rate = &b.Inflation.Rate
		base = b.Inflation.BaseDate
	}
	return d.selection(b.Market, b.Start, b.End, b.Profile, rate, base)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// fallbackBattery and fallbackCycles apply when the configuration leaves the
// battery and schedule unset.
var (
	fallbackBattery = model.BatterySpec{PowerMW: 1, DurationHours: 4, Efficiency: 0.9}
	fallbackCycles  = []strategy.Cycle{{Charge: timeutil.MustClock("10:00"), Discharge: timeutil.MustClock("19:00")}}
)

// DefaultsFromConfig derives request defaults from a validated configuration.
func DefaultsFromConfig(cfg *config.Config) (Defaults, error) {
	inflation, err := cfg.Inflation.Model()
	if err != nil {
		return Defaults{}, err
	}
	d := Defaults{
		Market:      cfg.Markets.Default,
		StrikePrice: cfg.PPA.StrikePrice,
		Inflation:   inflation,
		Battery:     fallbackBattery,
		Cycles:      fallbackCycles,
	}
	if cfg.Battery != (config.BatteryConfig{}) {
		d.Battery = cfg.Battery.ToSpec()
	}
	if cycles := cfg.Schedule.Cycles(); len(cycles) > 0 {
		d.Cycles = cycles
	}
	return d, nil
}
