package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spain-energy/internal/api/handlers"
	"spain-energy/internal/data"
	"spain-energy/internal/model"
	"spain-energy/internal/pipeline"
	"spain-energy/internal/store"
	"spain-energy/internal/strategy"
	"spain-energy/internal/timeutil"
)

func ptr(v float64) *float64 { return &v }

func dayPrices(date string, base float64) []model.RawPriceRow {
	rows := make([]model.RawPriceRow, 0, 24)
	for h := 0; h < 24; h++ {
		rows = append(rows, model.RawPriceRow{
			Timestamp: fmt.Sprintf("%s %02d:00:00", date, h),
			Price:     ptr(base + float64(h)),
		})
	}
	return rows
}

func noonProfile() []model.RawPVRow {
	var rows []model.RawPVRow
	for d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		for h := 0; h < 24; h++ {
			out := 0.0
			if h == 12 || h == 13 {
				out = 1
			}
			rows = append(rows, model.RawPVRow{Month: int(d.Month()), Day: d.Day(), Hour: h, Output: ptr(out)})
		}
	}
	return rows
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	r, _ := setupRouterWithRepo(t)
	return r
}

func setupRouterWithRepo(t *testing.T) (*gin.Engine, *store.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := store.New(filepath.Join(t.TempDir(), "energy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	_, err = repo.SavePrices(ctx, "omie_da", append(dayPrices("2025-06-01", 10), dayPrices("2025-06-02", 20)...))
	require.NoError(t, err)
	_, err = repo.SavePVProfile(ctx, "noon", noonProfile())
	require.NoError(t, err)

	batteryDir := t.TempDir()
	preset := "battery:\n  name: test\n  power_mw: 1\n  duration_hours: 2\n  efficiency: 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(batteryDir, "test_1mw.yaml"), []byte(preset), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := data.NewRunCache(time.Hour)
	t.Cleanup(cache.Close)

	r := NewRouter(Deps{
		Service: pipeline.New(repo, repo, pipeline.WithLogger(logger)),
		Cache:   cache,
		Defaults: handlers.Defaults{
			Market:      "omie_da",
			StrikePrice: 50,
			Battery:     model.BatterySpec{PowerMW: 1, DurationHours: 2, Efficiency: 0.9},
			Cycles:      []strategy.Cycle{{Charge: timeutil.MustClock("00:00"), Discharge: timeutil.MustClock("22:00")}},
		},
		BatteryDir:     batteryDir,
		AllowedOrigins: []string{"*"},
		Logger:         logger,
	})
	return r, repo
}

func do(t *testing.T, r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestRouter_HealthAndDatasets(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/markets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var markets struct {
		Markets []struct {
			ID string `json:"id"`
		} `json:"markets"`
	}
	decode(t, w, &markets)
	require.Len(t, markets.Markets, 1)
	assert.Equal(t, "omie_da", markets.Markets[0].ID)

	w = do(t, r, http.MethodGet, "/api/v1/profiles/noon/typical-day", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var typical struct {
		Hours []struct {
			Value float64 `json:"value"`
		} `json:"hours"`
	}
	decode(t, w, &typical)
	assert.Len(t, typical.Hours, 24)

	w = do(t, r, http.MethodGet, "/api/v1/batteries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_1mw")

	w = do(t, r, http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CapturedPrices(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/captured-prices?profile=noon", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Result struct {
			Overall float64 `json:"overall"`
			Chart   []struct {
				Value float64 `json:"value"`
			} `json:"chart"`
		} `json:"result"`
	}
	decode(t, w, &body)
	assert.InDelta(t, 27.5, body.Result.Overall, 1e-9)
	assert.Len(t, body.Result.Chart, 12)

	w = do(t, r, http.MethodGet, "/api/v1/captured-factors", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/captured-prices?profile=noon&market=nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	var eb errorBody
	decode(t, w, &eb)
	assert.Equal(t, "UNKNOWN_MARKET", eb.Error.Code)

	w = do(t, r, http.MethodGet, "/api/v1/captured-prices?profile=noon&start=2025-13-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/captured-prices?profile=noon&format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "grouped.xlsx")
}

func TestRouter_Thresholds(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/prices/thresholds?threshold=15&bin_width=10", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Hours     int               `json:"hours"`
		Histogram []json.RawMessage `json:"histogram"`
	}
	decode(t, w, &body)
	assert.Equal(t, 6, body.Hours)
	assert.NotEmpty(t, body.Histogram)

	for _, width := range []string{"-1", "0.001"} {
		w = do(t, r, http.MethodGet, "/api/v1/prices/thresholds?threshold=15&bin_width="+width, nil)
		require.Equal(t, http.StatusBadRequest, w.Code, width)
		var eb errorBody
		decode(t, w, &eb)
		assert.Equal(t, "INVALID_REQUEST", eb.Error.Code, width)
	}
}

func TestRouter_PPA(t *testing.T) {
	r := setupRouter(t)

	req := gin.H{"selection": gin.H{"market": "omie_da", "profile": "noon"}}
	w := do(t, r, http.MethodPost, "/api/v1/ppa", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Rows    []json.RawMessage `json:"rows"`
		Metrics struct {
			TotalGeneration float64 `json:"total_generation_mwh"`
			TotalRevenue    float64 `json:"total_revenue"`
			EffectivePrice  float64 `json:"effective_price"`
		} `json:"metrics"`
	}
	decode(t, w, &body)
	assert.Empty(t, body.Rows)
	assert.InDelta(t, 4, body.Metrics.TotalGeneration, 1e-9)
	assert.InDelta(t, 200, body.Metrics.TotalRevenue, 1e-9)
	assert.InDelta(t, 50, body.Metrics.EffectivePrice, 1e-9)

	w = do(t, r, http.MethodPost, "/api/v1/ppa", gin.H{"selection": gin.H{"market": "omie_da", "profile": "noon"}, "strike_price": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/ppa", gin.H{"selection": gin.H{"market": "omie_da", "profile": "ghost"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/ppa?format=pdf", req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

type bessBody struct {
	ID      string `json:"id"`
	Metrics struct {
		TotalRevenue float64 `json:"total_revenue"`
		TotalCycles  int     `json:"total_cycles"`
	} `json:"metrics"`
	Spreads []json.RawMessage `json:"spreads"`
	Ledger  []json.RawMessage `json:"ledger"`
}

func TestRouter_BESSRunAndExports(t *testing.T) {
	r := setupRouter(t)

	req := gin.H{
		"selection":      gin.H{"market": "omie_da"},
		"config":         gin.H{"battery_id": "test_1mw"},
		"include_ledger": true,
	}
	w := do(t, r, http.MethodPost, "/api/v1/bess", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first bessBody
	decode(t, w, &first)
	require.NotEmpty(t, first.ID)
	assert.InDelta(t, 88, first.Metrics.TotalRevenue, 1e-9)
	assert.Equal(t, 2, first.Metrics.TotalCycles)
	assert.Len(t, first.Spreads, 12)
	assert.Len(t, first.Ledger, 48)

	// identical request reuses the cached run
	w = do(t, r, http.MethodPost, "/api/v1/bess", req)
	require.Equal(t, http.StatusOK, w.Code)
	var second bessBody
	decode(t, w, &second)
	assert.Equal(t, first.ID, second.ID)

	w = do(t, r, http.MethodGet, "/api/v1/bess/"+first.ID+"/ledger?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Len(t, strings.Split(strings.TrimSpace(w.Body.String()), "\n"), 49)

	w = do(t, r, http.MethodGet, "/api/v1/bess/"+first.ID+"/ledger?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())

	w = do(t, r, http.MethodGet, "/api/v1/bess/"+first.ID+"/ledger?format=yaml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/bess/"+first.ID+"/report.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = do(t, r, http.MethodGet, "/api/v1/bess/missing/ledger", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	var eb errorBody
	decode(t, w, &eb)
	assert.Equal(t, "NOT_FOUND", eb.Error.Code)
}

func TestRouter_BESSReimportMissesCache(t *testing.T) {
	r, repo := setupRouterWithRepo(t)

	req := gin.H{"selection": gin.H{"market": "omie_da"}, "config": gin.H{"battery_id": "test_1mw"}}
	w := do(t, r, http.MethodPost, "/api/v1/bess", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first bessBody
	decode(t, w, &first)
	assert.InDelta(t, 88, first.Metrics.TotalRevenue, 1e-9)

	_, err := repo.SavePrices(context.Background(), "omie_da", []model.RawPriceRow{
		{Timestamp: "2025-06-02 22:00:00", Price: ptr(100)},
	})
	require.NoError(t, err)

	w = do(t, r, http.MethodPost, "/api/v1/bess", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second bessBody
	decode(t, w, &second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.InDelta(t, 146, second.Metrics.TotalRevenue, 1e-9)
}

func TestRouter_BESSInvalidConfig(t *testing.T) {
	r := setupRouter(t)

	overlap := gin.H{
		"selection": gin.H{"market": "omie_da"},
		"config": gin.H{"cycles": []gin.H{
			{"charge": "08:00", "discharge": "12:00"},
			{"charge": "10:00", "discharge": "14:00"},
		}},
	}
	w := do(t, r, http.MethodPost, "/api/v1/bess", overlap)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	var eb errorBody
	decode(t, w, &eb)
	assert.Equal(t, "INVALID_CONFIG", eb.Error.Code)

	w = do(t, r, http.MethodPost, "/api/v1/bess", gin.H{
		"selection": gin.H{"market": "omie_da"},
		"config":    gin.H{"cycles": []gin.H{{"charge": "25:00", "discharge": "12:00"}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/bess", gin.H{
		"selection": gin.H{"market": "omie_da"},
		"config":    gin.H{"battery_id": "../secrets"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CompareBESS(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/bess/compare", gin.H{
		"selection":   gin.H{"market": "omie_da"},
		"base_config": gin.H{"battery": gin.H{"power_mw": 1, "duration_hours": 2, "efficiency": 1}},
		"variations": []gin.H{
			{"name": "1MW", "config": gin.H{}},
			{"name": "2MW", "config": gin.H{"battery": gin.H{"power_mw": 2}}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Comparison []struct {
			Name    string `json:"name"`
			Metrics struct {
				TotalRevenue float64 `json:"total_revenue"`
			} `json:"metrics"`
		} `json:"comparison"`
	}
	decode(t, w, &body)
	require.Len(t, body.Comparison, 2)
	assert.InDelta(t, 88, body.Comparison[0].Metrics.TotalRevenue, 1e-9)
	assert.InDelta(t, 176, body.Comparison[1].Metrics.TotalRevenue, 1e-9)

	w = do(t, r, http.MethodPost, "/api/v1/bess/compare", gin.H{"selection": gin.H{}, "variations": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Rank(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/profiles/rank", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Rankings []struct {
			Rank    int    `json:"rank"`
			Profile string `json:"profile"`
		} `json:"rankings"`
	}
	decode(t, w, &body)
	require.Len(t, body.Rankings, 1)
	assert.Equal(t, "noon", body.Rankings[0].Profile)
}
