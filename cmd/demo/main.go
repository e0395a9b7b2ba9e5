package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"spain-energy/internal/analysis"
	"spain-energy/internal/backtest"
	"spain-energy/internal/config"
	"spain-energy/internal/model"
	"spain-energy/internal/pipeline"
	"spain-energy/internal/store"
	"spain-energy/internal/strategy"
	"spain-energy/internal/timeutil"
)

const (
	demoMarket   = "omie_da"
	demoForecast = "forecast_central"
	demoProfile  = "demo_fixed_tilt"
)

// Demo:
// - Generate one synthetic year of hourly prices and a PV profile
// - Store them in a throwaway sqlite file
// - Run every analysis through the pipeline and print the headline numbers
func main() {
	year := flag.Int("year", 2024, "Year of the synthetic price series")
	cfgPath := flag.String("config", "", "Path to YAML config (optional; battery, schedule and ppa are used)")
	outCSV := flag.String("out", "", "Optional path to write ledger CSV (e.g. results/demo_ledger.csv)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	// Defaults (can be overridden via --config).
	spec := model.BatterySpec{PowerMW: 1, DurationHours: 4, Efficiency: 0.88}
	cycles := []strategy.Cycle{{Charge: timeutil.MustClock("10:00"), Discharge: timeutil.MustClock("19:00")}}
	strike := 45.0
	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		if cfg.Battery != (config.BatteryConfig{}) {
			spec = cfg.Battery.ToSpec()
		}
		if c := cfg.Schedule.Cycles(); len(c) > 0 {
			cycles = c
		}
		if cfg.PPA.StrikePrice > 0 {
			strike = cfg.PPA.StrikePrice
		}
	}

	dir, err := os.MkdirTemp("", "spain-energy-demo")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	repo, err := store.New(filepath.Join(dir, "demo.db"))
	if err != nil {
		panic(err)
	}
	defer repo.Close()

	ctx := context.Background()
	if _, err := repo.SavePrices(ctx, demoMarket, syntheticPrices(*year)); err != nil {
		panic(err)
	}
	if _, err := repo.SavePrices(ctx, demoForecast, syntheticPrices(*year+5)); err != nil {
		panic(err)
	}
	if _, err := repo.SavePVProfile(ctx, demoProfile, syntheticProfile()); err != nil {
		panic(err)
	}

	svc := pipeline.New(repo, repo, pipeline.WithLogger(logger), pipeline.WithForecastMarkets(demoForecast))
	sel := model.Selection{Market: demoMarket, Profile: demoProfile}

	sum, err := svc.Summary(ctx, sel)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Loaded %d %s intervals for %s (%s to %s)\n", sum.Count, sum.Resolution, demoMarket,
		sum.Start.Format("2006-01-02"), sum.End.Format("2006-01-02"))
	fmt.Printf("Price min=%.2f mean=%.2f max=%.2f  P95-P05=%.2f  <=0: %.1f%%\n\n",
		sum.Min, sum.Mean, sum.Max, sum.SpreadP95P05, sum.NonPositiveShare*100)

	captured, err := svc.CapturedPrices(ctx, sel, analysis.ByCalendarMonth)
	if err != nil {
		panic(err)
	}
	factors, err := svc.CapturedFactors(ctx, sel, analysis.ByCalendarMonth)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%-6s %-16s %-16s\n", "month", "captured EUR/MWh", "captured factor")
	for i, v := range captured.Chart {
		fmt.Printf("%-6s %-16.2f %-16.3f\n", v.Key.Label, v.Value, factors.Chart[i].Value)
	}
	fmt.Printf("%-6s %-16.2f %-16.3f\n\n", "all", captured.Overall, factors.Overall)

	ppaRes, err := svc.PPA(ctx, sel, strike, analysis.ByCalendarMonth)
	if err != nil {
		panic(err)
	}
	fmt.Printf("PPA strike=%.2f  generation=%.1f MWh  eligible=%.1f%%  revenue=%.2f  effective=%.2f EUR/MWh\n\n",
		strike, ppaRes.Metrics.TotalGeneration, ppaRes.Metrics.PctEligible,
		ppaRes.Metrics.TotalRevenue, ppaRes.Metrics.EffectivePrice)

	th, err := svc.Thresholds(ctx, sel, 10, analysis.ByCalendarMonth)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Hours at or below 10 EUR/MWh: %d of %d (%.1f%%)\n\n", th.Hours, th.TotalHours, th.Share)

	run, err := svc.BESS(ctx, sel, spec, cycles)
	if err != nil {
		panic(err)
	}
	m := run.Metrics
	fmt.Printf("BESS %.0f MW / %.0f h  cycles=%d  spread=%.2f  revenue=%.2f  daily=%.2f EUR\n",
		spec.PowerMW, spec.DurationHours, m.TotalCycles, m.AvgSpread, m.TotalRevenue, m.DailyAvgRevenue)
	for i := 0; i < min(24, len(run.Result.Ledger)); i++ {
		r := run.Result.Ledger[i]
		fmt.Printf("%s price=%7.2f  action=%-11s  soc=%.2f  cum=%8.2f\n",
			r.Datetime.Format("2006-01-02 15:04"), r.Price, string(r.Action), r.SOCMWh, r.NetRevenue)
	}

	if *outCSV != "" {
		if err := os.MkdirAll(filepath.Dir(*outCSV), 0o755); err != nil {
			panic(err)
		}
		if err := backtest.WriteLedgerCSV(*outCSV, run.Result.Ledger); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	inflated, err := svc.Prices(ctx, model.Selection{
		Market:    demoForecast,
		Inflation: model.Inflation{Rate: 0.02, BaseDate: time.Date(*year, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		panic(err)
	}
	if len(inflated) > 0 {
		fmt.Printf("\nForecast %s first price with 2%% inflation: %.2f EUR/MWh\n", demoForecast, inflated[0].Price)
	}
}

// syntheticPrices is a duck curve: cheap at midday, expensive in the evening,
// higher in winter, with occasional zero and negative hours in spring.
func syntheticPrices(year int) []model.RawPriceRow {
	var rows []model.RawPriceRow
	for t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC); t.Year() == year; t = t.Add(time.Hour) {
		season := 15 * math.Cos(2*math.Pi*float64(t.YearDay())/365)
		hour := float64(t.Hour())
		daily := 20*math.Exp(-math.Pow(hour-20, 2)/8) - 35*math.Exp(-math.Pow(hour-13, 2)/6)
		price := 60 + season + daily
		if t.Month() >= time.March && t.Month() <= time.May && t.Hour() >= 12 && t.Hour() <= 15 {
			price -= 25
		}
		price = math.Round(price*100) / 100
		rows = append(rows, model.RawPriceRow{Timestamp: timeutil.FormatTimestamp(t), Price: &price})
	}
	return rows
}

// syntheticProfile is a clear-sky bell between sunrise and sunset, longer in
// summer. Outputs are MWh per MWp; 29 Feb is included.
func syntheticProfile() []model.RawPVRow {
	var rows []model.RawPVRow
	for d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		daylight := 12 + 3*math.Sin(2*math.Pi*float64(d.YearDay()-80)/366)
		peak := 0.6 + 0.2*math.Sin(2*math.Pi*float64(d.YearDay()-80)/366)
		for h := 0; h < 24; h++ {
			x := (float64(h) + 0.5 - 13) / (daylight / 2)
			out := 0.0
			if math.Abs(x) < 1 {
				out = math.Round(peak*math.Cos(x*math.Pi/2)*1000) / 1000
			}
			rows = append(rows, model.RawPVRow{Month: int(d.Month()), Day: d.Day(), Hour: h, Output: &out})
		}
	}
	return rows
}
