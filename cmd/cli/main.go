package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"spain-energy/internal/analysis"
	"spain-energy/internal/backtest"
	"spain-energy/internal/config"
	"spain-energy/internal/data"
	"spain-energy/internal/model"
	"spain-energy/internal/observability/metrics"
	"spain-energy/internal/pipeline"
	"spain-energy/internal/report"
	"spain-energy/internal/store"
	"spain-energy/internal/timeutil"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func main() {
	slog.SetDefault(logger)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "import-omie":
		err = cmdImportOMIE(ctx, args)
	case "import-pvsyst":
		err = cmdImportPVsyst(ctx, args)
	case "import-prices":
		err = cmdImportPrices(ctx, args)
	case "captured":
		err = cmdGrouped(ctx, "captured", args)
	case "factor":
		err = cmdGrouped(ctx, "factor", args)
	case "ppa":
		err = cmdPPA(ctx, args)
	case "bess":
		err = cmdBESS(ctx, args)
	case "summary":
		err = cmdSummary(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error(os.Args[1]+" failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli import-omie   --config examples/config.yaml [--market omie_da] marginalpdbc_*.1")
	fmt.Println("  cli import-pvsyst --config examples/config.yaml [--column E_Grid] [--name NAME] export.csv")
	fmt.Println("  cli import-prices --config examples/config.yaml prices.json")
	fmt.Println("  cli captured      --profile NAME [--market M] [--grouping month] [--start D] [--end D]")
	fmt.Println("  cli factor        --profile NAME [--market M] [--grouping month] [--start D] [--end D]")
	fmt.Println("  cli ppa           --profile NAME [--strike 45] [--xlsx out.xlsx] [--pdf out.pdf]")
	fmt.Println("  cli bess          [--market M] --out results/ledger.csv [--xlsx out.xlsx] [--pdf out.pdf]")
	fmt.Println("  cli summary       [--market M] [--start D] [--end D]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - dates are YYYY-MM-DD and inclusive")
	fmt.Println("  - bess outputs CSV with action=CHARGING/IDLE/DISCHARGING per interval")
	fmt.Println("  - battery and schedule come from --config (battery_file, battery, schedule)")
}

// selectionFlags are shared by the analysis subcommands.
type selectionFlags struct {
	cfgPath, market, profile, start, end string
}

func (s *selectionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.cfgPath, "config", "", "Path to YAML config (optional)")
	fs.StringVar(&s.market, "market", "", "Market id (default: markets.default)")
	fs.StringVar(&s.profile, "profile", "", "PV profile name")
	fs.StringVar(&s.start, "start", "", "First day, YYYY-MM-DD")
	fs.StringVar(&s.end, "end", "", "Last day, YYYY-MM-DD")
}

func (s *selectionFlags) selection(cfg *config.Config) (model.Selection, error) {
	inflation, err := cfg.Inflation.Model()
	if err != nil {
		return model.Selection{}, err
	}
	sel := model.Selection{Market: s.market, Profile: s.profile, Inflation: inflation}
	if sel.Market == "" {
		sel.Market = cfg.Markets.Default
	}
	if s.start != "" {
		if sel.Start, err = timeutil.ParseDate(s.start); err != nil {
			return model.Selection{}, fmt.Errorf("--start: %w", err)
		}
	}
	if s.end != "" {
		if sel.End, err = timeutil.ParseDate(s.end); err != nil {
			return model.Selection{}, fmt.Errorf("--end: %w", err)
		}
	}
	return sel, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openService opens the configured store read-only and builds the pipeline.
func openService(ctx context.Context, cfg *config.Config) (*pipeline.Service, func(), error) {
	reader, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, nil, err
	}
	svc := pipeline.New(reader, reader,
		pipeline.WithLogger(logger),
		pipeline.WithForecastMarkets(cfg.Markets.Forecasts...),
	)
	return svc, func() { _ = reader.Close() }, nil
}

// openRepository opens the writable sqlite store, creating its directory.
func openRepository(cfg *config.Config) (*store.Repository, error) {
	if cfg.Storage.Driver != config.DriverSQLite {
		return nil, fmt.Errorf("imports need the sqlite driver, configured %q", cfg.Storage.Driver)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DSN), 0o755); err != nil {
		return nil, err
	}
	return store.New(cfg.Storage.DSN)
}

func cmdImportOMIE(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-omie", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	market := fs.String("market", config.DefaultMarket, "Market id to store the Spain prices under")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("no OMIE files given")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	total := 0
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		rows, err := data.ParseOMIE(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		n, err := repo.SavePrices(ctx, *market, data.OMIESpainRows(rows))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		total += n
		logger.Info("imported omie file", "file", path, "rows", n)
	}
	metrics.AddImportedRows("omie", total)
	fmt.Printf("Imported %d price rows into %s\n", total, *market)
	return nil
}

func cmdImportPVsyst(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-pvsyst", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	column := fs.String("column", data.DefaultPVsystColumn, "Energy column to store")
	name := fs.String("name", "", "Profile name (default: derived from the file name)")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("no PVsyst files given")
	}
	if *name != "" && fs.NArg() > 1 {
		return errors.New("--name applies to a single file")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		parsed, err := data.ParsePVsyst(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rows, err := data.PVsystProfileRows(parsed, *column)
		if err != nil {
			return err
		}
		profile := *name
		if profile == "" {
			profile = data.ProfileName(path)
		}
		n, err := repo.SavePVProfile(ctx, profile, rows)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		metrics.AddImportedRows("pvsyst", n)
		fmt.Printf("Imported %d rows as profile %s\n", n, profile)
	}
	return nil
}

func cmdImportPrices(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-prices", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	market := fs.String("market", "", "Market id (default: the file's market field)")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("expected exactly one JSON file")
	}

	pf, err := data.LoadPriceJSON(fs.Arg(0))
	if err != nil {
		return err
	}
	id := *market
	if id == "" {
		id = pf.Market
	}
	if id == "" {
		return errors.New("no market id: set --market or the file's market field")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := repo.SavePrices(ctx, id, pf.Data)
	if err != nil {
		return err
	}
	metrics.AddImportedRows("json", n)
	fmt.Printf("Imported %d price rows into %s\n", n, id)
	return nil
}

func cmdGrouped(ctx context.Context, kind string, args []string) error {
	fs := flag.NewFlagSet(kind, flag.ExitOnError)
	var sf selectionFlags
	sf.register(fs)
	grouping := fs.String("grouping", string(analysis.ByCalendarMonth), "year | year_month | month | date | weekday | hour")
	_ = fs.Parse(args)

	g, err := analysis.ParseGrouping(*grouping)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(sf.cfgPath)
	if err != nil {
		return err
	}
	sel, err := sf.selection(cfg)
	if err != nil {
		return err
	}
	if sel.Profile == "" {
		return errors.New("--profile is required")
	}
	svc, closeFn, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	var res pipeline.Grouped
	unit := "EUR/MWh"
	if kind == "captured" {
		res, err = svc.CapturedPrices(ctx, sel, g)
	} else {
		res, err = svc.CapturedFactors(ctx, sel, g)
		unit = "ratio"
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s / %s (%d matched intervals)\n", sel.Market, sel.Profile, res.Matched)
	fmt.Printf("%-12s %-12s\n", string(g), unit)
	for _, v := range res.Chart {
		fmt.Printf("%-12s %-12.4f\n", v.Key.Label, v.Value)
	}
	if res.HasOverall {
		fmt.Printf("%-12s %-12.4f\n", "overall", res.Overall)
	}
	return nil
}

func cmdPPA(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ppa", flag.ExitOnError)
	var sf selectionFlags
	sf.register(fs)
	strike := fs.Float64("strike", -1, "Strike price in EUR/MWh (default: ppa.strike_price)")
	xlsxPath := fs.String("xlsx", "", "Optional XLSX report path")
	pdfPath := fs.String("pdf", "", "Optional PDF report path")
	_ = fs.Parse(args)

	cfg, err := loadConfig(sf.cfgPath)
	if err != nil {
		return err
	}
	sel, err := sf.selection(cfg)
	if err != nil {
		return err
	}
	if sel.Profile == "" {
		return errors.New("--profile is required")
	}
	if *strike < 0 {
		*strike = cfg.PPA.StrikePrice
	}
	svc, closeFn, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.PPA(ctx, sel, *strike, analysis.ByCalendarMonth)
	if err != nil {
		return err
	}
	m := res.Metrics
	fmt.Printf("Strike=%.2f EUR/MWh  Generation=%.3f MWh  Eligible=%.1f%%\n", m.Strike, m.TotalGeneration, m.PctEligible)
	fmt.Printf("Revenue=%.2f EUR  Effective price=%.2f EUR/MWh\n", m.TotalRevenue, m.EffectivePrice)

	if *xlsxPath != "" {
		raw, err := report.BuildPPAXLSX(m, res.Monthly)
		if err := writeReport(*xlsxPath, raw, err); err != nil {
			return err
		}
	}
	if *pdfPath != "" {
		raw, err := report.BuildPPAPDF(sel.Market, sel.Profile, m, res.Monthly)
		if err := writeReport(*pdfPath, raw, err); err != nil {
			return err
		}
	}
	return nil
}

func cmdBESS(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bess", flag.ExitOnError)
	var sf selectionFlags
	sf.register(fs)
	outPath := fs.String("out", "results/ledger.csv", "Output CSV path")
	xlsxPath := fs.String("xlsx", "", "Optional XLSX workbook path")
	pdfPath := fs.String("pdf", "", "Optional PDF report path")
	_ = fs.Parse(args)

	cfg, err := loadConfig(sf.cfgPath)
	if err != nil {
		return err
	}
	if cfg.Battery == (config.BatteryConfig{}) || len(cfg.Schedule.Cycles()) == 0 {
		return errors.New("bess needs battery and schedule in --config")
	}
	sel, err := sf.selection(cfg)
	if err != nil {
		return err
	}
	svc, closeFn, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	run, err := svc.BESS(ctx, sel, cfg.Battery.ToSpec(), cfg.Schedule.Cycles())
	if err != nil {
		return err
	}

	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return err
	}
	if err := backtest.WriteLedgerCSV(*outPath, run.Result.Ledger); err != nil {
		return err
	}
	fmt.Printf("Wrote %d rows to %s\n", len(run.Result.Ledger), *outPath)

	m := run.Metrics
	fmt.Printf("Days=%d Cycles=%d Charged=%.2f MWh Discharged=%.2f MWh\n", m.Days, m.TotalCycles, m.TotalChargeMWh, m.TotalDischargeMWh)
	fmt.Printf("Avg charge=%.2f Avg discharge=%.2f Spread=%.2f EUR/MWh\n", m.AvgChargePrice, m.AvgDischargePrice, m.AvgSpread)
	fmt.Printf("Total revenue=%.2f EUR  Daily avg=%.2f EUR\n", m.TotalRevenue, m.DailyAvgRevenue)

	if *xlsxPath != "" {
		raw, err := report.BuildBESSXLSX(run.Result, m)
		if err := writeReport(*xlsxPath, raw, err); err != nil {
			return err
		}
	}
	if *pdfPath != "" {
		raw, err := report.BuildBESSPDF(sel.Market, run.Result, m)
		if err := writeReport(*pdfPath, raw, err); err != nil {
			return err
		}
	}
	return nil
}

func cmdSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	var sf selectionFlags
	sf.register(fs)
	threshold := fs.Float64("threshold", 0, "Also count hours priced at or below this value")
	_ = fs.Parse(args)

	cfg, err := loadConfig(sf.cfgPath)
	if err != nil {
		return err
	}
	sel, err := sf.selection(cfg)
	if err != nil {
		return err
	}
	svc, closeFn, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := svc.Summary(ctx, sel)
	if err != nil {
		return err
	}
	fmt.Printf("%-10s %-8s %-10s %-10s %-10s %-10s %-10s\n", "market", "count", "min", "mean", "max", "p95-p05", "<=0 %")
	fmt.Printf("%-10s %-8d %-10.2f %-10.2f %-10.2f %-10.2f %-10.1f\n",
		sel.Market, s.Count, s.Min, s.Mean, s.Max, s.SpreadP95P05, s.NonPositiveShare*100)

	th, err := svc.Thresholds(ctx, sel, *threshold, analysis.ByYear)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d of %d hours at or below %.2f EUR/MWh (%.1f%%)\n", th.Hours, th.TotalHours, th.Threshold, th.Share)
	return nil
}

func writeReport(path string, raw []byte, buildErr error) error {
	metrics.IncExport(filepath.Ext(path), buildErr)
	if buildErr != nil {
		return buildErr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
