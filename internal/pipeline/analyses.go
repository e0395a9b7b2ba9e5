package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"spain-energy/internal/align"
	"spain-energy/internal/analysis"
	"spain-energy/internal/backtest"
	"spain-energy/internal/model"
	"spain-energy/internal/ppa"
	"spain-energy/internal/strategy"
)

// Grouped is a grouped analysis result. Groups holds the statistical
// values, where empty groups are omitted; Chart is the same data with
// bounded axes zero-filled for display.
type Grouped struct {
	Grouping   analysis.Grouping     `json:"grouping"`
	Overall    float64               `json:"overall"`
	HasOverall bool                  `json:"has_overall"`
	Matched    int                   `json:"matched_intervals"`
	Groups     []analysis.GroupValue `json:"groups"`
	Chart      []analysis.GroupValue `json:"chart"`
}

// CapturedPrices computes the PV-weighted price per group.
func (s *Service) CapturedPrices(ctx context.Context, sel model.Selection, g analysis.Grouping) (res Grouped, err error) {
	defer observe("captured_price", time.Now(), &err)

	joined, err := s.Joined(ctx, sel)
	if err != nil {
		return Grouped{}, err
	}
	res = Grouped{Grouping: g, Matched: len(joined)}
	res.Overall, res.HasOverall = analysis.OverallCapturedPrice(joined)
	res.Groups = analysis.CapturedPrice(joined, g)
	res.Chart = analysis.EnsureComplete(res.Groups, g)
	return res, nil
}

// CapturedFactors computes captured price over baseload price per group.
func (s *Service) CapturedFactors(ctx context.Context, sel model.Selection, g analysis.Grouping) (res Grouped, err error) {
	defer observe("captured_factor", time.Now(), &err)

	prices, joined, err := s.load(ctx, sel)
	if err != nil {
		return Grouped{}, err
	}
	res = Grouped{Grouping: g, Matched: len(joined)}
	res.Overall, res.HasOverall = analysis.OverallCapturedFactor(joined, prices)
	res.Groups = analysis.CapturedFactor(joined, prices, g)
	res.Chart = analysis.EnsureComplete(res.Groups, g)
	return res, nil
}

// PPAResult is a settlement run with its grouped and monthly views.
type PPAResult struct {
	ppa.Result
	Grouping analysis.Grouping     `json:"grouping"`
	Groups   []analysis.GroupValue `json:"groups"`
	Chart    []analysis.GroupValue `json:"chart"`
	Monthly  []ppa.MonthBreakdown  `json:"monthly"`
}

func (s *Service) PPA(ctx context.Context, sel model.Selection, strike float64, g analysis.Grouping) (res PPAResult, err error) {
	defer observe("ppa", time.Now(), &err)

	joined, err := s.Joined(ctx, sel)
	if err != nil {
		return PPAResult{}, err
	}
	settled := ppa.Simulate(joined, strike)
	groups := ppa.EffectivePriceBy(settled.Rows, g)
	return PPAResult{
		Result:   settled,
		Grouping: g,
		Groups:   groups,
		Chart:    analysis.EnsureComplete(groups, g),
		Monthly:  ppa.MonthlyBreakdown(settled.Rows),
	}, nil
}

// BESSRun is a scheduled dispatch run and its metrics.
type BESSRun struct {
	Result  *backtest.Result
	Metrics backtest.Metrics
}

// BESSInput is a validated dispatch configuration together with the prices
// it will run over. Digest identifies the price series.
type BESSInput struct {
	Selection model.Selection
	Battery   model.BatterySpec
	Cycles    []strategy.Cycle
	Prices    []model.PriceInterval
	Digest    string

	strat *strategy.ScheduleStrategy
}

// BESS validates the battery and schedule, then simulates dispatch over the
// selection's prices. Configuration errors are returned before any data is
// loaded.
func (s *Service) BESS(ctx context.Context, sel model.Selection, spec model.BatterySpec, cycles []strategy.Cycle) (BESSRun, error) {
	in, err := s.PrepareBESS(ctx, sel, spec, cycles)
	if err != nil {
		return BESSRun{}, err
	}
	return s.Simulate(in)
}

// PrepareBESS validates the configuration and loads the prices.
func (s *Service) PrepareBESS(ctx context.Context, sel model.Selection, spec model.BatterySpec, cycles []strategy.Cycle) (*BESSInput, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	strat, err := strategy.NewScheduleStrategy(strategy.ScheduleParams{Cycles: cycles, DurationHours: spec.DurationHours})
	if err != nil {
		return nil, err
	}
	prices, err := s.Prices(ctx, sel)
	if err != nil {
		return nil, err
	}
	return &BESSInput{
		Selection: sel,
		Battery:   spec,
		Cycles:    cycles,
		Prices:    prices,
		Digest:    digestPrices(prices),
		strat:     strat,
	}, nil
}

// Simulate runs dispatch for a prepared input.
func (s *Service) Simulate(in *BESSInput) (run BESSRun, err error) {
	defer observe("bess", time.Now(), &err)

	batt, err := model.NewBattery(in.Battery)
	if err != nil {
		return BESSRun{}, err
	}
	res, err := backtest.New().Run(in.Prices, batt, in.strat)
	if err != nil {
		return BESSRun{}, fmt.Errorf("run dispatch: %w", err)
	}
	res.Market = in.Selection.Market
	m := backtest.Summarize(res)
	s.logger.Info("bess run complete",
		"market", in.Selection.Market,
		"intervals", len(res.Ledger),
		"days", m.Days,
		"total_revenue", m.TotalRevenue,
	)
	return BESSRun{Result: res, Metrics: m}, nil
}

func digestPrices(prices []model.PriceInterval) string {
	h := sha256.New()
	var buf [17]byte
	for _, p := range prices {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Datetime.Unix()))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(p.Price))
		buf[16] = 0
		if p.Valid {
			buf[16] = 1
		}
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) Summary(ctx context.Context, sel model.Selection) (sum analysis.PriceSummary, err error) {
	defer observe("summary", time.Now(), &err)

	prices, err := s.Prices(ctx, sel)
	if err != nil {
		return analysis.PriceSummary{}, err
	}
	return analysis.Summarize(sel.Market, prices), nil
}

// Thresholds counts hours priced at or below threshold.
func (s *Service) Thresholds(ctx context.Context, sel model.Selection, threshold float64, g analysis.Grouping) (res analysis.ThresholdResult, err error) {
	defer observe("thresholds", time.Now(), &err)

	prices, err := s.Prices(ctx, sel)
	if err != nil {
		return analysis.ThresholdResult{}, err
	}
	return analysis.HoursAtOrBelow(prices, threshold, g), nil
}

// Histogram bins valid prices with edges aligned on threshold.
func (s *Service) Histogram(ctx context.Context, sel model.Selection, threshold, width float64) ([]analysis.HistogramBin, error) {
	prices, err := s.Prices(ctx, sel)
	if err != nil {
		return nil, err
	}
	return analysis.Histogram(prices, threshold, width)
}

// TypicalDay is the mean hourly output of a profile.
func (s *Service) TypicalDay(ctx context.Context, name string) ([]analysis.GroupValue, error) {
	profile, err := s.Profile(ctx, name)
	if err != nil {
		return nil, err
	}
	return analysis.TypicalDay(profile), nil
}

// RankProfiles scores profiles against the selection's prices. An empty
// list ranks every stored profile. sel.Profile is ignored.
func (s *Service) RankProfiles(ctx context.Context, sel model.Selection, names []string) (ranked []analysis.RankedProfile, err error) {
	defer observe("rank_profiles", time.Now(), &err)

	if len(names) == 0 {
		names, err = s.profiles.Profiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
	}
	prices, err := s.Prices(ctx, sel)
	if err != nil {
		return nil, err
	}
	joined := make(map[string][]model.JoinedRecord, len(names))
	for _, name := range names {
		profile, err := s.Profile(ctx, name)
		if err != nil {
			return nil, err
		}
		joined[name] = align.Align(prices, profile)
	}
	return analysis.RankProfiles(prices, joined), nil
}
