// Package pipeline runs the analytics over stored data: provider rows are
// normalized, filtered to the selection window, inflated when the market is
// a forecast, aligned with a PV profile and handed to the engines.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"spain-energy/internal/align"
	"spain-energy/internal/model"
	"spain-energy/internal/observability/metrics"
	"spain-energy/internal/timeutil"
)

var (
	ErrUnknownMarket  = errors.New("unknown market")
	ErrUnknownProfile = errors.New("unknown profile")
)

// PriceProvider returns raw price rows for a market.
type PriceProvider interface {
	PriceRows(ctx context.Context, market string) ([]model.RawPriceRow, error)
	Markets(ctx context.Context) ([]string, error)
}

// ProfileProvider returns raw PV rows for a named profile.
type ProfileProvider interface {
	PVRows(ctx context.Context, profile string) ([]model.RawPVRow, error)
	Profiles(ctx context.Context) ([]string, error)
}

type Service struct {
	prices    PriceProvider
	profiles  ProfileProvider
	forecasts map[string]bool
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithForecastMarkets marks the markets whose prices receive inflation.
func WithForecastMarkets(markets ...string) Option {
	return func(s *Service) {
		for _, m := range markets {
			s.forecasts[m] = true
		}
	}
}

// WithClock overrides the clock used as the default inflation base date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(prices PriceProvider, profiles ProfileProvider, opts ...Option) *Service {
	s := &Service{
		prices:    prices,
		profiles:  profiles,
		forecasts: make(map[string]bool),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsForecast reports whether inflation applies to market.
func (s *Service) IsForecast(market string) bool {
	return s.forecasts[market]
}

func (s *Service) Markets(ctx context.Context) ([]string, error) {
	return s.prices.Markets(ctx)
}

func (s *Service) Profiles(ctx context.Context) ([]string, error) {
	return s.profiles.Profiles(ctx)
}

// Prices loads the market of sel, drops malformed rows, keeps the selection
// window and applies inflation for forecast markets. Null prices are kept
// with Valid=false.
func (s *Service) Prices(ctx context.Context, sel model.Selection) ([]model.PriceInterval, error) {
	if sel.Market == "" {
		return nil, fmt.Errorf("%w: empty market", ErrUnknownMarket)
	}
	rows, err := s.prices.PriceRows(ctx, sel.Market)
	if err != nil {
		return nil, fmt.Errorf("load prices %s: %w", sel.Market, err)
	}
	if len(rows) == 0 {
		if err := s.requireMarket(ctx, sel.Market); err != nil {
			return nil, err
		}
	}

	prices, dropped := align.Prices(rows)
	if dropped > 0 {
		s.logger.Warn("dropped malformed price rows", "market", sel.Market, "dropped", dropped, "rows", len(rows))
		metrics.AddDroppedRows("price", dropped)
	}
	prices = model.FilterRange(prices, sel)

	if s.IsForecast(sel.Market) && sel.Inflation.Rate != 0 {
		base := sel.Inflation.BaseDate
		if base.IsZero() {
			base = timeutil.DateOf(timeutil.Naive(s.now()))
		}
		prices = align.ApplyInflation(prices, sel.Inflation.Rate, base)
		s.logger.Debug("applied inflation", "market", sel.Market, "rate", sel.Inflation.Rate, "base", base.Format(time.DateOnly))
	}
	return prices, nil
}

// Profile loads and normalizes a PV profile.
func (s *Service) Profile(ctx context.Context, name string) (model.PVProfile, error) {
	if name == "" {
		return model.PVProfile{}, fmt.Errorf("%w: empty profile", ErrUnknownProfile)
	}
	rows, err := s.profiles.PVRows(ctx, name)
	if err != nil {
		return model.PVProfile{}, fmt.Errorf("load profile %s: %w", name, err)
	}
	if len(rows) == 0 {
		if err := s.requireProfile(ctx, name); err != nil {
			return model.PVProfile{}, err
		}
	}
	profile, dropped := align.Profile(name, rows)
	if dropped > 0 {
		s.logger.Warn("dropped pv rows", "profile", name, "dropped", dropped, "rows", len(rows))
		metrics.AddDroppedRows("pv", dropped)
	}
	return profile, nil
}

// Joined aligns the selection's prices with its profile.
func (s *Service) Joined(ctx context.Context, sel model.Selection) ([]model.JoinedRecord, error) {
	_, joined, err := s.load(ctx, sel)
	return joined, err
}

func (s *Service) load(ctx context.Context, sel model.Selection) ([]model.PriceInterval, []model.JoinedRecord, error) {
	prices, err := s.Prices(ctx, sel)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.Profile(ctx, sel.Profile)
	if err != nil {
		return nil, nil, err
	}
	return prices, align.Align(prices, profile), nil
}

func (s *Service) requireMarket(ctx context.Context, market string) error {
	markets, err := s.prices.Markets(ctx)
	if err != nil {
		return fmt.Errorf("list markets: %w", err)
	}
	if !slices.Contains(markets, market) {
		return fmt.Errorf("%w: %s", ErrUnknownMarket, market)
	}
	return nil
}

func (s *Service) requireProfile(ctx context.Context, name string) error {
	profiles, err := s.profiles.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	if !slices.Contains(profiles, name) {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return nil
}

// observe records an operation's latency and outcome.
func observe(op string, start time.Time, err *error) {
	metrics.ObserveAnalysis(op, *err, time.Since(start))
}
