package strategy

import (
	"errors"
	"fmt"
	"time"

	"spain-energy/internal/timeutil"
)

// ErrInvalidBatteryConfiguration is returned before any simulation work when
// the cycle schedule cannot be run.
var ErrInvalidBatteryConfiguration = errors.New("invalid battery configuration")

// Cycle is one daily charge/discharge pair. Each window starts at its clock
// time and runs for the battery duration.
type Cycle struct {
	Charge    timeutil.ClockTime `json:"charge" yaml:"charge"`
	Discharge timeutil.ClockTime `json:"discharge" yaml:"discharge"`
}

// ScheduleParams implements a fixed daily time-window strategy:
// - Charge during [Charge, Charge+Duration) of each configured cycle
// - Discharge during [Discharge, Discharge+Duration)
// - Otherwise IDLE
//
// Windows are anchored on the calendar date of each interval.
type ScheduleParams struct {
	Cycles        []Cycle
	DurationHours float64
}

type ScheduleStrategy struct {
	Params ScheduleParams

	window time.Duration
}

// NewScheduleStrategy validates the cycles and builds the strategy.
func NewScheduleStrategy(p ScheduleParams) (*ScheduleStrategy, error) {
	if p.DurationHours <= 0 {
		return nil, fmt.Errorf("%w: duration must be > 0", ErrInvalidBatteryConfiguration)
	}
	if err := ValidateCycles(p.Cycles...); err != nil {
		return nil, err
	}
	return &ScheduleStrategy{
		Params: p,
		window: time.Duration(p.DurationHours * float64(time.Hour)),
	}, nil
}

func (s *ScheduleStrategy) Name() string { return "schedule" }

// Decide reports which windows of the interval's own calendar date contain
// its start time. A later cycle overrides the cycle number of an earlier one.
func (s *ScheduleStrategy) Decide(ctx Context) Decision {
	t := ctx.Interval.Datetime
	day := timeutil.DateOf(t)
	var d Decision
	for i, c := range s.Params.Cycles {
		if timeutil.WindowOn(day, c.Charge, s.window).Contains(t) {
			d.Charging = true
			d.Cycle = i + 1
		}
		if timeutil.WindowOn(day, c.Discharge, s.window).Contains(t) {
			d.Discharging = true
			d.Cycle = i + 1
		}
	}
	return d
}

// ValidateCycles checks one or two cycles. Each charge start must be strictly
// before its discharge start. A second cycle must lie wholly before the
// first one's charge start or begin at or after its discharge start.
func ValidateCycles(cycles ...Cycle) error {
	if len(cycles) == 0 || len(cycles) > 2 {
		return fmt.Errorf("%w: expected 1 or 2 cycles, got %d", ErrInvalidBatteryConfiguration, len(cycles))
	}
	for i, c := range cycles {
		if c.Charge.Minutes() >= c.Discharge.Minutes() {
			return fmt.Errorf("%w: charge time must be before discharge time for cycle %d", ErrInvalidBatteryConfiguration, i+1)
		}
	}
	if len(cycles) == 1 {
		return nil
	}
	c1, c2 := cycles[0], cycles[1]
	if c2.Discharge.Minutes() <= c1.Charge.Minutes() {
		return nil
	}
	if c2.Charge.Minutes() >= c1.Discharge.Minutes() {
		return nil
	}
	return fmt.Errorf("%w: cycles overlap (cycle 1 %s-%s, cycle 2 %s-%s)",
		ErrInvalidBatteryConfiguration, c1.Charge, c1.Discharge, c2.Charge, c2.Discharge)
}
