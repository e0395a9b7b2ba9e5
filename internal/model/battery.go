package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBattery is returned when a BatterySpec cannot be simulated.
var ErrInvalidBattery = errors.New("invalid battery")

// BatterySpec defines the physical parameters of a storage asset.
// Units:
// - PowerMW: MW, symmetric for charge and discharge
// - DurationHours: hours at full power
// - Efficiency: round-trip fraction (0..1], applied on discharge only
type BatterySpec struct {
	PowerMW       float64 `json:"power_mw" yaml:"power_mw"`
	DurationHours float64 `json:"duration_hours" yaml:"duration_hours"`
	Efficiency    float64 `json:"efficiency" yaml:"efficiency"`
}

// CapacityMWh is power times duration.
func (s BatterySpec) CapacityMWh() float64 {
	return s.PowerMW * s.DurationHours
}

func (s BatterySpec) Validate() error {
	if s.PowerMW <= 0 {
		return fmt.Errorf("%w: power_mw must be > 0", ErrInvalidBattery)
	}
	if s.DurationHours <= 0 {
		return fmt.Errorf("%w: duration_hours must be > 0", ErrInvalidBattery)
	}
	if s.Efficiency <= 0 || s.Efficiency > 1 {
		return fmt.Errorf("%w: efficiency must be in (0, 1]", ErrInvalidBattery)
	}
	return nil
}

// Battery is a spec plus the stored energy of the current simulation day.
type Battery struct {
	Spec   BatterySpec
	SOCMWh float64
}

func NewBattery(spec BatterySpec) (*Battery, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Battery{Spec: spec}, nil
}

// Reset empties the battery. Called at the start of every calendar day.
func (b *Battery) Reset() {
	b.SOCMWh = 0
}

// SOCFraction returns stored energy as a fraction of capacity.
func (b *Battery) SOCFraction() float64 {
	c := b.Spec.CapacityMWh()
	if c <= 0 {
		return 0
	}
	return clamp01(b.SOCMWh / c)
}

// IntervalResult captures what happened in one interval.
type IntervalResult struct {
	ChargeMWh        float64 // energy drawn from the grid and stored
	DischargeMWh     float64 // energy delivered to the grid
	RemovedMWh       float64 // stored energy consumed by the discharge
	SOCStartMWh      float64
	SOCEndMWh        float64
	ChargeCost       float64 // <= 0 when price is positive
	DischargeRevenue float64
}

// CashFlow is the interval contribution to net revenue.
func (r IntervalResult) CashFlow() float64 {
	return r.ChargeCost + r.DischargeRevenue
}

// Charge stores min(power*dt, headroom) at the given price.
// Charging is lossless; the cost is the negated energy times price.
func (b *Battery) Charge(price, intervalHours float64) IntervalResult {
	res := IntervalResult{SOCStartMWh: b.SOCMWh}
	headroom := math.Max(0, b.Spec.CapacityMWh()-b.SOCMWh)
	energy := math.Min(b.Spec.PowerMW*intervalHours, headroom)
	b.SOCMWh += energy

	res.ChargeMWh = energy
	res.ChargeCost = -(energy * price)
	res.SOCEndMWh = b.SOCMWh
	return res
}

// Discharge delivers min(power*dt, soc*efficiency) at the given price and
// removes delivered/efficiency from storage.
func (b *Battery) Discharge(price, intervalHours float64) IntervalResult {
	res := IntervalResult{SOCStartMWh: b.SOCMWh}
	eff := b.Spec.Efficiency
	delivered := math.Min(b.Spec.PowerMW*intervalHours, b.SOCMWh*eff)
	if delivered < 0 {
		delivered = 0
	}
	removed := delivered / eff
	b.SOCMWh = math.Max(0, b.SOCMWh-removed)

	res.DischargeMWh = delivered
	res.RemovedMWh = removed
	res.DischargeRevenue = delivered * price
	res.SOCEndMWh = b.SOCMWh
	return res
}

// Idle leaves the battery untouched.
func (b *Battery) Idle() IntervalResult {
	return IntervalResult{SOCStartMWh: b.SOCMWh, SOCEndMWh: b.SOCMWh}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
