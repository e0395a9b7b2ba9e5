package strategy

import "spain-energy/internal/model"

type Context struct {
	Index    int
	Interval model.PriceInterval
}

// Decision is the window membership of one interval. Both flags may be set
// when windows are misconfigured; the simulator resolves that case.
type Decision struct {
	Charging    bool
	Discharging bool
	Cycle       int // 1-based cycle whose window matched last, 0 if none
}

type Strategy interface {
	Name() string
	Decide(ctx Context) Decision
}
