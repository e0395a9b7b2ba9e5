package model

// Action is a human-friendly operating mode for a timestep.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromResult derives the mode from realized energies, so a window that
// could not move energy (full or empty battery) reports IDLE.
func ActionFromResult(r IntervalResult) Action {
	switch {
	case r.ChargeMWh > 0:
		return ActionCharging
	case r.DischargeMWh > 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
