package analysis

import (
	"sort"

	"spain-energy/internal/model"
)

// RankedProfile is one PV profile scored against a price series.
type RankedProfile struct {
	Profile        string  `json:"profile"`
	Matched        int     `json:"matched_intervals"`
	CapturedPrice  float64 `json:"captured_price"`
	CapturedFactor float64 `json:"captured_factor"`
}

// RankProfiles scores every profile against the same prices and
// sorts descending by captured factor. Profiles with no positive output
// over the window are ranked last with zero scores.
func RankProfiles(prices []model.PriceInterval, joined map[string][]model.JoinedRecord) []RankedProfile {
	out := make([]RankedProfile, 0, len(joined))
	for name, records := range joined {
		r := RankedProfile{Profile: name, Matched: len(records)}
		if cp, ok := OverallCapturedPrice(records); ok {
			r.CapturedPrice = cp
		}
		if cf, ok := OverallCapturedFactor(records, prices); ok {
			r.CapturedFactor = cf
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CapturedFactor != out[j].CapturedFactor {
			return out[i].CapturedFactor > out[j].CapturedFactor
		}
		return out[i].Profile < out[j].Profile
	})
	return out
}
