package goals

import "github.com/pacelog/pacelog/internal/activities"

// Period can be one of:
//   - week
//   - month
//   - year
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func (p Period) String() string {
	return string(p)
}

func (p Period) IsValid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return true
	default:
		return false
	}
}

// Goal is a distance target for a (type, period) pair. A nil
// DistanceKm means the goal is cleared. At most one goal exists per
// (user, type, period), enforced by the upsert.
type Goal struct {
	Type       activities.Type `json:"type"`
	Period     Period          `json:"period"`
	DistanceKm *float64        `json:"distanceKm"`
}

func (g *Goal) Valid() bool {
	if !g.Type.IsValid() {
		return false
	}
	if !g.Period.IsValid() {
		return false
	}
	if g.DistanceKm != nil && *g.DistanceKm < 0 {
		return false
	}
	return true
}

// Target returns the goal distance, or 0 when the goal is cleared.
func (g *Goal) Target() float64 {
	if g.DistanceKm == nil {
		return 0
	}
	return *g.DistanceKm
}
