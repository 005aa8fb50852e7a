package stats

import (
	"math"

	"github.com/pacelog/pacelog/internal/activities"
)

// MaxProgressDots caps the goal progress indicator.
const MaxProgressDots = 5

// Sanitize drops records the aggregations cannot meaningfully use:
// unknown type, zero date, or a negative distance.
func Sanitize(acts []activities.Activity) []activities.Activity {
	clean := make([]activities.Activity, 0, len(acts))
	for _, a := range acts {
		if !a.Type.IsValid() {
			continue
		}
		if a.Date.IsZero() {
			continue
		}
		if a.DistanceKm < 0 || math.IsNaN(a.DistanceKm) || math.IsInf(a.DistanceKm, 0) {
			continue
		}
		clean = append(clean, a)
	}
	return clean
}

func FilterByType(acts []activities.Activity, t activities.Type) []activities.Activity {
	filtered := make([]activities.Activity, 0, len(acts))
	for _, a := range acts {
		if a.Type == t {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

func FilterByPeriod(acts []activities.Activity, p Period) []activities.Activity {
	filtered := make([]activities.Activity, 0, len(acts))
	for _, a := range acts {
		if p.Contains(a.Date) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

func SumDistance(acts []activities.Activity) float64 {
	var sum float64
	for _, a := range acts {
		sum += a.DistanceKm
	}
	return sum
}

// AvgDistance returns 0 for an empty slice instead of NaN.
func AvgDistance(acts []activities.Activity) float64 {
	if len(acts) == 0 {
		return 0
	}
	return SumDistance(acts) / float64(len(acts))
}

// AvgFeeling is the mean of the 1-5 feeling ratings, 0 for an empty
// slice instead of NaN.
func AvgFeeling(acts []activities.Activity) float64 {
	if len(acts) == 0 {
		return 0
	}
	var sum int
	for _, a := range acts {
		sum += a.Feeling
	}
	return float64(sum) / float64(len(acts))
}

// ProgressDots maps goal completion to 0..5 dots, rounding down.
// A goal that is not set (target <= 0) always shows zero dots.
func ProgressDots(distance, target float64) int {
	if target <= 0 {
		return 0
	}
	dots := int(math.Floor(distance / target * MaxProgressDots))
	if dots > MaxProgressDots {
		return MaxProgressDots
	}
	if dots < 0 {
		return 0
	}
	return dots
}

// PercentChange compares the current value against the previous one.
// When previous is zero the comparison is meaningless, so nil is
// returned and callers are expected to hide the trend.
func PercentChange(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	change := (current - previous) / previous * 100
	return &change
}
