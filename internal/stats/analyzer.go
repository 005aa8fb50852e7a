package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/pacelog/pacelog/internal/activities"
	"github.com/pacelog/pacelog/internal/goals"
)

const rollingWindowDays = 90

type activityLister interface {
	ListAll(ctx context.Context, userID int, params activities.ActivityParams) ([]activities.Activity, error)
}

type goalsLister interface {
	ListAll(ctx context.Context, userID int) ([]goals.Goal, error)
}

// PeriodStats is the aggregate for one activity type over one period.
type PeriodStats struct {
	DistanceKm    float64  `json:"distanceKm"`
	Activities    int      `json:"activities"`
	AvgDistanceKm float64  `json:"avgDistanceKm"`
	AvgFeeling    float64  `json:"avgFeeling"`
	GoalKm        *float64 `json:"goalKm,omitempty"`
	ProgressDots  int      `json:"progressDots"`
	PercentChange *float64 `json:"percentChange,omitempty"`
}

type TypeOverview struct {
	Week      PeriodStats `json:"week"`
	Month     PeriodStats `json:"month"`
	Year      PeriodStats `json:"year"`
	Rolling90 PeriodStats `json:"rolling90"`
}

type Overview struct {
	Run         TypeOverview `json:"run"`
	Ride        TypeOverview `json:"ride"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// Analyzer produces stats overviews from stored activities and goals.
// All the math lives in engine.go, the analyzer just fetches and glues.
type Analyzer struct {
	activitiesRepo activityLister
	goalsRepo      goalsLister

	// NowFunc exists for tests, defaults to time.Now
	NowFunc func() time.Time
}

func NewAnalyzer(activitiesRepo activityLister, goalsRepo goalsLister) *Analyzer {
	return &Analyzer{
		activitiesRepo: activitiesRepo,
		goalsRepo:      goalsRepo,
		NowFunc:        time.Now,
	}
}

func (a *Analyzer) Overview(ctx context.Context, userID int) (*Overview, error) {
	now := a.NowFunc()

	// the previous calendar year is the widest comparison window needed
	from := YearOf(now).Start.AddDate(-1, 0, 0)
	acts, err := a.activitiesRepo.ListAll(ctx, userID, activities.ActivityParams{
		From: &from,
	})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	acts = Sanitize(acts)

	userGoals, err := a.goalsRepo.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	return BuildOverview(acts, userGoals, now), nil
}

// BuildOverview is the pure assembly step: activities and goals in,
// dashboard numbers out. Input records are expected to be sanitized.
func BuildOverview(acts []activities.Activity, userGoals []goals.Goal, now time.Time) *Overview {
	return &Overview{
		Run:         typeOverview(acts, userGoals, activities.TypeRun, now),
		Ride:        typeOverview(acts, userGoals, activities.TypeRide, now),
		GeneratedAt: now,
	}
}

func typeOverview(
	acts []activities.Activity,
	userGoals []goals.Goal,
	actType activities.Type,
	now time.Time,
) TypeOverview {
	ofType := FilterByType(acts, actType)
	return TypeOverview{
		Week:  periodStats(ofType, WeekOf(now), goalFor(userGoals, actType, goals.PeriodWeek), true),
		Month: periodStats(ofType, MonthOf(now), goalFor(userGoals, actType, goals.PeriodMonth), true),
		// no year trend: a partial year against a full previous year
		// is not a comparison worth showing
		Year:      periodStats(ofType, YearOf(now), goalFor(userGoals, actType, goals.PeriodYear), false),
		Rolling90: periodStats(ofType, RollingDays(now, rollingWindowDays), nil, true),
	}
}

func periodStats(acts []activities.Activity, p Period, goalKm *float64, withTrend bool) PeriodStats {
	current := FilterByPeriod(acts, p)

	distance := SumDistance(current)
	stats := PeriodStats{
		DistanceKm:    distance,
		Activities:    len(current),
		AvgDistanceKm: AvgDistance(current),
		AvgFeeling:    AvgFeeling(current),
		GoalKm:        goalKm,
	}
	if withTrend {
		previous := FilterByPeriod(acts, PreviousOf(p))
		stats.PercentChange = PercentChange(distance, SumDistance(previous))
	}
	if goalKm != nil {
		stats.ProgressDots = ProgressDots(distance, *goalKm)
	}
	return stats
}

func goalFor(userGoals []goals.Goal, actType activities.Type, period goals.Period) *float64 {
	for _, g := range userGoals {
		if g.Type == actType && g.Period == period {
			return g.DistanceKm
		}
	}
	return nil
}
