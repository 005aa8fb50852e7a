package stats

import "time"

// Period is a half-open time range [Start, End): an activity dated
// exactly at End belongs to the next period.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// WeekOf returns the calendar week containing t, starting on Monday.
func WeekOf(t time.Time) Period {
	day := startOfDay(t)
	// time.Weekday has Sunday == 0, shift so Monday == 0
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Period{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// YearOf returns the calendar year containing t.
func YearOf(t time.Time) Period {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	return Period{Start: start, End: start.AddDate(1, 0, 0)}
}

// RollingDays returns the trailing window of the given number of days,
// ending after today (so today's activities are included).
func RollingDays(t time.Time, days int) Period {
	end := startOfDay(t).AddDate(0, 0, 1)
	return Period{Start: end.AddDate(0, 0, -days), End: end}
}

// PreviousOf returns the period immediately before p. Calendar-aligned
// periods step back one calendar unit, so February's length and leap
// years come out right; anything else (the rolling window) steps back
// by its own length.
func PreviousOf(p Period) Period {
	switch {
	case p.Start.AddDate(0, 0, 7).Equal(p.End):
		return Period{Start: p.Start.AddDate(0, 0, -7), End: p.Start}
	case p.Start.AddDate(0, 1, 0).Equal(p.End):
		return Period{Start: p.Start.AddDate(0, -1, 0), End: p.Start}
	case p.Start.AddDate(1, 0, 0).Equal(p.End):
		return Period{Start: p.Start.AddDate(-1, 0, 0), End: p.Start}
	default:
		length := p.End.Sub(p.Start)
		return Period{Start: p.Start.Add(-length), End: p.Start}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
