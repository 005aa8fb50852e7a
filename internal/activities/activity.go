package activities

import "time"

// Type can be one of:
//   - run
//   - ride
type Type string

const (
	TypeRun  Type = "run"
	TypeRide Type = "ride"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case TypeRun, TypeRide:
		return true
	default:
		return false
	}
}

// DefaultRating is used when feeling/effort come in unset.
const DefaultRating = 3

// Activity is one recorded exercise session.
type Activity struct {
	ID            int        `json:"id"`
	Type          Type       `json:"type"`
	Date          time.Time  `json:"date"`
	DistanceKm    float64    `json:"distanceKm"`
	Title         string     `json:"title,omitempty"`
	Feeling       int        `json:"feeling"`
	Effort        int        `json:"effort"`
	Notes         string     `json:"notes,omitempty"`
	NoteUpdatedAt *time.Time `json:"noteUpdatedAt,omitempty"`
}

// Normalize applies the defaulting done once at the store boundary:
// unset or out-of-range ratings fall back to the middle value, and the
// date keeps only its calendar day.
func (a *Activity) Normalize() {
	if a.Feeling < 1 || a.Feeling > 5 {
		a.Feeling = DefaultRating
	}
	if a.Effort < 1 || a.Effort > 5 {
		a.Effort = DefaultRating
	}
	if !a.Date.IsZero() {
		y, m, d := a.Date.Date()
		a.Date = time.Date(y, m, d, 0, 0, 0, 0, a.Date.Location())
	}
}

// Valid reports whether the activity can be stored at all. Anything
// failing here is rejected before a remote call is made.
func (a *Activity) Valid() bool {
	if !a.Type.IsValid() {
		return false
	}
	if a.Date.IsZero() {
		return false
	}
	if a.DistanceKm < 0 {
		return false
	}
	return true
}
