package presets

import (
	"time"

	"github.com/pacelog/pacelog/internal/activities"
)

// RecentLimit is how many presets the quick log form offers.
const RecentLimit = 3

// Preset is a named template for quick logging.
type Preset struct {
	ID         int             `json:"id"`
	Type       activities.Type `json:"type"`
	Name       string          `json:"name"`
	DistanceKm float64         `json:"distanceKm"`
	Effort     int             `json:"effort"`
	LastUsedAt time.Time       `json:"lastUsedAt"`
}

func (p *Preset) Valid() bool {
	if !p.Type.IsValid() {
		return false
	}
	if p.Name == "" {
		return false
	}
	if p.DistanceKm < 0 {
		return false
	}
	return true
}
