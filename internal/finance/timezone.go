package finance

import "time"

// LoadLocation returns the named zone for display timestamps, falling back to
// America/New_York and then a fixed EST offset if tzdata is missing.
func LoadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}
