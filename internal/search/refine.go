package search

import (
	"sort"
	"strings"

	"github.com/example/carpool/internal/models"
)

type SortKey string

const (
	SortByPrice          SortKey = "price"
	SortByDepartureTime  SortKey = "departureTime"
	SortByAvailableSeats SortKey = "availableSeats"
)

// ParseSortKey maps user input to a SortKey. Unknown keys sort by price.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "departure", "departuretime", "departure_time":
		return SortByDepartureTime
	case "seats", "availableseats", "available_seats":
		return SortByAvailableSeats
	default:
		return SortByPrice
	}
}

type PriceRange struct {
	Min models.Money `json:"min"`
	Max models.Money `json:"max"`
}

// FilterConfig is the transient filter state of one search view.
type FilterConfig struct {
	PriceRange         PriceRange `json:"price_range"`
	FemaleOnlyRequired bool       `json:"female_only"`
	MinSeats           int        `json:"min_seats"`
	SortKey            SortKey    `json:"sort"`
}

// DefaultFilter is the filter a fresh search view starts with.
func DefaultFilter() FilterConfig {
	return FilterConfig{
		PriceRange: PriceRange{Min: 0, Max: models.Dollars(100)},
		MinSeats:   1,
		SortKey:    SortByPrice,
	}
}

// Validate enforces min <= max and at least one seat.
func (c FilterConfig) Validate() error {
	var fields []string
	if c.PriceRange.Min < 0 || c.PriceRange.Min > c.PriceRange.Max {
		fields = append(fields, "price_range")
	}
	if c.MinSeats < 1 {
		fields = append(fields, "min_seats")
	}
	if len(fields) > 0 {
		return models.NewValidationError("invalid filter", fields...)
	}
	return nil
}

// Matches reports whether o passes every filter predicate of c.
func (c FilterConfig) Matches(o models.RideOffer) bool {
	return o.PricePerSeat >= c.PriceRange.Min &&
		o.PricePerSeat <= c.PriceRange.Max &&
		(!c.FemaleOnlyRequired || o.FemaleOnly) &&
		o.AvailableSeats >= c.MinSeats
}

// Refine filters candidates by cfg and stable-sorts the survivors by cfg.SortKey.
// The input slice is never modified.
func Refine(candidates []models.RideOffer, cfg FilterConfig) []models.RideOffer {
	out := make([]models.RideOffer, 0, len(candidates))
	for _, o := range candidates {
		if cfg.Matches(o) {
			out = append(out, o)
		}
	}
	less := lessFor(cfg.SortKey)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func lessFor(k SortKey) func(a, b models.RideOffer) bool {
	switch k {
	case SortByDepartureTime:
		// zero-padded HH:MM compares correctly as a string
		return func(a, b models.RideOffer) bool { return a.DepartureTime < b.DepartureTime }
	case SortByAvailableSeats:
		return func(a, b models.RideOffer) bool { return a.AvailableSeats > b.AvailableSeats }
	default:
		return func(a, b models.RideOffer) bool { return a.PricePerSeat < b.PricePerSeat }
	}
}
