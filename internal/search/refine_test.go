package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carpool/internal/models"
)

func offer(id string, price int64, seats int, female bool, dep string) models.RideOffer {
	return models.RideOffer{ID: id, PricePerSeat: models.Dollars(price), AvailableSeats: seats, FemaleOnly: female, DepartureTime: dep}
}

func ids(os []models.RideOffer) []string {
	out := make([]string, 0, len(os))
	for _, o := range os {
		out = append(out, o.ID)
	}
	return out
}

func TestRefine_PriceBoundScenario(t *testing.T) {
	cands := []models.RideOffer{
		offer("a", 35, 3, false, "08:00"),
		offer("b", 28, 4, false, "10:30"),
		offer("c", 42, 2, true, "09:15"),
	}
	cfg := FilterConfig{PriceRange: PriceRange{Min: 0, Max: models.Dollars(40)}, MinSeats: 1, SortKey: SortByPrice}

	got := Refine(cands, cfg)
	assert.Equal(t, []string{"b", "a"}, ids(got))
}

func TestRefine_SortKeys(t *testing.T) {
	cands := []models.RideOffer{
		offer("r1", 35, 3, false, "08:00"),
		offer("r2", 42, 2, true, "09:15"),
		offer("r3", 28, 4, false, "10:30"),
		offer("r4", 38, 1, true, "12:00"),
	}
	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortByPrice, []string{"r3", "r1", "r4", "r2"}},
		{SortByDepartureTime, []string{"r1", "r2", "r3", "r4"}},
		{SortByAvailableSeats, []string{"r3", "r1", "r2", "r4"}},
		{SortKey("bogus"), []string{"r3", "r1", "r4", "r2"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			cfg := DefaultFilter()
			cfg.SortKey = tt.key
			assert.Equal(t, tt.want, ids(Refine(cands, cfg)))
		})
	}
}

func TestRefine_FemaleOnlyAndSeats(t *testing.T) {
	cands := []models.RideOffer{
		offer("r1", 35, 3, false, "08:00"),
		offer("r2", 42, 2, true, "09:15"),
		offer("r4", 38, 1, true, "12:00"),
	}
	cfg := DefaultFilter()
	cfg.FemaleOnlyRequired = true
	assert.Equal(t, []string{"r4", "r2"}, ids(Refine(cands, cfg)))

	cfg.MinSeats = 2
	assert.Equal(t, []string{"r2"}, ids(Refine(cands, cfg)))
}

func TestRefine_InclusivePriceBounds(t *testing.T) {
	cands := []models.RideOffer{offer("lo", 20, 1, false, "08:00"), offer("hi", 40, 1, false, "09:00")}
	cfg := DefaultFilter()
	cfg.PriceRange = PriceRange{Min: models.Dollars(20), Max: models.Dollars(40)}
	assert.Len(t, Refine(cands, cfg), 2)
}

func TestRefine_StableOnTies(t *testing.T) {
	cands := []models.RideOffer{
		offer("first", 30, 2, false, "09:00"),
		offer("cheap", 10, 2, false, "09:00"),
		offer("second", 30, 2, false, "09:00"),
		offer("third", 30, 2, false, "09:00"),
	}
	for _, key := range []SortKey{SortByPrice, SortByDepartureTime, SortByAvailableSeats} {
		cfg := DefaultFilter()
		cfg.SortKey = key
		got := ids(Refine(cands, cfg))
		var tied []string
		for _, id := range got {
			if id != "cheap" {
				tied = append(tied, id)
			}
		}
		assert.Equal(t, []string{"first", "second", "third"}, tied, "sort key %s", key)
	}
}

func TestRefine_DoesNotMutateInput(t *testing.T) {
	cands := []models.RideOffer{offer("b", 50, 1, false, "10:00"), offer("a", 10, 1, false, "08:00")}
	_ = Refine(cands, DefaultFilter())
	assert.Equal(t, []string{"b", "a"}, ids(cands))
}

func TestRefine_EmptyInput(t *testing.T) {
	got := Refine(nil, DefaultFilter())
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, SortByPrice, ParseSortKey("price"))
	assert.Equal(t, SortByDepartureTime, ParseSortKey("departure"))
	assert.Equal(t, SortByDepartureTime, ParseSortKey("departureTime"))
	assert.Equal(t, SortByAvailableSeats, ParseSortKey("seats"))
	assert.Equal(t, SortByAvailableSeats, ParseSortKey(" availableSeats "))
	assert.Equal(t, SortByPrice, ParseSortKey(""))
}

func TestFilterConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultFilter().Validate())

	cfg := DefaultFilter()
	cfg.PriceRange = PriceRange{Min: models.Dollars(50), Max: models.Dollars(10)}
	cfg.MinSeats = 0
	err := cfg.Validate()
	require.ErrorIs(t, err, models.ErrValidation)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"price_range", "min_seats"}, verr.Fields)
}
