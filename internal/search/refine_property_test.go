package search

import (
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/example/carpool/internal/models"
)

func genOffer() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 60),
		gen.IntRange(0, 5),
		gen.Bool(),
		gen.IntRange(5, 9),
		gen.OneConstOf(0, 15, 30),
	).Map(func(v []interface{}) models.RideOffer {
		return models.RideOffer{
			PricePerSeat:   models.Dollars(int64(v[0].(int))),
			AvailableSeats: v[1].(int),
			FemaleOnly:     v[2].(bool),
			DepartureTime:  fmt.Sprintf("%02d:%02d", v[3].(int), v[4].(int)),
		}
	})
}

func genFilter() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 40),
		gen.IntRange(0, 40),
		gen.Bool(),
		gen.IntRange(1, 4),
		gen.OneConstOf(SortByPrice, SortByDepartureTime, SortByAvailableSeats),
	).Map(func(v []interface{}) FilterConfig {
		lo := int64(v[0].(int))
		return FilterConfig{
			PriceRange:         PriceRange{Min: models.Dollars(lo), Max: models.Dollars(lo + int64(v[1].(int)))},
			FemaleOnlyRequired: v[2].(bool),
			MinSeats:           v[3].(int),
			SortKey:            v[4].(SortKey),
		}
	})
}

// numbered gives every offer its input position as id.
func numbered(cs []models.RideOffer) []models.RideOffer {
	out := make([]models.RideOffer, len(cs))
	for i, o := range cs {
		o.ID = strconv.Itoa(i)
		out[i] = o
	}
	return out
}

func TestRefineProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every result satisfies the filter", prop.ForAll(
		func(cs []models.RideOffer, cfg FilterConfig) bool {
			for _, o := range Refine(cs, cfg) {
				if !cfg.Matches(o) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genOffer()), genFilter(),
	))

	properties.Property("no matching offer is dropped", prop.ForAll(
		func(cs []models.RideOffer, cfg FilterConfig) bool {
			n := 0
			for _, o := range cs {
				if cfg.Matches(o) {
					n++
				}
			}
			return len(Refine(cs, cfg)) == n
		},
		gen.SliceOf(genOffer()), genFilter(),
	))

	properties.Property("refine is idempotent", prop.ForAll(
		func(cs []models.RideOffer, cfg FilterConfig) bool {
			once := Refine(numbered(cs), cfg)
			return reflect.DeepEqual(Refine(once, cfg), once)
		},
		gen.SliceOf(genOffer()), genFilter(),
	))

	properties.Property("results are ordered and ties keep input order", prop.ForAll(
		func(cs []models.RideOffer, cfg FilterConfig) bool {
			got := Refine(numbered(cs), cfg)
			less := lessFor(cfg.SortKey)
			for i := 1; i < len(got); i++ {
				a, b := got[i-1], got[i]
				if less(b, a) {
					return false
				}
				if !less(a, b) {
					ia, _ := strconv.Atoi(a.ID)
					ib, _ := strconv.Atoi(b.ID)
					if ia > ib {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(genOffer()), genFilter(),
	))

	properties.TestingRun(t)
}
