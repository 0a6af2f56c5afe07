package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/carpool/internal/models"
)

func newTestBackend(t *testing.T) *Simulated {
	t.Helper()
	fx, err := LoadFixtures("")
	require.NoError(t, err)
	s := NewSimulated(fx, 0)
	s.HashCost = bcrypt.MinCost
	s.Now = func() time.Time { return time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestLoadFixtures_Embedded(t *testing.T) {
	fx, err := LoadFixtures("")
	require.NoError(t, err)
	require.Len(t, fx.Offers, 4)
	assert.Equal(t, "Michael Chen", fx.Offers[0].Driver.DisplayName)
	assert.Equal(t, models.Dollars(35), fx.Offers[0].PricePerSeat)
	assert.True(t, fx.Offers[1].FemaleOnly)
	assert.Len(t, fx.PopularRoutes, 4)
}

func TestLoadFixtures_MissingFile(t *testing.T) {
	_, err := LoadFixtures("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestSimulated_SearchStampsRouteAndDate(t *testing.T) {
	s := newTestBackend(t)
	offers, err := s.Search(context.Background(), models.SearchQuery{Source: "New York", Destination: "Boston"})
	require.NoError(t, err)
	require.Len(t, offers, 4)
	for _, o := range offers {
		assert.Equal(t, "New York", o.Source)
		assert.Equal(t, "Boston", o.Destination)
		assert.Equal(t, "2025-04-15", o.Date)
	}
}

func TestSimulated_PublishedRideIsSearchableAndBookable(t *testing.T) {
	ctx := context.Background()
	s := newTestBackend(t)
	driver := models.Identity{ID: "drv-1", DisplayName: "Dana", Role: models.RoleDriver}
	ride, err := s.PublishRide(ctx, driver, models.RideDraft{
		Source: "Seattle", Destination: "Portland", Date: "2025-04-18", DepartureTime: "07:30",
		AvailableSeats: 2, PricePerSeat: models.Dollars(25), VehicleModel: "Kia Niro", VehicleColor: "White",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RideUpcoming, ride.Status)

	offers, err := s.Search(ctx, models.SearchQuery{Source: "seattle", Destination: "PORTLAND", Date: "2025-04-18"})
	require.NoError(t, err)
	require.Len(t, offers, 5)
	last := offers[4]
	assert.Equal(t, ride.ID, last.ID)
	assert.Equal(t, "Dana", last.Driver.DisplayName)

	_, err = s.Book(ctx, models.BookingRequest{RideID: ride.ID, PassengerID: "p", PassengerCount: 2})
	require.NoError(t, err)
	_, err = s.Book(ctx, models.BookingRequest{RideID: ride.ID, PassengerID: "p", PassengerCount: 1})
	require.ErrorIs(t, err, models.ErrInsufficientSeats)

	offers, err = s.Search(ctx, models.SearchQuery{Source: "Seattle", Destination: "Portland", Date: "2025-04-18"})
	require.NoError(t, err)
	assert.Equal(t, 0, offers[4].AvailableSeats)
}

func TestSimulated_Authenticate(t *testing.T) {
	ctx := context.Background()
	s := newTestBackend(t)

	demo, err := s.Authenticate(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RolePassenger, demo.Role)
	assert.Equal(t, "a@b.com", demo.Email)

	_, err = s.Authenticate(ctx, "", "pw")
	require.ErrorIs(t, err, models.ErrAuth)

	created, err := s.CreateAccount(ctx, models.Profile{DisplayName: "Dana", Email: "Dana@Example.com", Password: "hunter22", Role: models.RoleDriver})
	require.NoError(t, err)

	got, err := s.Authenticate(ctx, "dana@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = s.Authenticate(ctx, "dana@example.com", "wrong")
	require.ErrorIs(t, err, models.ErrAuth)

	_, err = s.CreateAccount(ctx, models.Profile{DisplayName: "D2", Email: "dana@example.com", Password: "x", Role: models.RolePassenger})
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestSimulated_PopularRoutesRelativeDates(t *testing.T) {
	s := newTestBackend(t)
	routes, err := s.PopularRoutes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 4)
	assert.Equal(t, "2025-04-17", routes[0].Date)
	assert.Equal(t, "2025-04-16", routes[2].Date)
}

func TestSimulated_LatencyHonoursContext(t *testing.T) {
	s := newTestBackend(t)
	s.Latency = time.Second
	_, err := Do(context.Background(), 10*time.Millisecond, func(ctx context.Context) ([]models.RideOffer, error) {
		return s.Search(ctx, models.SearchQuery{Source: "A", Destination: "B"})
	})
	require.ErrorIs(t, err, models.ErrTimeout)
}

func TestDo_PassesThroughOtherErrors(t *testing.T) {
	_, err := Do(context.Background(), time.Second, func(context.Context) (int, error) { return 0, models.ErrNetwork })
	require.ErrorIs(t, err, models.ErrNetwork)
	assert.NotErrorIs(t, err, models.ErrTimeout)

	v, err := Do(context.Background(), 0, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
