package rides

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/storage"
)

type fakeCatalog struct {
	published []models.RideDraft
	err       error
	routes    []models.PopularRoute
}

func (f *fakeCatalog) PublishRide(_ context.Context, driver models.Identity, d models.RideDraft) (models.Ride, error) {
	if f.err != nil {
		return models.Ride{}, f.err
	}
	f.published = append(f.published, d)
	return models.Ride{
		ID: "ride-new", DriverID: driver.ID, Source: d.Source, Destination: d.Destination, Date: d.Date,
		DepartureTime: d.DepartureTime, PricePerSeat: d.PricePerSeat, AvailableSeats: d.AvailableSeats,
		VehicleModel: d.VehicleModel, VehicleColor: d.VehicleColor, Status: models.RideUpcoming,
	}, nil
}

func (f *fakeCatalog) PopularRoutes(context.Context) ([]models.PopularRoute, error) {
	return f.routes, f.err
}

type recordingPublisher struct{ rides []models.Ride }

func (r *recordingPublisher) PublishRide(_ context.Context, ride models.Ride) error {
	r.rides = append(r.rides, ride)
	return nil
}

var (
	driver    = &models.Identity{ID: "drv-1", DisplayName: "Dana", Role: models.RoleDriver}
	passenger = &models.Identity{ID: "pas-1", DisplayName: "Ann", Role: models.RolePassenger}
)

func validDraft() models.RideDraft {
	return models.RideDraft{
		Source: " Seattle ", Destination: "Portland", Date: "2025-04-18", DepartureTime: "07:30",
		PricePerSeat: models.Dollars(25), VehicleModel: "Kia Niro", VehicleColor: "White",
	}
}

func newService(c *fakeCatalog) (*Service, *storage.MemoryStore, *recordingPublisher) {
	store := storage.NewMemoryStore()
	pub := &recordingPublisher{}
	return &Service{Catalog: c, Rides: store, Bookings: store, Events: pub, Timeout: time.Second}, store, pub
}

func TestCreate_PublishesAndStores(t *testing.T) {
	c := &fakeCatalog{}
	s, store, pub := newService(c)

	r, err := s.Create(context.Background(), driver, validDraft())
	require.NoError(t, err)
	assert.Equal(t, "Seattle", r.Source)
	assert.Equal(t, DefaultSeats, r.AvailableSeats)
	assert.Equal(t, "drv-1", r.DriverID)

	saved, err := store.ListRides(context.Background(), "drv-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Len(t, pub.rides, 1)
}

func TestCreate_RoleGates(t *testing.T) {
	c := &fakeCatalog{}
	s, _, _ := newService(c)

	_, err := s.Create(context.Background(), nil, validDraft())
	require.ErrorIs(t, err, models.ErrAuthRequired)

	_, err = s.Create(context.Background(), passenger, validDraft())
	require.ErrorIs(t, err, models.ErrForbidden)
	assert.Empty(t, c.published)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RideDraft)
		field  string
	}{
		{"missing source", func(d *models.RideDraft) { d.Source = "  " }, "source"},
		{"bad date", func(d *models.RideDraft) { d.Date = "18/04/2025" }, "date"},
		{"unpadded time", func(d *models.RideDraft) { d.DepartureTime = "7:30" }, "departure_time"},
		{"negative price", func(d *models.RideDraft) { d.PricePerSeat = -1 }, "price_per_seat"},
		{"too many seats", func(d *models.RideDraft) { d.AvailableSeats = MaxSeats + 1 }, "available_seats"},
		{"negative seats", func(d *models.RideDraft) { d.AvailableSeats = -1 }, "available_seats"},
		{"missing vehicle", func(d *models.RideDraft) { d.VehicleModel = "" }, "vehicle_model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCatalog{}
			s, _, _ := newService(c)
			d := validDraft()
			tt.mutate(&d)
			_, err := s.Create(context.Background(), driver, d)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{tt.field}, verr.Fields)
			assert.Empty(t, c.published)
		})
	}
}

func TestCreate_BackendFailureIsNotStored(t *testing.T) {
	s, store, pub := newService(&fakeCatalog{err: models.ErrNetwork})
	_, err := s.Create(context.Background(), driver, validDraft())
	require.ErrorIs(t, err, models.ErrNetwork)
	saved, _ := store.ListRides(context.Background(), "drv-1")
	assert.Empty(t, saved)
	assert.Empty(t, pub.rides)
}

func TestDashboard_SplitsUpcomingAndPast(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newService(&fakeCatalog{})
	require.NoError(t, store.SaveRide(ctx, &models.Ride{ID: "r1", DriverID: "drv-1", Date: "2025-04-18", Status: models.RideUpcoming}))
	require.NoError(t, store.SaveRide(ctx, &models.Ride{ID: "r2", DriverID: "drv-1", Date: "2025-03-01", Status: models.RideCompleted}))
	require.NoError(t, store.SaveBooking(ctx, &models.Booking{ID: "b1", PassengerID: "drv-1", Status: models.BookingConfirmed}))
	require.NoError(t, store.SaveBooking(ctx, &models.Booking{ID: "b2", PassengerID: "drv-1", Status: models.BookingCancelled}))

	dash, err := s.Dashboard(ctx, driver)
	require.NoError(t, err)
	require.Len(t, dash.UpcomingRides, 1)
	assert.Equal(t, "r1", dash.UpcomingRides[0].ID)
	require.Len(t, dash.PastRides, 1)
	require.Len(t, dash.UpcomingBookings, 1)
	require.Len(t, dash.PastBookings, 1)
	assert.Equal(t, "b2", dash.PastBookings[0].ID)
}

func TestDashboard_PassengerHasNoRides(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newService(&fakeCatalog{})
	require.NoError(t, store.SaveRide(ctx, &models.Ride{ID: "r1", DriverID: "pas-1", Status: models.RideUpcoming}))

	dash, err := s.Dashboard(ctx, passenger)
	require.NoError(t, err)
	assert.NotNil(t, dash.UpcomingRides)
	assert.Empty(t, dash.UpcomingRides)
	assert.Empty(t, dash.UpcomingBookings)

	_, err = s.Dashboard(ctx, nil)
	require.ErrorIs(t, err, models.ErrAuthRequired)
}

func TestPopularRoutes(t *testing.T) {
	want := []models.PopularRoute{{ID: "1", Source: "New York", Destination: "Boston"}}
	s, _, _ := newService(&fakeCatalog{routes: want})
	got, err := s.PopularRoutes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	s, _, _ = newService(&fakeCatalog{err: errors.New("boom")})
	_, err = s.PopularRoutes(context.Background())
	require.Error(t, err)
}
