// Package rides covers the driver side of the marketplace: publishing rides,
// the per-user dashboard and the popular routes teaser.
package rides

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/carpool/internal/backend"
	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/observability"
	"github.com/example/carpool/internal/storage"
)

const (
	DefaultSeats = 3
	MaxSeats     = 6
)

type Catalog interface {
	PublishRide(ctx context.Context, driver models.Identity, d models.RideDraft) (models.Ride, error)
	PopularRoutes(ctx context.Context) ([]models.PopularRoute, error)
}

type Publisher interface {
	PublishRide(ctx context.Context, r models.Ride) error
}

type Service struct {
	Catalog  Catalog
	Rides    storage.RideStore
	Bookings storage.BookingStore
	Events   Publisher // optional
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Dashboard is what a signed-in user sees on their home screen.
type Dashboard struct {
	UpcomingRides    []models.Ride    `json:"upcoming_rides"`
	PastRides        []models.Ride    `json:"past_rides"`
	UpcomingBookings []models.Booking `json:"upcoming_bookings"`
	PastBookings     []models.Booking `json:"past_bookings"`
}

// Create publishes a ride on behalf of a driver.
func (s *Service) Create(ctx context.Context, identity *models.Identity, d models.RideDraft) (models.Ride, error) {
	if identity == nil {
		return models.Ride{}, models.ErrAuthRequired
	}
	if identity.Role != models.RoleDriver {
		return models.Ride{}, models.ErrForbidden
	}
	d = normalize(d)
	if err := validateDraft(d); err != nil {
		return models.Ride{}, err
	}
	r, err := backend.Do(ctx, s.Timeout, func(ctx context.Context) (models.Ride, error) {
		return s.Catalog.PublishRide(ctx, *identity, d)
	})
	if err != nil {
		return models.Ride{}, fmt.Errorf("publish ride: %w", err)
	}
	if err := s.Rides.SaveRide(ctx, &r); err != nil {
		return models.Ride{}, err
	}
	if s.Events != nil {
		if err := s.Events.PublishRide(ctx, r); err != nil {
			s.logger().Warn("ride event not published", "ride_id", r.ID, "error", err)
		}
	}
	observability.RidesPublished.Inc()
	s.logger().Info("ride_published", "ride_id", r.ID, "driver_id", identity.ID, "date", r.Date)
	return r, nil
}

// Dashboard lists the identity's bookings and, for drivers, their rides,
// each split into upcoming and past.
func (s *Service) Dashboard(ctx context.Context, identity *models.Identity) (Dashboard, error) {
	if identity == nil {
		return Dashboard{}, models.ErrAuthRequired
	}
	dash := Dashboard{
		UpcomingRides:    []models.Ride{},
		PastRides:        []models.Ride{},
		UpcomingBookings: []models.Booking{},
		PastBookings:     []models.Booking{},
	}
	if identity.Role == models.RoleDriver {
		rs, err := s.Rides.ListRides(ctx, identity.ID)
		if err != nil {
			return Dashboard{}, fmt.Errorf("load rides: %w", err)
		}
		for _, r := range rs {
			if r.Status == models.RideUpcoming {
				dash.UpcomingRides = append(dash.UpcomingRides, r)
			} else {
				dash.PastRides = append(dash.PastRides, r)
			}
		}
	}
	bs, err := s.Bookings.ListBookings(ctx, identity.ID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load bookings: %w", err)
	}
	for _, b := range bs {
		if b.Status == models.BookingConfirmed {
			dash.UpcomingBookings = append(dash.UpcomingBookings, b)
		} else {
			dash.PastBookings = append(dash.PastBookings, b)
		}
	}
	return dash, nil
}

func (s *Service) PopularRoutes(ctx context.Context) ([]models.PopularRoute, error) {
	return backend.Do(ctx, s.Timeout, s.Catalog.PopularRoutes)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func normalize(d models.RideDraft) models.RideDraft {
	d.Source = strings.TrimSpace(d.Source)
	d.Destination = strings.TrimSpace(d.Destination)
	d.DepartureTime = strings.TrimSpace(d.DepartureTime)
	d.VehicleModel = strings.TrimSpace(d.VehicleModel)
	d.VehicleColor = strings.TrimSpace(d.VehicleColor)
	if d.AvailableSeats == 0 {
		d.AvailableSeats = DefaultSeats
	}
	return d
}

func validateDraft(d models.RideDraft) error {
	var fields []string
	if d.Source == "" {
		fields = append(fields, "source")
	}
	if d.Destination == "" {
		fields = append(fields, "destination")
	}
	if _, err := time.Parse(time.DateOnly, d.Date); err != nil {
		fields = append(fields, "date")
	}
	if t, err := time.Parse("15:04", d.DepartureTime); err != nil || t.Format("15:04") != d.DepartureTime {
		fields = append(fields, "departure_time")
	}
	if d.PricePerSeat < 0 {
		fields = append(fields, "price_per_seat")
	}
	if d.AvailableSeats < 1 || d.AvailableSeats > MaxSeats {
		fields = append(fields, "available_seats")
	}
	if d.VehicleModel == "" {
		fields = append(fields, "vehicle_model")
	}
	if d.VehicleColor == "" {
		fields = append(fields, "vehicle_color")
	}
	if len(fields) > 0 {
		return models.NewValidationError("Please fill in all required fields", fields...)
	}
	return nil
}
