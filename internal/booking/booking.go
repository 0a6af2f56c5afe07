// Package booking implements the capability-gated booking action.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/carpool/internal/backend"
	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/observability"
	"github.com/example/carpool/internal/storage"
)

// Booker acknowledges bookings on the remote catalog.
type Booker interface {
	Book(ctx context.Context, req models.BookingRequest) (models.Booking, error)
}

type Publisher interface {
	PublishBooking(ctx context.Context, b models.Booking) error
}

type Service struct {
	Backend Booker
	Store   storage.BookingStore // optional
	Events  Publisher            // optional
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewService(b Booker, store storage.BookingStore, events Publisher, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Backend: b, Store: store, Events: events, Timeout: timeout, Logger: logger}
}

// Book reserves passengerCount seats on offer for identity.
//
// A nil identity fails with ErrAuthRequired and a count above the offer's
// available seats with ErrInsufficientSeats, before the backend is contacted.
// The offer itself is not updated: callers must re-fetch the candidate list.
func (s *Service) Book(ctx context.Context, identity *models.Identity, offer models.RideOffer, passengerCount int) (models.Booking, error) {
	if identity == nil {
		observability.BookingsTotal.WithLabelValues("auth_required").Inc()
		return models.Booking{}, models.ErrAuthRequired
	}
	if passengerCount < 1 {
		observability.BookingsTotal.WithLabelValues("invalid").Inc()
		return models.Booking{}, models.NewValidationError("at least one passenger is required", "passengers")
	}
	if passengerCount > offer.AvailableSeats {
		observability.BookingsTotal.WithLabelValues("insufficient_seats").Inc()
		return models.Booking{}, models.ErrInsufficientSeats
	}

	req := models.BookingRequest{RideID: offer.ID, PassengerID: identity.ID, PassengerCount: passengerCount}
	b, err := backend.Do(ctx, s.Timeout, func(ctx context.Context) (models.Booking, error) {
		return s.Backend.Book(ctx, req)
	})
	if err != nil {
		observability.BookingsTotal.WithLabelValues(outcome(err)).Inc()
		return models.Booking{}, fmt.Errorf("book ride %s: %w", offer.ID, err)
	}
	b.RideRef = offer.ID
	b.PassengerID = identity.ID
	b.PassengerCount = passengerCount
	b.TotalPrice = offer.PricePerSeat * models.Money(passengerCount)
	b.Status = models.BookingConfirmed
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	s.record(ctx, b)
	observability.BookingsTotal.WithLabelValues("confirmed").Inc()
	s.Logger.Info("booking_confirmed", "booking_id", b.ID, "ride_id", b.RideRef, "passengers", passengerCount, "total_cents", int64(b.TotalPrice))
	return b, nil
}

// record keeps the local dashboard copy and emits the event. The backend has
// already confirmed the booking, so failures here are logged, not returned.
func (s *Service) record(ctx context.Context, b models.Booking) {
	if s.Store != nil {
		if err := s.Store.SaveBooking(ctx, &b); err != nil {
			s.Logger.Error("booking not recorded", "booking_id", b.ID, "error", err)
		}
	}
	if s.Events != nil {
		if err := s.Events.PublishBooking(ctx, b); err != nil {
			s.Logger.Warn("booking event not published", "booking_id", b.ID, "error", err)
		}
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientSeats):
		return "insufficient_seats"
	case errors.Is(err, models.ErrTimeout):
		return "timeout"
	case errors.Is(err, models.ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}
