package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/example/carpool/internal/models"
)

// BookingStore persists bookings made through the booking action.
type BookingStore interface {
	SaveBooking(ctx context.Context, b *models.Booking) error
	ListBookings(ctx context.Context, passengerID string) ([]models.Booking, error)
}

// RideStore persists rides published by drivers.
type RideStore interface {
	SaveRide(ctx context.Context, r *models.Ride) error
	ListRides(ctx context.Context, driverID string) ([]models.Ride, error)
}

// MemoryStore keeps bookings and rides in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[string]models.Booking
	rides    map[string]models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[string]models.Booking), rides: make(map[string]models.Ride)}
}

// SaveBooking inserts or replaces b.
func (m *MemoryStore) SaveBooking(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = *b
	return nil
}

// ListBookings returns the passenger's bookings, newest first.
func (m *MemoryStore) ListBookings(_ context.Context, passengerID string) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Booking, 0)
	for _, b := range m.bookings {
		if b.PassengerID == passengerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveRide(_ context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[r.ID] = *r
	return nil
}

// ListRides returns the driver's rides ordered by date and departure time.
func (m *MemoryStore) ListRides(_ context.Context, driverID string) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0)
	for _, r := range m.rides {
		if r.DriverID == driverID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].DepartureTime < out[j].DepartureTime
	})
	return out, nil
}
