package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDriver, RolePassenger, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated user held by a session.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	AvatarRef   string `json:"avatar,omitempty"`
}

// Profile is the registration payload handed to the authenticator.
type Profile struct {
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        Role   `json:"role"`
}

// Money is a currency amount in cents.
type Money int64

func Dollars(d int64) Money { return Money(d * 100) }

func (m Money) String() string { return fmt.Sprintf("$%d.%02d", m/100, m%100) }

// MarshalJSON writes m in currency units ("35" or "35.5"), the unit every API
// field and query parameter uses. Storage and fixtures keep cents.
func (m Money) MarshalJSON() ([]byte, error) {
	sign := ""
	c := int64(m)
	if c < 0 {
		sign, c = "-", -c
	}
	if c%100 == 0 {
		return []byte(fmt.Sprintf("%s%d", sign, c/100)), nil
	}
	return []byte(strings.TrimRight(fmt.Sprintf("%s%d.%02d", sign, c/100, c%100), "0")), nil
}

// UnmarshalJSON reads a JSON number in currency units, rounded to the cent.
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	v, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMoney parses a decimal amount in currency units ("35", "35.5").
func ParseMoney(s string) (Money, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return Money(math.Round(f * 100)), nil
}

type DriverRef struct {
	ID          string  `json:"id" yaml:"id"`
	DisplayName string  `json:"name" yaml:"name"`
	AvatarRef   string  `json:"avatar,omitempty" yaml:"avatar"`
	Rating      float64 `json:"rating" yaml:"rating"` // 0..5
	Verified    bool    `json:"verified" yaml:"verified"`
}

// RideOffer is a driver-published ride as returned by a catalog search.
// Date is YYYY-MM-DD, times are zero-padded 24h HH:MM.
type RideOffer struct {
	ID             string    `json:"id" yaml:"id"`
	Driver         DriverRef `json:"driver" yaml:"driver"`
	Source         string    `json:"source" yaml:"source"`
	Destination    string    `json:"destination" yaml:"destination"`
	Date           string    `json:"date" yaml:"date"`
	DepartureTime  string    `json:"departure_time" yaml:"departure_time"`
	ArrivalTime    string    `json:"arrival_time" yaml:"arrival_time"`
	PricePerSeat   Money     `json:"price_per_seat" yaml:"price_per_seat"`
	AvailableSeats int       `json:"available_seats" yaml:"available_seats"`
	FemaleOnly     bool      `json:"female_only" yaml:"female_only"`
	VehicleModel   string    `json:"vehicle_model" yaml:"vehicle_model"`
	VehicleColor   string    `json:"vehicle_color" yaml:"vehicle_color"`
}

// SearchQuery is the route/date criteria sent to the catalog. Date may be empty.
type SearchQuery struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Date        string `json:"date,omitempty"`
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID             string        `json:"id"`
	RideRef        string        `json:"ride_id"`
	PassengerID    string        `json:"passenger_id"`
	PassengerCount int           `json:"passengers"`
	TotalPrice     Money         `json:"total_price"`
	Status         BookingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// BookingRequest is what the booking action asks the backend to acknowledge.
type BookingRequest struct {
	RideID         string `json:"ride_id"`
	PassengerID    string `json:"passenger_id"`
	PassengerCount int    `json:"passengers"`
}

type RideStatus string

const (
	RideUpcoming  RideStatus = "upcoming"
	RideCompleted RideStatus = "completed"
	RideCancelled RideStatus = "cancelled"
)

// RideDraft is a driver's request to publish a ride.
type RideDraft struct {
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	Date           string `json:"date"`
	DepartureTime  string `json:"departure_time"`
	AvailableSeats int    `json:"available_seats"`
	PricePerSeat   Money  `json:"price_per_seat"`
	VehicleModel   string `json:"vehicle_model"`
	VehicleColor   string `json:"vehicle_color"`
	FemaleOnly     bool   `json:"female_only"`
	Description    string `json:"description,omitempty"`
}

// Ride is a ride owned by a driver, as listed on the dashboard.
type Ride struct {
	ID             string     `json:"id"`
	DriverID       string     `json:"driver_id"`
	Source         string     `json:"source"`
	Destination    string     `json:"destination"`
	Date           string     `json:"date"`
	DepartureTime  string     `json:"departure_time"`
	PricePerSeat   Money      `json:"price_per_seat"`
	AvailableSeats int        `json:"available_seats"`
	BookedSeats    int        `json:"booked_seats"`
	FemaleOnly     bool       `json:"female_only"`
	VehicleModel   string     `json:"vehicle_model"`
	VehicleColor   string     `json:"vehicle_color"`
	Description    string     `json:"description,omitempty"`
	Status         RideStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

type PopularRoute struct {
	ID             string `json:"id" yaml:"id"`
	Source         string `json:"source" yaml:"source"`
	Destination    string `json:"destination" yaml:"destination"`
	Date           string `json:"date" yaml:"-"`
	DaysAhead      int    `json:"-" yaml:"days_ahead"`
	Price          Money  `json:"price" yaml:"price"`
	AvailableSeats int    `json:"available_seats" yaml:"available_seats"`
	TotalRides     int    `json:"total_rides" yaml:"total_rides"`
}
