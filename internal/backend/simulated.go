package backend

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/example/carpool/internal/models"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the literal catalog data served by the simulated backend.
type Fixtures struct {
	Offers        []models.RideOffer    `yaml:"offers"`
	PopularRoutes []models.PopularRoute `yaml:"popular_routes"`
}

// LoadFixtures parses fixtures from path, or the embedded defaults when path is empty.
func LoadFixtures(path string) (Fixtures, error) {
	b := defaultFixtures
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
		}
	}
	var f Fixtures
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

type account struct {
	identity models.Identity
	hash     []byte
}

type publishedRide struct {
	ride   models.Ride
	driver models.Identity
}

// Simulated is an in-process Backend. Every call waits a fixed latency
// before answering, standing in for a round trip to the real API.
type Simulated struct {
	Latency  time.Duration
	HashCost int
	Now      func() time.Time

	fixtures Fixtures

	mu       sync.RWMutex
	accounts map[string]account // by lower-cased email
	rides    map[string]*publishedRide
	order    []string
}

func NewSimulated(f Fixtures, latency time.Duration) *Simulated {
	return &Simulated{
		Latency:  latency,
		HashCost: bcrypt.DefaultCost,
		Now:      time.Now,
		fixtures: f,
		accounts: make(map[string]account),
		rides:    make(map[string]*publishedRide),
	}
}

func (s *Simulated) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Search returns the fixture offers stamped with the queried route and date,
// followed by published rides on the same route and date.
func (s *Simulated) Search(ctx context.Context, q models.SearchQuery) ([]models.RideOffer, error) {
	if err := s.wait(ctx, s.Latency*3/2); err != nil {
		return nil, err
	}
	date := q.Date
	if date == "" {
		date = s.Now().Format(time.DateOnly)
	}
	out := make([]models.RideOffer, 0, len(s.fixtures.Offers))
	for _, o := range s.fixtures.Offers {
		o.Source = q.Source
		o.Destination = q.Destination
		o.Date = date
		out = append(out, o)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		p := s.rides[id]
		r := p.ride
		if r.Status != models.RideUpcoming || r.Date != date ||
			!strings.EqualFold(r.Source, q.Source) || !strings.EqualFold(r.Destination, q.Destination) {
			continue
		}
		out = append(out, models.RideOffer{
			ID:             r.ID,
			Driver:         models.DriverRef{ID: p.driver.ID, DisplayName: p.driver.DisplayName, AvatarRef: p.driver.AvatarRef},
			Source:         r.Source,
			Destination:    r.Destination,
			Date:           r.Date,
			DepartureTime:  r.DepartureTime,
			PricePerSeat:   r.PricePerSeat,
			AvailableSeats: r.AvailableSeats,
			FemaleOnly:     r.FemaleOnly,
			VehicleModel:   r.VehicleModel,
			VehicleColor:   r.VehicleColor,
		})
	}
	return out, nil
}

// Authenticate verifies a registered account against its password hash.
// Unknown emails are let in as the demo passenger.
func (s *Simulated) Authenticate(ctx context.Context, email, password string) (models.Identity, error) {
	if err := s.wait(ctx, s.Latency); err != nil {
		return models.Identity{}, err
	}
	if email == "" || password == "" {
		return models.Identity{}, models.ErrAuth
	}
	s.mu.RLock()
	acc, ok := s.accounts[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return models.Identity{ID: "user-123", DisplayName: "John Doe", Email: email, Role: models.RolePassenger}, nil
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return models.Identity{}, models.ErrAuth
	}
	return acc.identity, nil
}

func (s *Simulated) CreateAccount(ctx context.Context, p models.Profile) (models.Identity, error) {
	if err := s.wait(ctx, s.Latency); err != nil {
		return models.Identity{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.HashCost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	id := models.Identity{
		ID:          "user-" + uuid.NewString(),
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Role:        p.Role,
	}
	key := strings.ToLower(p.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.accounts[key]; taken {
		return models.Identity{}, models.NewValidationError("email already registered", "email")
	}
	s.accounts[key] = account{identity: id, hash: hash}
	return id, nil
}

// Book acknowledges a booking. Seats are only tracked for rides published
// through this backend; fixture offers are always acknowledged.
func (s *Simulated) Book(ctx context.Context, req models.BookingRequest) (models.Booking, error) {
	if err := s.wait(ctx, s.Latency); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.rides[req.RideID]; ok {
		if p.ride.AvailableSeats < req.PassengerCount {
			return models.Booking{}, models.ErrInsufficientSeats
		}
		p.ride.AvailableSeats -= req.PassengerCount
		p.ride.BookedSeats += req.PassengerCount
	}
	return models.Booking{
		ID:             "booking-" + uuid.NewString(),
		RideRef:        req.RideID,
		PassengerID:    req.PassengerID,
		PassengerCount: req.PassengerCount,
		Status:         models.BookingConfirmed,
		CreatedAt:      s.Now().UTC(),
	}, nil
}

func (s *Simulated) PublishRide(ctx context.Context, driver models.Identity, d models.RideDraft) (models.Ride, error) {
	if err := s.wait(ctx, s.Latency*3/2); err != nil {
		return models.Ride{}, err
	}
	r := models.Ride{
		ID:             "ride-" + uuid.NewString(),
		DriverID:       driver.ID,
		Source:         d.Source,
		Destination:    d.Destination,
		Date:           d.Date,
		DepartureTime:  d.DepartureTime,
		PricePerSeat:   d.PricePerSeat,
		AvailableSeats: d.AvailableSeats,
		FemaleOnly:     d.FemaleOnly,
		VehicleModel:   d.VehicleModel,
		VehicleColor:   d.VehicleColor,
		Description:    d.Description,
		Status:         models.RideUpcoming,
		CreatedAt:      s.Now().UTC(),
	}
	s.mu.Lock()
	s.rides[r.ID] = &publishedRide{ride: r, driver: driver}
	s.order = append(s.order, r.ID)
	s.mu.Unlock()
	return r, nil
}

func (s *Simulated) PopularRoutes(ctx context.Context) ([]models.PopularRoute, error) {
	if err := s.wait(ctx, s.Latency); err != nil {
		return nil, err
	}
	today := s.Now()
	out := make([]models.PopularRoute, 0, len(s.fixtures.PopularRoutes))
	for _, r := range s.fixtures.PopularRoutes {
		r.Date = today.AddDate(0, 0, r.DaysAhead).Format(time.DateOnly)
		out = append(out, r)
	}
	return out, nil
}
