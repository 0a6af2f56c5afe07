package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/example/carpool/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already opened handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate executes a schema script.
func (p *PostgresStore) Migrate(ctx context.Context, script string) error {
	_, err := p.db.ExecContext(ctx, script)
	return err
}

// SaveBooking upserts b so replays from the event stream are harmless.
func (p *PostgresStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO bookings(id, ride_id, passenger_id, passenger_count, total_cents, status, created_at) VALUES($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		b.ID, b.RideRef, b.PassengerID, b.PassengerCount, int64(b.TotalPrice), string(b.Status), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("save booking %s: %w", b.ID, err)
	}
	return nil
}

func (p *PostgresStore) ListBookings(ctx context.Context, passengerID string) ([]models.Booking, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, ride_id, passenger_id, passenger_count, total_cents, status, created_at FROM bookings WHERE passenger_id = $1 ORDER BY created_at DESC`, passengerID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	out := make([]models.Booking, 0)
	for rows.Next() {
		var (
			b      models.Booking
			total  int64
			status string
		)
		if err := rows.Scan(&b.ID, &b.RideRef, &b.PassengerID, &b.PassengerCount, &total, &status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.TotalPrice = models.Money(total)
		b.Status = models.BookingStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SaveRide(ctx context.Context, r *models.Ride) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO rides(id, driver_id, source, destination, ride_date, departure_time, price_cents, available_seats, booked_seats, female_only, vehicle_model, vehicle_color, description, status, created_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET available_seats = EXCLUDED.available_seats, booked_seats = EXCLUDED.booked_seats, status = EXCLUDED.status`,
		r.ID, r.DriverID, r.Source, r.Destination, r.Date, r.DepartureTime, int64(r.PricePerSeat), r.AvailableSeats, r.BookedSeats,
		r.FemaleOnly, r.VehicleModel, r.VehicleColor, r.Description, string(r.Status), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("save ride %s: %w", r.ID, err)
	}
	return nil
}

func (p *PostgresStore) ListRides(ctx context.Context, driverID string) ([]models.Ride, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, driver_id, source, destination, ride_date, departure_time, price_cents, available_seats, booked_seats, female_only, vehicle_model, vehicle_color, description, status, created_at FROM rides WHERE driver_id = $1 ORDER BY ride_date, departure_time`, driverID)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()
	out := make([]models.Ride, 0)
	for rows.Next() {
		var (
			r      models.Ride
			price  int64
			status string
		)
		if err := rows.Scan(&r.ID, &r.DriverID, &r.Source, &r.Destination, &r.Date, &r.DepartureTime, &price, &r.AvailableSeats,
			&r.BookedSeats, &r.FemaleOnly, &r.VehicleModel, &r.VehicleColor, &r.Description, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		r.PricePerSeat = models.Money(price)
		r.Status = models.RideStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
