// Package backend defines the remote collaborator the carpool core talks to
// and ships two implementations: a simulated in-process backend and an HTTP
// client for a real one.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/carpool/internal/models"
)

// Backend is the full capability set consumed by the session, search,
// booking and ride services. Each consumer declares the subset it needs.
type Backend interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.RideOffer, error)
	Authenticate(ctx context.Context, email, password string) (models.Identity, error)
	CreateAccount(ctx context.Context, p models.Profile) (models.Identity, error)
	Book(ctx context.Context, req models.BookingRequest) (models.Booking, error)
	PublishRide(ctx context.Context, driver models.Identity, d models.RideDraft) (models.Ride, error)
	PopularRoutes(ctx context.Context) ([]models.PopularRoute, error)
}

// Do runs fn under timeout and reports an expired deadline as models.ErrTimeout.
// A zero timeout leaves ctx untouched.
func Do[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return v, err
}
