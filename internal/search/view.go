package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/carpool/internal/backend"
	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/observability"
)

// Catalog is the ride catalog source a View fetches candidates from.
type Catalog interface {
	Search(ctx context.Context, q models.SearchQuery) ([]models.RideOffer, error)
}

// View holds the state of one search screen: the last candidate set and the
// active filter. Every Search bumps a generation counter so that a response
// belonging to a superseded search, or arriving after Close, is discarded.
type View struct {
	Catalog Catalog
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time

	mu         sync.Mutex
	gen        uint64
	query      models.SearchQuery
	candidates []models.RideOffer
	filter     FilterConfig
	searched   bool
}

func NewView(c Catalog, timeout time.Duration, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{Catalog: c, Timeout: timeout, Logger: logger, Now: time.Now, filter: DefaultFilter()}
}

// Search fetches a new candidate set for q and returns it refined by the
// current filter. ErrStale is returned when a newer Search or Close happened
// while this one was in flight.
func (v *View) Search(ctx context.Context, q models.SearchQuery) ([]models.RideOffer, error) {
	q.Source = strings.TrimSpace(q.Source)
	q.Destination = strings.TrimSpace(q.Destination)
	if q.Source == "" || q.Destination == "" {
		observability.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, models.NewValidationError("Please enter both source and destination", missing(q)...)
	}
	if q.Date == "" {
		q.Date = v.Now().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, q.Date); err != nil {
		observability.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, models.NewValidationError("date must be YYYY-MM-DD", "date")
	}

	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	start := time.Now()
	offers, err := backend.Do(ctx, v.Timeout, func(ctx context.Context) ([]models.RideOffer, error) {
		return v.Catalog.Search(ctx, q)
	})
	observability.SearchLatency.Observe(time.Since(start).Seconds())

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		observability.SearchesTotal.WithLabelValues("stale").Inc()
		v.Logger.Debug("dropping stale search result", "generation", gen, "current", v.gen)
		return nil, models.ErrStale
	}
	if err != nil {
		observability.SearchesTotal.WithLabelValues(outcome(err)).Inc()
		return nil, fmt.Errorf("search %s -> %s: %w", q.Source, q.Destination, err)
	}
	observability.SearchesTotal.WithLabelValues("ok").Inc()
	v.query = q
	v.candidates = offers
	v.searched = true
	return v.refineLocked(), nil
}

// SetFilter replaces the active filter and returns the re-refined candidates.
func (v *View) SetFilter(cfg FilterConfig) ([]models.RideOffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = cfg
	return v.refineLocked(), nil
}

// ResetFilter restores DefaultFilter.
func (v *View) ResetFilter() []models.RideOffer {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = DefaultFilter()
	return v.refineLocked()
}

func (v *View) Filter() FilterConfig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Results returns the last candidate set refined by the active filter, the
// query that produced it and whether any search has completed.
func (v *View) Results() ([]models.RideOffer, models.SearchQuery, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refineLocked(), v.query, v.searched
}

// Offer looks up a candidate from the last search by id.
func (v *View) Offer(id string) (models.RideOffer, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, o := range v.candidates {
		if o.ID == id {
			return o, true
		}
	}
	return models.RideOffer{}, false
}

// Invalidate drops the candidate set, e.g. after a booking made it stale.
func (v *View) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.candidates = nil
	v.searched = false
}

// Close invalidates any in-flight search. The view may be reused afterwards.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.candidates = nil
	v.searched = false
}

func (v *View) refineLocked() []models.RideOffer {
	out := Refine(v.candidates, v.filter)
	observability.RefineResults.Observe(float64(len(out)))
	return out
}

func missing(q models.SearchQuery) []string {
	var f []string
	if q.Source == "" {
		f = append(f, "source")
	}
	if q.Destination == "" {
		f = append(f, "destination")
	}
	return f
}

func outcome(err error) string {
	switch {
	case errors.Is(err, models.ErrTimeout):
		return "timeout"
	case errors.Is(err, models.ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}
