package httpapi

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/notify"
	"github.com/example/carpool/internal/search"
)

type capabilities struct {
	CanBook       bool `json:"can_book"`
	CanCreateRide bool `json:"can_create_ride"`
}

type sessionResponse struct {
	User         *models.Identity `json:"user"`
	Capabilities capabilities     `json:"capabilities"`
}

func sessionView(cs *clientSession) sessionResponse {
	return sessionResponse{
		User:         cs.store.Current(),
		Capabilities: capabilities{CanBook: cs.store.CanBook(), CanCreateRide: cs.store.CanCreateRide()},
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionView(clientFrom(r.Context())))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	cs := clientFrom(r.Context())
	if _, err := cs.store.Login(r.Context(), body.Email, body.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(cs))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if err := decodeJSON(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	cs := clientFrom(r.Context())
	if _, err := cs.store.Register(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(cs))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := clientFrom(r.Context()).store.Logout(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchResponse struct {
	Query  models.SearchQuery  `json:"query"`
	Filter search.FilterConfig `json:"filter"`
	Rides  []models.RideOffer  `json:"rides"`
}

// handleSearch fetches a fresh candidate set. Filter parameters, if any,
// become the active filter only once the search has succeeded.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	cs := clientFrom(r.Context())
	q := r.URL.Query()
	var pending *search.FilterConfig
	if hasFilterParams(q) {
		cfg, err := filterFromQuery(q, cs.view.Filter())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		pending = &cfg
	}
	query := models.SearchQuery{Source: q.Get("source"), Destination: q.Get("destination"), Date: q.Get("date")}
	offers, err := cs.view.Search(r.Context(), query)
	if err == nil && pending != nil {
		offers, err = cs.view.SetFilter(*pending)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, last, _ := cs.view.Results()
	writeJSON(w, http.StatusOK, searchResponse{Query: last, Filter: cs.view.Filter(), Rides: offers})
}

// handleResults re-refines the last candidate set without contacting the
// catalog. reset=true restores the default filter.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	cs := clientFrom(r.Context())
	q := r.URL.Query()
	switch {
	case q.Get("reset") == "true":
		cs.view.ResetFilter()
	case hasFilterParams(q):
		cfg, err := filterFromQuery(q, cs.view.Filter())
		if err == nil {
			_, err = cs.view.SetFilter(cfg)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	offers, last, _ := cs.view.Results()
	writeJSON(w, http.StatusOK, searchResponse{Query: last, Filter: cs.view.Filter(), Rides: offers})
}

// handleCloseSearch is sent when the search screen goes away; any search
// still in flight for this session is discarded.
func (s *Server) handleCloseSearch(w http.ResponseWriter, r *http.Request) {
	clientFrom(r.Context()).view.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	var d models.RideDraft
	if err := decodeJSON(r, &d); err != nil {
		s.writeError(w, r, err)
		return
	}
	cs := clientFrom(r.Context())
	ride, err := s.rides.Create(r.Context(), cs.store.Current(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.notify(cs, "Ride created!", "Your ride has been successfully created.")
	writeJSON(w, http.StatusCreated, ride)
}

type bookingResponse struct {
	Booking models.Booking `json:"booking"`
	// RefreshRequired tells the client its ride list no longer reflects seat counts.
	RefreshRequired bool `json:"refresh_required"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Passengers int `json:"passengers"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if body.Passengers == 0 {
		body.Passengers = 1
	}
	cs := clientFrom(r.Context())
	identity := cs.store.Current()
	if identity == nil {
		s.writeError(w, r, models.ErrAuthRequired)
		return
	}
	offer, ok := cs.view.Offer(mux.Vars(r)["ride_id"])
	if !ok {
		s.writeError(w, r, models.ErrNotFound)
		return
	}
	b, err := s.bookings.Book(r.Context(), identity, offer, body.Passengers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cs.view.Invalidate()
	s.notify(cs, "Ride booked!", "Your ride has been successfully booked.")
	writeJSON(w, http.StatusCreated, bookingResponse{Booking: b, RefreshRequired: true})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.rides.Dashboard(r.Context(), clientFrom(r.Context()).store.Current())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handlePopularRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.rides.PopularRoutes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

func (s *Server) notify(cs *clientSession, title, description string) {
	// best-effort: a client without an open socket still gets the HTTP response
	_ = s.notifier.Notify(cs.id, notify.Notification{Title: title, Description: description, Variant: notify.VariantDefault})
}

var filterParams = []string{"min_price", "max_price", "female_only", "min_seats", "sort"}

func hasFilterParams(q url.Values) bool {
	for _, p := range filterParams {
		if q.Has(p) {
			return true
		}
	}
	return false
}

// filterFromQuery overlays the filter parameters present in q onto base.
// Prices are in currency units, the same unit as every price field.
func filterFromQuery(q url.Values, base search.FilterConfig) (search.FilterConfig, error) {
	cfg := base
	var bad []string
	if v := q.Get("min_price"); v != "" {
		if m, err := models.ParseMoney(v); err == nil {
			cfg.PriceRange.Min = m
		} else {
			bad = append(bad, "min_price")
		}
	}
	if v := q.Get("max_price"); v != "" {
		if m, err := models.ParseMoney(v); err == nil {
			cfg.PriceRange.Max = m
		} else {
			bad = append(bad, "max_price")
		}
	}
	if v := q.Get("female_only"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.FemaleOnlyRequired = b
		} else {
			bad = append(bad, "female_only")
		}
	}
	if v := q.Get("min_seats"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinSeats = n
		} else {
			bad = append(bad, "min_seats")
		}
	}
	if q.Has("sort") {
		cfg.SortKey = search.ParseSortKey(q.Get("sort"))
	}
	if len(bad) > 0 {
		return base, models.NewValidationError("invalid filter", bad...)
	}
	return cfg, cfg.Validate()
}
