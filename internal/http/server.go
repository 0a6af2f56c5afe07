package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/carpool/internal/auth"
	"github.com/example/carpool/internal/backend"
	"github.com/example/carpool/internal/booking"
	"github.com/example/carpool/internal/notify"
	"github.com/example/carpool/internal/rides"
	"github.com/example/carpool/internal/storage"
)

// Options wires the server's collaborators.
type Options struct {
	Backend         backend.Backend
	SessionKV       storage.KV
	Bookings        *booking.Service
	Rides           *rides.Service
	Tokens          *auth.TokenService
	Notifier        *notify.Registry
	Logger          *slog.Logger
	BackendTimeout  time.Duration
	SessionIdle     time.Duration
	LoginRatePerMin int
	// TrustedProxies are the peers whose X-Forwarded-For header is believed.
	TrustedProxies []netip.Prefix
	// Ready reports whether external dependencies are reachable.
	Ready func(ctx context.Context) error
}

// Server is the JSON API the presentation layer talks to.
type Server struct {
	bookings       *booking.Service
	rides          *rides.Service
	tokens         *auth.TokenService
	notifier       *notify.Registry
	sessions       *sessionRegistry
	limiter        *ipLimiter
	trustedProxies []netip.Prefix
	ready          func(ctx context.Context) error
	logger         *slog.Logger
	mux            *mux.Router
}

func NewServer(o Options) *Server {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Notifier == nil {
		o.Notifier = notify.NewRegistry()
	}
	s := &Server{
		bookings:       o.Bookings,
		rides:          o.Rides,
		tokens:         o.Tokens,
		notifier:       o.Notifier,
		sessions:       newSessionRegistry(o.SessionKV, o.Backend, o.BackendTimeout, o.SessionIdle, o.Logger),
		limiter:        newIPLimiter(o.LoginRatePerMin),
		trustedProxies: o.TrustedProxies,
		ready:          o.Ready,
		logger:         o.Logger,
		mux:            mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.Use(s.sessionMiddleware)

	api.HandleFunc("/session", s.handleGetSession).Methods(http.MethodGet)
	api.Handle("/session", s.rateLimited(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	api.Handle("/session/register", s.rateLimited(http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)
	api.HandleFunc("/session", s.handleLogout).Methods(http.MethodDelete)

	api.HandleFunc("/rides/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/rides/search", s.handleCloseSearch).Methods(http.MethodDelete)
	api.HandleFunc("/rides/results", s.handleResults).Methods(http.MethodGet)
	api.HandleFunc("/rides", s.handleCreateRide).Methods(http.MethodPost)
	api.HandleFunc("/rides/{ride_id}/bookings", s.handleBook).Methods(http.MethodPost)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/routes/popular", s.handlePopularRoutes).Methods(http.MethodGet)

	s.mux.Handle("/ws", s.sessionMiddleware(http.HandlerFunc(s.handleWS)))
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Close drops every in-memory client session.
func (s *Server) Close() { s.sessions.closeAll() }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	cs := clientFrom(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.notifier.Add(cs.id, conn)
	go func() {
		defer s.notifier.Remove(cs.id, conn)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
