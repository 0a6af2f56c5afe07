package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/carpool/internal/auth"
	"github.com/example/carpool/internal/backend"
	"github.com/example/carpool/internal/observability"
	"github.com/example/carpool/internal/search"
	"github.com/example/carpool/internal/session"
	"github.com/example/carpool/internal/storage"
)

const (
	sessionCookie = "session"
	sessionHeader = "X-Session-Token"
)

// clientSession is the per-client state: its session store and search view.
// Nothing here is shared between clients.
type clientSession struct {
	id       string
	store    *session.Store
	view     *search.View
	lastSeen time.Time
}

type sessionRegistry struct {
	kv      storage.KV
	backend backend.Backend
	timeout time.Duration
	idle    time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	byID map[string]*clientSession
}

func newSessionRegistry(kv storage.KV, b backend.Backend, timeout, idle time.Duration, logger *slog.Logger) *sessionRegistry {
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &sessionRegistry{kv: kv, backend: b, timeout: timeout, idle: idle, logger: logger, byID: make(map[string]*clientSession)}
}

// get returns the live session for id, restoring it from the session slot
// when it is not held in memory. A session is only published once restored.
func (r *sessionRegistry) get(ctx context.Context, id string) *clientSession {
	now := time.Now()
	r.mu.Lock()
	if cs, ok := r.byID[id]; ok {
		cs.lastSeen = now
		r.mu.Unlock()
		return cs
	}
	r.mu.Unlock()

	cs := &clientSession{
		id:       id,
		store:    session.NewStore(storage.Namespaced{KV: r.kv, NS: "session:" + id}, r.backend, r.timeout, r.logger),
		view:     search.NewView(r.backend, r.timeout, r.logger),
		lastSeen: now,
	}
	if err := cs.store.Restore(ctx); err != nil {
		r.logger.Warn("session restore failed", "session_id", id, "error", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// a concurrent request may have restored the same session first
	if existing, ok := r.byID[id]; ok {
		existing.lastSeen = now
		return existing
	}
	r.evictIdleLocked(now)
	r.byID[id] = cs
	observability.SessionsActive.Set(float64(len(r.byID)))
	return cs
}

// evictIdleLocked drops in-memory state of idle sessions. Their identity
// stays in the session slot and is restored on the next request.
func (r *sessionRegistry) evictIdleLocked(now time.Time) {
	for id, cs := range r.byID {
		if now.Sub(cs.lastSeen) > r.idle {
			cs.view.Close()
			delete(r.byID, id)
		}
	}
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cs := range r.byID {
		cs.view.Close()
		delete(r.byID, id)
	}
	observability.SessionsActive.Set(0)
}

type clientKey struct{}

func clientFrom(ctx context.Context) *clientSession {
	cs, _ := ctx.Value(clientKey{}).(*clientSession)
	return cs
}

// sessionMiddleware resolves the client session from the bearer token or
// session cookie, starting a new anonymous session when neither verifies.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, err := s.tokens.Parse(tokenFrom(r))
		if err != nil {
			sid = auth.NewSessionID()
			tok, err := s.tokens.Issue(sid)
			if err != nil {
				s.logger.Error("issue session token", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: tok, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
			w.Header().Set(sessionHeader, tok)
		}
		cs := s.sessions.get(r.Context(), sid)
		ctx := context.WithValue(r.Context(), clientKey{}, cs)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}
