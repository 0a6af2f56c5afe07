// Package session holds the identity of one client session and the
// capability checks derived from it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/example/carpool/internal/backend"
	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/observability"
)

// Key is the slot the identity is persisted under.
const Key = "user"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// KV is the persistence the store needs: a single durable slot.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Authenticator verifies credentials and creates accounts.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.Identity, error)
	CreateAccount(ctx context.Context, p models.Profile) (models.Identity, error)
}

// Store is the session of one client. It is safe for concurrent use, but
// callers are expected not to overlap Login/Register calls.
type Store struct {
	kv      KV
	auth    Authenticator
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	identity *models.Identity
}

func NewStore(kv KV, auth Authenticator, timeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, auth: auth, timeout: timeout, logger: logger}
}

// Restore loads a previously persisted identity. A slot that cannot be
// decoded is deleted and the session starts anonymous.
func (s *Store) Restore(ctx context.Context) error {
	b, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil
	}
	var id models.Identity
	if err := json.Unmarshal(b, &id); err != nil || id.ID == "" {
		s.logger.Warn("discarding unreadable session slot", "error", err)
		return s.kv.Delete(ctx, Key)
	}
	s.mu.Lock()
	s.identity = &id
	s.mu.Unlock()
	return nil
}

// Identity returns the current identity, if any.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

// Current returns the identity as a pointer, nil when anonymous.
func (s *Store) Current() *models.Identity {
	id, ok := s.Identity()
	if !ok {
		return nil
	}
	return &id
}

func (s *Store) Login(ctx context.Context, email, password string) (models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		observability.LoginsTotal.WithLabelValues("login", "rejected").Inc()
		return models.Identity{}, models.ErrAuth
	}
	id, err := backend.Do(ctx, s.timeout, func(ctx context.Context) (models.Identity, error) {
		return s.auth.Authenticate(ctx, email, password)
	})
	if err != nil {
		if errors.Is(err, models.ErrAuth) {
			observability.LoginsTotal.WithLabelValues("login", "rejected").Inc()
			return models.Identity{}, err
		}
		observability.LoginsTotal.WithLabelValues("login", "error").Inc()
		return models.Identity{}, fmt.Errorf("login: %w", err)
	}
	if err := s.persist(ctx, id); err != nil {
		return models.Identity{}, err
	}
	observability.LoginsTotal.WithLabelValues("login", "ok").Inc()
	s.logger.Info("session_login", "user_id", id.ID, "role", id.Role)
	return id, nil
}

// Register validates p, creates the account and signs the new user in.
func (s *Store) Register(ctx context.Context, p models.Profile) (models.Identity, error) {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Email = strings.TrimSpace(p.Email)
	if err := validateProfile(p); err != nil {
		observability.LoginsTotal.WithLabelValues("register", "invalid").Inc()
		return models.Identity{}, err
	}
	id, err := backend.Do(ctx, s.timeout, func(ctx context.Context) (models.Identity, error) {
		return s.auth.CreateAccount(ctx, p)
	})
	if err != nil {
		observability.LoginsTotal.WithLabelValues("register", "error").Inc()
		return models.Identity{}, fmt.Errorf("register: %w", err)
	}
	if err := s.persist(ctx, id); err != nil {
		return models.Identity{}, err
	}
	observability.LoginsTotal.WithLabelValues("register", "ok").Inc()
	s.logger.Info("session_register", "user_id", id.ID, "role", id.Role)
	return id, nil
}

// Logout forgets the identity. The in-memory identity is always cleared,
// even when deleting the persisted slot fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()
	if err := s.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) CanCreateRide() bool {
	id, ok := s.Identity()
	return ok && id.Role == models.RoleDriver
}

func (s *Store) CanBook() bool {
	_, ok := s.Identity()
	return ok
}

func (s *Store) persist(ctx context.Context, id models.Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, Key, b); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.mu.Lock()
	s.identity = &id
	s.mu.Unlock()
	return nil
}

func validateProfile(p models.Profile) error {
	var fields []string
	if p.DisplayName == "" {
		fields = append(fields, "name")
	}
	if !emailRegex.MatchString(p.Email) {
		fields = append(fields, "email")
	}
	if p.Password == "" {
		fields = append(fields, "password")
	}
	if p.Role != models.RoleDriver && p.Role != models.RolePassenger {
		fields = append(fields, "role")
	}
	if len(fields) > 0 {
		return models.NewValidationError("missing or invalid fields", fields...)
	}
	return nil
}
