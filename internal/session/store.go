package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/finnri/finnri/internal/api"
)

// Store is the single authoritative answer to "who is logged in, and with
// what token". It hydrates from a Storage at startup and writes through to it
// on every change. Establish is last-write-wins if callers race.
type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  *slog.Logger
	token   string
	user    *api.User
	loading bool
}

// NewStore builds a Store over the given storage. The store reports
// Loading() == true until Hydrate has run.
func NewStore(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: storage, logger: logger, loading: true}
}

// Hydrate restores the persisted session. A cached user record that fails to
// deserialize is discarded (and dropped from storage) while the token is
// conservatively kept; corruption never crashes the process. The loading flag
// clears once hydration completes, whatever the outcome.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.loading = false }()

	token, raw, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if token == "" {
		return nil
	}

	s.token = token
	if len(raw) == 0 {
		return nil
	}

	var user api.User
	if err := json.Unmarshal(raw, &user); err != nil {
		s.logger.Warn("discarding corrupt cached user record", "error", err)
		if err := s.storage.Save(ctx, token, nil); err != nil {
			s.logger.Warn("dropping corrupt user record from storage failed", "error", err)
		}
		return nil
	}
	s.user = &user
	return nil
}

// Establish replaces the in-memory session and writes it through to storage.
func (s *Store) Establish(ctx context.Context, token string, user api.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = &user

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Save(ctx, token, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Teardown clears the in-memory session and the storage. Idempotent: calling
// it with no active session still leaves storage empty and returns nil.
func (s *Store) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil
	if err := s.storage.Clear(ctx); err != nil {
		return fmt.Errorf("clear session storage: %w", err)
	}
	return nil
}

// Token returns the current bearer token, or empty if unauthenticated. It
// satisfies api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the cached user record, if any.
func (s *Store) User() (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return api.User{}, false
	}
	return *s.user, true
}

// GuestUUID returns the UUID of the current user when it is a guest account,
// for binding its history at registration time. Empty otherwise.
func (s *Store) GuestUUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil && s.user.IsGuest {
		return s.user.UUID
	}
	return ""
}

// Authenticated reports whether a session token is held.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Loading reports whether hydration is still pending. UIs use this to avoid
// redirecting before the persisted session has been read.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
