package devserver

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrChallengeNotFound is returned when a code or claim token is absent,
// expired, or already consumed.
var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeStore holds the short-lived artifacts of the OTP flow: delivery
// codes keyed by identifier and single-use claim tokens. Claim tokens must be
// consumed atomically so a token can never be redeemed twice.
type ChallengeStore interface {
	PutCode(ctx context.Context, identifier, code string, ttl time.Duration) error
	// GetCode returns the pending code without consuming it; a wrong guess
	// does not burn the delivery.
	GetCode(ctx context.Context, identifier string) (string, error)
	DeleteCode(ctx context.Context, identifier string) error

	PutClaim(ctx context.Context, token, identifier string, ttl time.Duration) error
	// TakeClaim returns the identifier the claim token proves and removes
	// the token in the same step.
	TakeClaim(ctx context.Context, token string) (string, error)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryChallengeStore struct {
	mu     sync.Mutex
	codes  map[string]memoryEntry
	claims map[string]memoryEntry
}

// NewMemoryChallengeStore builds an in-memory challenge store, used when no
// Redis is configured and in tests.
func NewMemoryChallengeStore() ChallengeStore {
	return &memoryChallengeStore{
		codes:  make(map[string]memoryEntry),
		claims: make(map[string]memoryEntry),
	}
}

func (s *memoryChallengeStore) PutCode(_ context.Context, identifier, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[identifier] = memoryEntry{value: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryChallengeStore) GetCode(_ context.Context, identifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[identifier]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.codes, identifier)
		return "", ErrChallengeNotFound
	}
	return entry.value, nil
}

func (s *memoryChallengeStore) DeleteCode(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, identifier)
	return nil
}

func (s *memoryChallengeStore) PutClaim(_ context.Context, token, identifier string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[token] = memoryEntry{value: identifier, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryChallengeStore) TakeClaim(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.claims[token]
	delete(s.claims, token)
	if !ok || time.Now().After(entry.expiresAt) {
		return "", ErrChallengeNotFound
	}
	return entry.value, nil
}
