package devserver

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix  = "otp:code:v1:"
	claimKeyPrefix = "otp:claim:v1:"
)

type redisChallengeStore struct {
	cache *redis.Client
}

// NewRedisChallengeStore builds a Redis-backed challenge store. Expiry is
// enforced by key TTLs and claim consumption by an atomic GETDEL.
func NewRedisChallengeStore(cache *redis.Client) ChallengeStore {
	return &redisChallengeStore{cache: cache}
}

func (s *redisChallengeStore) PutCode(ctx context.Context, identifier, code string, ttl time.Duration) error {
	return s.cache.Set(ctx, codeKeyPrefix+identifier, code, ttl).Err()
}

func (s *redisChallengeStore) GetCode(ctx context.Context, identifier string) (string, error) {
	code, err := s.cache.Get(ctx, codeKeyPrefix+identifier).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *redisChallengeStore) DeleteCode(ctx context.Context, identifier string) error {
	return s.cache.Del(ctx, codeKeyPrefix+identifier).Err()
}

func (s *redisChallengeStore) PutClaim(ctx context.Context, token, identifier string, ttl time.Duration) error {
	return s.cache.Set(ctx, claimKeyPrefix+token, identifier, ttl).Err()
}

func (s *redisChallengeStore) TakeClaim(ctx context.Context, token string) (string, error) {
	identifier, err := s.cache.GetDel(ctx, claimKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", err
	}
	return identifier, nil
}
