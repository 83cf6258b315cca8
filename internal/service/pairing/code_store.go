package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"signature-service/internal/domain"
	"signature-service/pkg/cache"
	xerrors "signature-service/pkg/xerrors"
)

const codeNamespace = "pairing:code"

// CodeStore holds pending pairing codes for their TTL. Consume must be
// atomic: two concurrent consumers of one code get exactly one hit.
type CodeStore interface {
	Put(ctx context.Context, code *domain.PairingCode, ttl time.Duration) error
	Consume(ctx context.Context, code string) (*domain.PairingCode, error)
	Exists(ctx context.Context, code string) (bool, error)
	TTL(ctx context.Context, code string) (time.Duration, error)
}

// RedisCodeStore keeps codes as JSON values under pairing:code:<CODE> with
// the TTL enforced by redis. Consume is a single GETDEL round trip.
type RedisCodeStore struct {
	cache *cache.Cache
}

func NewRedisCodeStore(c *cache.Cache) *RedisCodeStore {
	return &RedisCodeStore{cache: c}
}

func (s *RedisCodeStore) Put(ctx context.Context, pc *domain.PairingCode, ttl time.Duration) error {
	payload, err := json.Marshal(pc)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, codeNamespace, pc.Code, payload, ttl)
}

func (s *RedisCodeStore) Consume(ctx context.Context, code string) (*domain.PairingCode, error) {
	val, err := s.cache.GetDel(ctx, codeNamespace, code)
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, err
	}

	var pc domain.PairingCode
	if err := json.Unmarshal([]byte(val), &pc); err != nil {
		return nil, err
	}
	return &pc, nil
}

func (s *RedisCodeStore) Exists(ctx context.Context, code string) (bool, error) {
	return s.cache.Exists(ctx, codeNamespace, code)
}

// TTL reports the remaining lifetime. Redis returns a negative duration for
// missing keys; callers treat that as inactive.
func (s *RedisCodeStore) TTL(ctx context.Context, code string) (time.Duration, error) {
	return s.cache.GetTTL(ctx, codeNamespace, code)
}
