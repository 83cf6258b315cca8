package artifact

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"signature-service/internal/repository"
)

const (
	blobKeyPrefix = "sig:artifact:blob:"
	sizesKey      = "sig:artifact:sizes"
)

// Store is the signature artifact cache. It is explicitly a cache: redis may
// evict a blob at any point, in which case retrieval falls back to the
// durable row and re-primes the cache. Callers must not assume cached
// artifacts survive indefinitely.
type Store interface {
	Store(ctx context.Context, sessionID string, imageBytes []byte) error
	Retrieve(ctx context.Context, sessionID string) ([]byte, error)
	Remove(ctx context.Context, sessionID string) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
	ListKeys(ctx context.Context) ([]string, error)
}

type Stats struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"total_bytes"`
}

type RedisStore struct {
	rdb     *redis.Client
	durable repository.ArtifactRepository
	ttl     time.Duration
}

func NewRedisStore(rdb *redis.Client, durable repository.ArtifactRepository, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, durable: durable, ttl: ttl}
}

// Store caches the blob and saves the durable row in the background. A
// failed durable save is logged, not surfaced; the cache copy already
// serves the download path for the TTL window.
func (s *RedisStore) Store(ctx context.Context, sessionID string, imageBytes []byte) error {
	if err := s.prime(ctx, sessionID, imageBytes); err != nil {
		return err
	}

	storedAt := time.Now().UTC()
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.durable.Save(bgCtx, sessionID, imageBytes, storedAt); err != nil {
			log.Printf("[ARTIFACT] durable save failed for session %s: %v", sessionID, err)
		}
	}()
	return nil
}

func (s *RedisStore) Retrieve(ctx context.Context, sessionID string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, blobKeyPrefix+sessionID).Bytes()
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	// Cache miss: consult the durable fallback and re-prime.
	b, err = s.durable.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.prime(ctx, sessionID, b); err != nil {
		log.Printf("[ARTIFACT] re-prime failed for session %s: %v", sessionID, err)
	}
	return b, nil
}

// Remove evicts the cached blob only. The durable row stays until an
// external retention policy removes it.
func (s *RedisStore) Remove(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.rdb.Del(ctx, blobKeyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	if err := s.rdb.HDel(ctx, sizesKey, sessionID).Err(); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	sizes, err := s.liveSizes(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Count: len(sizes)}
	for _, sz := range sizes {
		stats.TotalBytes += sz
	}
	return stats, nil
}

func (s *RedisStore) ListKeys(ctx context.Context) ([]string, error) {
	sizes, err := s.liveSizes(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(sizes))
	for k := range sizes {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *RedisStore) prime(ctx context.Context, sessionID string, imageBytes []byte) error {
	if err := s.rdb.Set(ctx, blobKeyPrefix+sessionID, imageBytes, s.ttl).Err(); err != nil {
		return err
	}
	return s.rdb.HSet(ctx, sizesKey, sessionID, len(imageBytes)).Err()
}

// liveSizes reads the size index and lazily prunes entries whose blob the
// TTL already evicted.
func (s *RedisStore) liveSizes(ctx context.Context) (map[string]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, sizesKey).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(raw))
	for sessionID, szStr := range raw {
		n, err := s.rdb.Exists(ctx, blobKeyPrefix+sessionID).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.HDel(ctx, sizesKey, sessionID).Err()
			continue
		}
		sz, err := strconv.ParseInt(szStr, 10, 64)
		if err != nil {
			continue
		}
		out[sessionID] = sz
	}
	return out, nil
}
