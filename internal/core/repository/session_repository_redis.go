package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duynhne/rango/internal/core/domain"
)

const redisSessionPrefix = "session:"

type redisSessionRecord struct {
	Values    map[string]string `json:"values"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// RedisSessionRepository implements domain.SessionRepository on Redis.
// Expiry is enforced by the key TTL.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates a store backed by the given client.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// NewRedisClient builds a go-redis client for the session store.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Get returns the session stored under key, or (nil, nil).
func (r *RedisSessionRepository) Get(ctx context.Context, key string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, redisSessionPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rec redisSessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil
	}
	s := domain.NewSession(key, rec.ExpiresAt)
	for k, v := range rec.Values {
		s.Values[k] = v
	}
	return s, nil
}

// Save writes the session with a TTL matching its expiry.
func (r *RedisSessionRepository) Save(ctx context.Context, s *domain.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, s.Key)
	}

	raw, err := json.Marshal(redisSessionRecord{Values: s.Values, ExpiresAt: s.ExpiresAt})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.client.Set(ctx, redisSessionPrefix+s.Key, raw, ttl).Err()
}

// Delete removes the session key.
func (r *RedisSessionRepository) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisSessionPrefix+key).Err()
}
