package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catalogsync/internal/model"
)

// DefaultKey is where RedisStore keeps the report unless told otherwise.
const DefaultKey = "catalogsync:report"

// RedisStore keeps the report as JSON under a single key, letting Redis
// expire it. Several processes can share it.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

// NewRedisStore connects to the server at url, a redis:// URL.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &RedisStore{Client: redis.NewClient(opts), Key: DefaultKey}, nil
}

func (s *RedisStore) Load(ctx context.Context) (*model.Report, bool, error) {
	val, err := s.Client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var r model.Report
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, false, fmt.Errorf("decode cached report: %w", err)
	}

	return &r, true, nil
}

func (s *RedisStore) Save(ctx context.Context, r *model.Report, ttl time.Duration) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return s.Client.Set(ctx, s.key(), b, ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.Client.Del(ctx, s.key()).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.Client.Close()
}

func (s *RedisStore) key() string {
	if s.Key == "" {
		return DefaultKey
	}
	return s.Key
}
