package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStore_ParsesURL(t *testing.T) {
	s, err := NewRedisStore("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	defer s.Close()

	opts := s.Client.Options()
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, DefaultKey, s.Key)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("http://localhost")
	assert.Error(t, err)
}

func TestRedisStore_KeyFallback(t *testing.T) {
	s := &RedisStore{}
	assert.Equal(t, DefaultKey, s.key())

	s.Key = "custom"
	assert.Equal(t, "custom", s.key())
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	s := &RedisStore{Client: redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})}
	defer s.Close()

	_, ok, err := s.Load(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
