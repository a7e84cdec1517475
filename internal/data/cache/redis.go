package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisMirror is a shared cold store for long-TTL provider entries,
// enabled by SQUEEZE_REDIS_ADDR. Failures degrade to cache misses; the
// engine never depends on redis being up.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror connects a mirror under the given key prefix.
func NewRedisMirror(addr, prefix string) *RedisMirror {
	return &RedisMirror{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
	}
}

func (m *RedisMirror) key(k string) string { return m.prefix + ":" + k }

// Get fetches an entry; any redis error reads as a miss.
func (m *RedisMirror) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := m.client.Get(ctx, m.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redis mirror read failed")
		}
		return nil, false
	}
	return raw, true
}

// Set stores an entry with the cache TTL. Errors are logged and dropped.
func (m *RedisMirror) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := m.client.Set(ctx, m.key(key), value, ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis mirror write failed")
	}
}

// Close releases the client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
