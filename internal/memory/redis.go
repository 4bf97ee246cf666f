package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection and retention settings for a RedisStore.
type RedisConfig struct {
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr string
	// Password is the optional Redis AUTH password.
	Password string
	// DB is the Redis logical database number.
	DB int
	// TTL is how long an idle conversation lives. Refreshed on every append.
	// Defaults to 24h if zero.
	TTL time.Duration
	// MaxHistory is the number of turns to retain; the stored list is capped
	// at MaxHistory*2 messages. Defaults to 10 if zero or negative.
	MaxHistory int
}

// RedisStore implements Store on a Redis list per conversation key.
type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxHistory int
}

// NewRedisStore connects to Redis and verifies reachability with a PING so a
// misconfigured address fails at startup, not on the first chat request.
func NewRedisStore(ctx context.Context, cfg *RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("memory: redis ping %s: %w", cfg.Addr, err)
	}

	return &RedisStore{
		client:     client,
		ttl:        cfg.TTL,
		maxHistory: cfg.MaxHistory,
	}, nil
}

// Append pushes the message onto the key's list, refreshes the expiry for
// the whole conversation, and trims the list to the retention window.
func (s *RedisStore) Append(ctx context.Context, key Key, role Role, content string) error {
	payload, err := json.Marshal(Message{Role: role, Content: content})
	if err != nil {
		return fmt.Errorf("memory: marshal message: %w", err)
	}

	k := key.String()
	if err := s.client.RPush(ctx, k, payload).Err(); err != nil {
		return fmt.Errorf("memory: rpush %s: %w", k, err)
	}
	if err := s.client.Expire(ctx, k, s.ttl).Err(); err != nil {
		return fmt.Errorf("memory: expire %s: %w", k, err)
	}
	if err := s.client.LTrim(ctx, k, int64(-s.maxHistory*2), -1).Err(); err != nil {
		return fmt.Errorf("memory: ltrim %s: %w", k, err)
	}
	return nil
}

// History returns the retained tail of the conversation, oldest first.
func (s *RedisStore) History(ctx context.Context, key Key) ([]Message, error) {
	k := key.String()
	raw, err := s.client.LRange(ctx, k, int64(-s.maxHistory*2), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("memory: lrange %s: %w", k, err)
	}

	msgs := make([]Message, 0, len(raw))
	for _, entry := range raw {
		var m Message
		if err := json.Unmarshal([]byte(entry), &m); err != nil {
			return nil, fmt.Errorf("memory: decode message in %s: %w", k, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Clear deletes the conversation. DEL on a missing key is a no-op in Redis,
// which gives the idempotence the contract requires for free.
func (s *RedisStore) Clear(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("memory: del %s: %w", key.String(), err)
	}
	return nil
}

// Ping checks Redis reachability for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("memory: redis ping: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
