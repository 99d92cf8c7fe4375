package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	// RedisClient is the shared client, set by InitRedis.
	RedisClient *redis.Client
	ctx         = context.Background()
)

// ErrKeyNotFound is returned by the code store when a key is absent or
// already expired.
var ErrKeyNotFound = fmt.Errorf("key not found")

// InitRedis initializes the Redis client
func InitRedis() error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// RedisCodeStore is a keyed, time-bounded, single-use value store backed
// by Redis. It holds the step-up verification codes and the reset-flow
// session markers: short-lived tokens that must survive process restarts
// and be visible to every server instance, which rules out an in-process
// map. Expiry is enforced by Redis TTL, so expired entries simply vanish.
type RedisCodeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCodeStore creates a code store over the shared client with a
// key namespace prefix.
func NewRedisCodeStore(prefix string) *RedisCodeStore {
	return &RedisCodeStore{client: RedisClient, prefix: prefix}
}

func (s *RedisCodeStore) key(k string) string {
	return fmt.Sprintf("%s:%s", s.prefix, k)
}

// Put stores a value under key with the given TTL, overwriting any
// previous value.
func (s *RedisCodeStore) Put(key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

// Get returns the stored value, or ErrKeyNotFound when absent or expired.
func (s *RedisCodeStore) Get(key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	return val, err
}

// Del removes a key. Deleting an absent key is not an error.
func (s *RedisCodeStore) Del(key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
