package database

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the redis client
type RedisClient struct {
	*redis.Client
	logger *log.Logger
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// NewRedisClient creates a new Redis client and checks the connection
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *log.Logger) (*RedisClient, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping Redis: %w", err)
	}

	logger.Printf("Connected to Redis at %s", cfg.Addr)

	return &RedisClient{Client: client, logger: logger}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r.Client != nil {
		r.logger.Println("Closing Redis connection")
		return r.Client.Close()
	}
	return nil
}

// Health checks the Redis connection health
func (r *RedisClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return r.Ping(ctx).Err()
}

// RedisBlobStore keeps keyed string blobs in Redis without expiry
type RedisBlobStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBlobStore creates a blob store; keys are stored as "<prefix>:<key>"
func NewRedisBlobStore(client redis.Cmdable, prefix string) *RedisBlobStore {
	if prefix == "" {
		prefix = "reelshelf"
	}
	return &RedisBlobStore{client: client, prefix: prefix}
}

// Get returns the blob stored under key; ok is false when there is none
func (s *RedisBlobStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get blob %q: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key, replacing any previous blob
func (s *RedisBlobStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set blob %q: %w", key, err)
	}
	return nil
}

func (s *RedisBlobStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}
