package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-clinic/internal/config"
	"go-clinic/internal/metrics"
	"go-clinic/pkg/apperrors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Cache is a JSON key/value store. A disabled cache misses on every Get.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Enabled() bool
}

// NewRedis returns a client, or nil when no address is configured.
func NewRedis(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("Redis not configured, caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, caching disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

type RedisCache struct {
	client  *redis.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
	prefix  string
}

func NewRedisCache(client *redis.Client, m *metrics.Metrics, logger *zap.Logger) Cache {
	return &RedisCache{client: client, metrics: m, logger: logger, prefix: "go-clinic:"}
}

func (c *RedisCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get unmarshals the cached value into dest and reports whether it was found.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		c.metrics.CacheLookup(false)
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, apperrors.Wrap(err, apperrors.ErrUnavailable.Code, apperrors.ErrUnavailable.Status, "cache get failed")
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.metrics.CacheLookup(false)
		return false, fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	c.metrics.CacheLookup(true)
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Memory is an in-process Cache used by tests.
type Memory struct {
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Enabled() bool { return true }

func (m *Memory) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	delete(m.items, key)
	return nil
}

// Len is the number of stored keys.
func (m *Memory) Len() int {
	return len(m.items)
}
