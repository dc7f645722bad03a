package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"bizu/backend/internal/domain"
)

const keyPrefix = "bizu:analytics:"

type RedisOptions struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

type RedisReportCache struct {
	client *redis.Client
}

// NewRedisReportCache prefers URL when set and falls back to Addr.
func NewRedisReportCache(opts RedisOptions) (*RedisReportCache, error) {
	options, err := buildRedisOptions(opts)
	if err != nil {
		return nil, err
	}
	return &RedisReportCache{client: redis.NewClient(options)}, nil
}

func buildRedisOptions(opts RedisOptions) (*redis.Options, error) {
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return parsed, nil
	}
	if opts.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	return &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}, nil
}

func (c *RedisReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

func (c *RedisReportCache) Get(ctx context.Context, key string) (*domain.AnalyticsReport, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report domain.AnalyticsReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *RedisReportCache) Set(ctx context.Context, key string, value *domain.AnalyticsReport, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, payload, ttl).Err()
}

// Invalidate drops every cached report.
func (c *RedisReportCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
