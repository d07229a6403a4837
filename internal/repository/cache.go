package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"go-medical-analyzer/pkg/models"
)

const cachePrefix = "analysis:"

// RedisConfig configures the result cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (ResultCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping: %w", ErrRepositoryUnavailable, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisCache{client: client, ttl: ttl}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (*models.AnalysisResult, bool, error) {
	raw, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}
	var res models.AnalysisResult
	if err := sonic.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached analysis: %w", err)
	}
	return &res, true, nil
}

func (c *redisCache) Put(ctx context.Context, key string, result *models.AnalysisResult) error {
	data, err := sonic.Marshal(result)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, cachePrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}
	return nil
}

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*models.AnalysisResult, bool, error) {
	return nil, false, nil
}

func (NoopCache) Put(context.Context, string, *models.AnalysisResult) error {
	return nil
}
