package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avlobanov/aerobook/config"
	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

// InvalidateFlights drops the cached list after an admin mutation.
func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Del(ctx, flightsKey()).Err()
}

// ClaimIdempotencyKey reserves a client-supplied payment idempotency key.
// Returns false if the key was already claimed by an earlier request.
func (c *RedisCache) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, idempotencyKey(key), "claimed", ttl).Result()
}

// ReleaseIdempotencyKey frees a key whose payment never got written, so the
// client can retry with the same key.
func (c *RedisCache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.client.Del(ctx, idempotencyKey(key)).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func idempotencyKey(key string) string {
	return "idem:payment:" + key
}
