package price

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/fundvault/internal/model"
)

// RedisCache хранит цены фондов в Redis с ограниченным временем жизни.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache создаёт кэш цен поверх клиента Redis.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "fundvault:price"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) key(fund model.Fund) string {
	return fmt.Sprintf("%s:%s", r.prefix, fund)
}

// Get возвращает закэшированную цену и признак её наличия.
func (r *RedisCache) Get(ctx context.Context, fund model.Fund) (decimal.Decimal, bool, error) {
	raw, err := r.client.Get(ctx, r.key(fund)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("redis get: %w", err)
	}

	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse cached price: %w", err)
	}
	return p, true, nil
}

// Set сохраняет цену на ttl.
func (r *RedisCache) Set(ctx context.Context, fund model.Fund, price decimal.Decimal, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(fund), price.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
