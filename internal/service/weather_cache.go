package service

import (
	"context"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const redisCacheTimeout = 500 * time.Millisecond

// WeatherCache guarda respuestas del proveedor por clave de consulta.
type WeatherCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const defaultMemoryCacheEntries = 1024

type memoryWeatherCache struct {
	cache *lru.LRU[string, []byte]
}

// NewMemoryWeatherCache se usa cuando no hay REDIS_ADDR configurado. Acota las
// entradas a maxEntries y descarta las vencidas según ttl.
func NewMemoryWeatherCache(maxEntries int, ttl time.Duration) WeatherCache {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryCacheEntries
	}
	return &memoryWeatherCache{
		cache: lru.NewLRU[string, []byte](maxEntries, nil, ttl),
	}
}

func (c *memoryWeatherCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := c.cache.Get(key)
	return val, ok, nil
}

// Set usa el ttl del cache; el argumento sólo desactiva la escritura si no es positivo.
func (c *memoryWeatherCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" || ttl <= 0 {
		return nil
	}
	c.cache.Add(key, value)
	return nil
}

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type redisWeatherCache struct {
	client redisKV
	prefix string
}

func NewRedisWeatherCache(client *redis.Client) WeatherCache {
	if client == nil {
		return nil
	}
	return &redisWeatherCache{
		client: client,
		prefix: "weather:",
	}
}

func (c *redisWeatherCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisCacheTimeout)
	defer cancel()
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *redisWeatherCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" || ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisCacheTimeout)
	defer cancel()
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}
