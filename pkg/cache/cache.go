package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// defaultOperationTimeout bounds individual Redis operations
	defaultOperationTimeout = 5 * time.Second
)

var (
	ErrCacheMiss = errors.New("key not found")
	ErrDisabled  = errors.New("cache disabled")
)

type Cache struct {
	client  *redis.Client
	enabled bool
}

func NewCache(addr string, enable bool) (*Cache, error) {
	if !enable {
		return &Cache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client, enabled: client != nil}
}

func (c *Cache) Enabled() bool { return c != nil && c.enabled }

// operationContext derives a bounded context for a single Redis call
func (c *Cache) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, defaultOperationTimeout)
}

// SetBytes stores value under key. A zero expiration keeps the key forever.
func (c *Cache) SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	return c.client.Set(ctx, key, value, expiration).Err()
}

// GetBytes returns the value under key or ErrCacheMiss.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	} else if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

// TTL reports the remaining lifetime of key; negative values follow Redis semantics.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	if !c.Enabled() {
		return 0, ErrDisabled
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	return c.client.TTL(ctx, key).Result()
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
