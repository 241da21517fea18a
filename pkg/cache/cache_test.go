package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	c := NewFromClient(client)
	t.Cleanup(func() { _ = c.Close() })
	return c, server
}

func TestSetGetDeleteBytes(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.SetBytes(ctx, "k", []byte(`{"a":1}`), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.GetBytes(ctx, "k")
	if err != nil || string(got) != `{"a":1}` {
		t.Fatalf("unexpected get result %q, %v", got, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetBytes(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestExpirationIsApplied(t *testing.T) {
	c, server := newTestCache(t)
	ctx := context.Background()

	if err := c.SetBytes(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	ttl, err := c.TTL(ctx, "k")
	if err != nil || ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v, %v", ttl, err)
	}

	server.FastForward(2 * time.Hour)
	if _, err := c.GetBytes(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected key to expire, got %v", err)
	}
}

func TestDisabledCache(t *testing.T) {
	c, err := NewCache("", false)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected disabled cache")
	}
	if err := c.SetBytes(context.Background(), "k", nil, 0); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if err := c.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("delete on disabled cache should be a no-op, got %v", err)
	}
}
