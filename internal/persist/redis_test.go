package persist

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := NewRedisBackend(context.Background(), mr.Addr(), opts...)
	if err != nil {
		t.Fatalf("new redis backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBackendMissingKey(t *testing.T) {
	b, _ := newTestRedis(t)
	value, ok, err := b.Get(context.Background(), KeyOpenTabs)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || value != nil {
		t.Fatalf("expected miss, got ok=%v value=%q", ok, value)
	}
}

func TestRedisBackendPrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedis(t, WithRedisPrefix("deck"), WithRedisTTL(time.Minute))

	if err := b.Set(ctx, KeyActiveTab, []byte("7")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("deck:" + KeyActiveTab) {
		t.Fatalf("expected prefixed key, have %v", mr.Keys())
	}
	if got := mr.TTL("deck:" + KeyActiveTab); got != time.Minute {
		t.Fatalf("expected ttl %v, got %v", time.Minute, got)
	}
	value, ok, err := b.Get(ctx, KeyActiveTab)
	if err != nil || !ok || string(value) != "7" {
		t.Fatalf("unexpected get: value=%q ok=%v err=%v", value, ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, err := b.Get(ctx, KeyActiveTab); err != nil || ok {
		t.Fatalf("expected expired key, ok=%v err=%v", ok, err)
	}
}

func TestRedisBackendDefaultPrefixNoTTL(t *testing.T) {
	b, mr := newTestRedis(t, WithRedisPrefix("  "))
	if err := b.Set(context.Background(), KeyOpenTabs, []byte("[]")); err != nil {
		t.Fatalf("set: %v", err)
	}
	key := defaultRedisPrefix + ":" + KeyOpenTabs
	if got, err := mr.Get(key); err != nil || got != "[]" {
		t.Fatalf("unexpected stored value %q: %v", got, err)
	}
	if ttl := mr.TTL(key); ttl != 0 {
		t.Fatalf("expected no ttl, got %v", ttl)
	}
}
