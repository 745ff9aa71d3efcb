package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestInMemorySearchCacheStoreGetSetInvalidate(t *testing.T) {
	store := NewInMemorySearchCacheStore()
	ctx := context.Background()

	if err := store.Set(ctx, searchCacheNamespace, "k1", 0, []byte(`{"x":1}`), time.Minute); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	got, ok, err := store.Get(ctx, searchCacheNamespace, "k1")
	if err != nil {
		t.Fatalf("get cache: %v", err)
	}
	if !ok || string(got) != `{"x":1}` {
		t.Fatalf("expected cache hit with payload, got ok=%v payload=%s", ok, got)
	}

	if err := store.InvalidateNamespace(ctx, searchCacheNamespace); err != nil {
		t.Fatalf("invalidate namespace: %v", err)
	}
	if _, ok, _ := store.Get(ctx, searchCacheNamespace, "k1"); ok {
		t.Fatal("expected cache miss after invalidation")
	}
	if gen, _ := store.Generation(ctx, searchCacheNamespace); gen != 1 {
		t.Fatalf("expected generation 1 after invalidation, got %d", gen)
	}
}

func TestInMemorySearchCacheStoreRejectsStaleGeneration(t *testing.T) {
	store := NewInMemorySearchCacheStore()
	ctx := context.Background()

	gen, err := store.Generation(ctx, searchCacheNamespace)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := store.InvalidateNamespace(ctx, searchCacheNamespace); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	err = store.Set(ctx, searchCacheNamespace, "k1", gen, []byte(`old`), time.Minute)
	if !errors.Is(err, ErrSearchCacheStale) {
		t.Fatalf("expected stale write to be rejected, got %v", err)
	}
	if _, ok, _ := store.Get(ctx, searchCacheNamespace, "k1"); ok {
		t.Fatal("expected stale page to stay out of the cache")
	}
}

func TestInMemorySearchCacheStoreExpiry(t *testing.T) {
	store := NewInMemorySearchCacheStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Set(ctx, searchCacheNamespace, "k-expiry", 0, []byte(`{"ok":true}`), time.Second); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := store.Get(ctx, searchCacheNamespace, "k-expiry"); ok {
		t.Fatal("expected cache miss after expiry")
	}
	if err := store.Set(ctx, searchCacheNamespace, "k-zero", 0, []byte("x"), 0); err != nil {
		t.Fatalf("set with zero ttl: %v", err)
	}
	if _, ok, _ := store.Get(ctx, searchCacheNamespace, "k-zero"); ok {
		t.Fatal("expected zero ttl entries to be skipped")
	}
}

func TestRedisSearchCacheStoreGetSetInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := NewRedisSearchCacheStore(client, "")
	ctx := context.Background()

	if err := store.Set(ctx, searchCacheNamespace, "page-1", 0, []byte(`{"items":[]}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, searchCacheNamespace, "page-2", 0, []byte(`{"items":[1]}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := store.Get(ctx, searchCacheNamespace, "page-2")
	if err != nil || !ok || string(got) != `{"items":[1]}` {
		t.Fatalf("unexpected get result ok=%v err=%v payload=%s", ok, err, got)
	}
	if ttl := mr.TTL(store.dataKey(searchCacheNamespace, 0, "page-2")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected data ttl within a minute, got %s", ttl)
	}

	if err := store.InvalidateNamespace(ctx, searchCacheNamespace); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	for _, key := range []string{"page-1", "page-2"} {
		if _, ok, err := store.Get(ctx, searchCacheNamespace, key); err != nil || ok {
			t.Fatalf("expected miss for %s after invalidate, ok=%v err=%v", key, ok, err)
		}
	}
	if mr.Exists(store.namespaceIndexKey(searchCacheNamespace)) {
		t.Fatal("expected namespace index to be removed")
	}
	if gen, err := store.Generation(ctx, searchCacheNamespace); err != nil || gen != 1 {
		t.Fatalf("expected generation 1, got %d err=%v", gen, err)
	}
}

func TestRedisSearchCacheStoreRejectsStaleGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	store := NewRedisSearchCacheStore(client, "test")
	ctx := context.Background()

	gen, err := store.Generation(ctx, searchCacheNamespace)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := store.InvalidateNamespace(ctx, searchCacheNamespace); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	err = store.Set(ctx, searchCacheNamespace, "page-1", gen, []byte(`old`), time.Minute)
	if !errors.Is(err, ErrSearchCacheStale) {
		t.Fatalf("expected stale write to be rejected, got %v", err)
	}
	if mr.Exists(store.dataKey(searchCacheNamespace, gen, "page-1")) {
		t.Fatal("expected no data key for the stale generation")
	}
	if _, ok, _ := store.Get(ctx, searchCacheNamespace, "page-1"); ok {
		t.Fatal("expected miss for stale page")
	}
}

func TestRedisSearchCacheStoreSurfacesBackendErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	store := NewRedisSearchCacheStore(client, "test")

	mr.Close()
	if _, _, err := store.Get(context.Background(), searchCacheNamespace, "k"); err == nil {
		t.Fatal("expected error when redis is down")
	}
}
