package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sample struct {
	Email string `json:"email"`
	Count int    `json:"count"`
}

func TestMemoryCacheTypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "user", sample{Email: "a@b.c", Count: 3}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got sample
	if err := mc.Get(ctx, "user", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "a@b.c" || got.Count != 3 {
		t.Fatalf("unexpected value %+v", got)
	}

	if err := mc.Set(ctx, "token", "abc", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var tok string
	if err := mc.Get(ctx, "token", &tok); err != nil || tok != "abc" {
		t.Fatalf("unexpected token %q err=%v", tok, err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	var v string
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatalf("expired key reported as existing")
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "session:token", "a", 0)
	_ = mc.Set(ctx, "session:user", "b", 0)
	_ = mc.Set(ctx, "other", "c", 0)

	if err := mc.DeleteByPattern(ctx, "session:*"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mc.Exists(ctx, "session:token", "session:user"); ok {
		t.Fatalf("session keys should be gone")
	}
	if ok, _ := mc.Exists(ctx, "other"); !ok {
		t.Fatalf("unrelated key removed")
	}
}

func TestMemoryCacheEvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", "1", 0)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", 0)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "a"); ok {
		t.Fatalf("oldest key should be evicted")
	}
	if ok, _ := mc.Exists(ctx, "b", "c"); !ok {
		t.Fatalf("newer keys missing")
	}
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()

	_ = remote.Set(ctx, "k", sample{Email: "x"}, 0)

	var got sample
	if err := lc.Get(ctx, "k", &got); err != nil || got.Email != "x" {
		t.Fatalf("read-through failed: %+v %v", got, err)
	}

	_ = lc.Delete(ctx, "k")
	if err := lc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}
