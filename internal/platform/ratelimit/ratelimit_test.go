package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_Window(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 2 {
		res, err := l.Allow(ctx, "1.2.3.4")
		if err != nil || !res.Allowed {
			t.Fatalf("hit %d: %+v, %v", i+1, res, err)
		}
	}
	now = now.Add(20 * time.Second)
	res, _ := l.Allow(ctx, "1.2.3.4")
	if res.Allowed {
		t.Fatal("third hit in the window should be limited")
	}
	if res.RetryAfter != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", res.RetryAfter)
	}

	if res, _ := l.Allow(ctx, "5.6.7.8"); !res.Allowed {
		t.Error("keys must be counted independently")
	}

	now = now.Add(41 * time.Second)
	if res, _ := l.Allow(ctx, "1.2.3.4"); !res.Allowed {
		t.Error("a new window should reset the count")
	}
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(1, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_, _ = l.Allow(ctx, k)
	}
	now = now.Add(2 * time.Minute)
	_, _ = l.Allow(ctx, "d")
	if n := len(l.buckets); n != 1 {
		t.Errorf("buckets after sweep = %d, want 1", n)
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
