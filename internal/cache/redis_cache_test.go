package cache

import (
	"context"
	"testing"
	"time"
)

func TestBuildRedisOptionsPrefersURL(t *testing.T) {
	opts, err := buildRedisOptions(RedisOptions{URL: "redis://:secret@cache.internal:6380/2", Addr: "ignored:6379"})
	if err != nil {
		t.Fatalf("build options: %v", err)
	}
	if opts.Addr != "cache.internal:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: addr=%s db=%d", opts.Addr, opts.DB)
	}
}

func TestBuildRedisOptionsFromAddr(t *testing.T) {
	opts, err := buildRedisOptions(RedisOptions{Addr: "127.0.0.1:6379", DB: 1})
	if err != nil {
		t.Fatalf("build options: %v", err)
	}
	if opts.Addr != "127.0.0.1:6379" || opts.DB != 1 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestBuildRedisOptionsRejectsBadInput(t *testing.T) {
	if _, err := buildRedisOptions(RedisOptions{URL: "http://not-redis"}); err == nil {
		t.Fatalf("expected invalid url error")
	}
	if _, err := buildRedisOptions(RedisOptions{}); err == nil {
		t.Fatalf("expected empty address error")
	}
}

func TestNoopReportCacheAlwaysMisses(t *testing.T) {
	var c ReportCache = NoopReportCache{}
	ctx := context.Background()
	if err := c.Set(ctx, "month:2026-03-15", nil, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "month:2026-03-15"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
}
