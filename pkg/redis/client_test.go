package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	client := Wrap(raw, "test")
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)

	allowed, count, err := client.FixedWindowAllow(ctx, "test-scope", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed on first request")
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if ttl := srv.TTL(client.RateLimitKey("test-scope")); ttl != time.Minute {
		t.Fatalf("expected window ttl on first increment, got %v", ttl)
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d", allowed, count)
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}

	srv.FastForward(time.Minute + time.Second)
	allowed, count, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 1 {
		t.Fatalf("expected fresh window after expiry, allowed=%v count=%d", allowed, count)
	}
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	ok, err := client.SetNX(ctx, "k", "v1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "v2", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, ok=%v err=%v", ok, err)
	}
	if got, _ := client.Get(ctx, "k"); got != "v1" {
		t.Fatalf("expected v1, got %q", got)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, "k"); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{namespace: "relay"}
	cases := []struct{ got, want string }{
		{client.IdempotencyKey("scope", "id"), "relay:idempotency:scope:id"},
		{client.RateLimitKey("scope"), "relay:rate_limit:scope"},
		{client.LockKey("queue_depth"), "relay:lock:queue_depth"},
		{client.CentresKey(), "relay:centres"},
		{client.CentreKey("centreA", "config"), "relay:centre:centreA:config"},
		{client.SalesQueueKey("centreA"), "relay:centre:centreA:sales"},
		{client.AuditKey("centreA", "s1"), "relay:centre:centreA:audit:s1"},
		{client.HistoryKey("centreA", "customers", "c-1"), "relay:centre:centreA:customers:c-1:history"},
		{(&Client{}).CentreKey("centreB", "items"), "relay:centre:centreB:items"},
		{Wrap(nil, " lanes ").CentreKey("centreC", "items"), "lanes:centre:centreC:items"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("expected key %q, got %q", tc.want, tc.got)
		}
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if _, err := client.DrainSales(context.Background(), "centreA", time.Now()); err == nil {
		t.Fatalf("expected drain error from uninitialized client")
	}
}
