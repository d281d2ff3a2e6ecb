// internal/cache/redis_test.go
package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestNilClient(t *testing.T) {
	c := &Cache{prefix: "leaf"}
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err == nil {
		t.Error("Expected error from Set with nil client")
	}
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Error("Expected error from Get with nil client")
	}
	if err := c.Ping(ctx); err == nil {
		t.Error("Expected error from Ping with nil client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Expected Close on nil client to succeed, got %v", err)
	}
}

func TestResultKey(t *testing.T) {
	c := &Cache{prefix: "leaf"}
	if got := c.ResultKey("smooth", "abc123"); got != "leaf:prediction:smooth:abc123" {
		t.Errorf("unexpected key %s", got)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("LEAF_CLASSIFIER_TEST_REDIS")
	if addr == "" {
		t.Skip("Skipping Redis test: LEAF_CLASSIFIER_TEST_REDIS not set")
	}

	ctx := context.Background()
	c, err := New(ctx, addr)
	if err != nil {
		t.Skipf("Skipping Redis test: %v", err)
	}
	defer c.Close()

	key := c.ResultKey("sponge", "test-"+time.Now().Format(time.RFC3339Nano))
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("Expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, key, []byte(`{"class_index":2}`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Expected hit, got ok=%v err=%v", ok, err)
	}
	if string(data) != `{"class_index":2}` {
		t.Errorf("unexpected value %s", data)
	}
}
