package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestMemoryBreachLedger(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryBreachLedger()

	if ok, _ := ledger.Claim(ctx, "T-1"); !ok {
		t.Fatal("first claim should succeed")
	}
	if ok, _ := ledger.Claim(ctx, "T-1"); ok {
		t.Fatal("second claim should fail")
	}
	if ok, _ := ledger.Claim(ctx, "T-2"); !ok {
		t.Fatal("claims are per ticket")
	}
	_ = ledger.Release(ctx, "T-1")
	if ok, _ := ledger.Claim(ctx, "T-1"); !ok {
		t.Fatal("claim after release should succeed")
	}
}

func TestRedisBreachLedger(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	prefix := "sla:test:" + uuid.NewString() + ":"
	ledger := NewRedisBreachLedger(client, prefix, time.Minute)
	defer client.Del(ctx, prefix+"T-1")

	if ok, err := ledger.Claim(ctx, "T-1"); err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	if ok, err := ledger.Claim(ctx, "T-1"); err != nil || ok {
		t.Fatalf("second claim = %v, %v", ok, err)
	}
	if ttl := client.TTL(ctx, prefix+"T-1").Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}
	if err := ledger.Release(ctx, "T-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := ledger.Claim(ctx, "T-1"); !ok {
		t.Fatal("claim after release should succeed")
	}
}
