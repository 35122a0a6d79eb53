package repository

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBreachLedger claims breach reports with SETNX so one report is sent per
// ticket across sessions and replicas.
type RedisBreachLedger struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisBreachLedger builds a ledger. A zero ttl keeps claims forever.
func NewRedisBreachLedger(client redis.Cmdable, prefix string, ttl time.Duration) *RedisBreachLedger {
	return &RedisBreachLedger{client: client, prefix: prefix, ttl: ttl}
}

// Claim returns true when this caller is the first to claim ticketID.
func (l *RedisBreachLedger) Claim(ctx context.Context, ticketID string) (bool, error) {
	return l.client.SetNX(ctx, l.key(ticketID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}

// Release drops the claim so a later session may report again.
func (l *RedisBreachLedger) Release(ctx context.Context, ticketID string) error {
	return l.client.Del(ctx, l.key(ticketID)).Err()
}

func (l *RedisBreachLedger) key(ticketID string) string {
	return l.prefix + ticketID
}

// MemoryBreachLedger is a process-local ledger used when Redis is not configured.
type MemoryBreachLedger struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewMemoryBreachLedger builds an empty ledger.
func NewMemoryBreachLedger() *MemoryBreachLedger {
	return &MemoryBreachLedger{claimed: make(map[string]struct{})}
}

// Claim implements the breach ledger.
func (l *MemoryBreachLedger) Claim(_ context.Context, ticketID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.claimed[ticketID]; ok {
		return false, nil
	}
	l.claimed[ticketID] = struct{}{}
	return true, nil
}

// Release implements the breach ledger.
func (l *MemoryBreachLedger) Release(_ context.Context, ticketID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, ticketID)
	return nil
}
