package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nxdesk/sla-service/internal/config"
)

// Redis wraps the go-redis client backing the breach ledger.
type Redis struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedis builds a client without dialing; connections are opened lazily so a
// missing Redis does not block startup. Callers decide via Available.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.ReadTimeout(),
	})
	return &Redis{Client: client, logger: logger.With(zap.String("redis_addr", cfg.Addr))}
}

// Available pings once and logs the outcome.
func (r *Redis) Available(ctx context.Context) bool {
	if err := r.Ping(ctx); err != nil {
		r.logger.Warn("unable to reach redis", zap.Error(err))
		return false
	}
	r.logger.Info("connected to redis")
	return true
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
