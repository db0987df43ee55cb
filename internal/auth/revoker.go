package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker tracks invalidated token ids until their natural expiry.
// Revocation state lives outside the process so every API node observes a
// logout immediately.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisRevoker struct {
	client *redis.Client
	prefix string
}

// NewRedisRevoker builds a Redis-backed revocation store. Entries evict via
// key TTL, bounded by the revoked token's remaining lifetime.
func NewRedisRevoker(client *redis.Client) TokenRevoker {
	return &redisRevoker{client: client, prefix: "auth:revoked:"}
}

func (r *redisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}

	return r.client.Set(ctx, r.prefix+tokenID, "1", ttl).Err()
}

func (r *redisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	count, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
