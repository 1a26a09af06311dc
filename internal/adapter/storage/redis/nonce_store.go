package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore using Redis SET NX. A signed
// request's nonce is good for exactly one acceptance; replaying a
// captured envelope inside the timestamp window hits the existing key
// and is rejected. Keys are scoped per kid so the two trust domains
// cannot burn each other's nonces.
type NonceStore struct {
	client *goredis.Client
	prefix string
}

// NewNonceStore creates a new Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: "nonce:",
	}
}

// CheckAndSet atomically records the nonce if unseen.
// Returns true when the nonce is new, false when already used.
func (s *NonceStore) CheckAndSet(ctx context.Context, kid string, nonce string, ttl time.Duration) (bool, error) {
	key := s.prefix + kid + ":" + nonce
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — nonce was already used
			return false, nil
		}
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return result == "OK", nil
}
