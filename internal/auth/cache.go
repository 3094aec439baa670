package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdentityCache keeps token lookups out of the database
type IdentityCache interface {
	Get(ctx context.Context, token string) (*Identity, error)
	Set(ctx context.Context, token string, id *Identity) error
	Delete(ctx context.Context, tokens ...string) error
}

// ErrCacheMiss is returned by IdentityCache.Get for unknown tokens
var ErrCacheMiss = errors.New("identity cache miss")

type redisCache struct {
	client      *redis.Client
	serviceName string
	ttl         time.Duration
}

// NewRedisCache caches identities in redis under "<service>:token:<key>"
func NewRedisCache(addr, serviceName string, ttl time.Duration) IdentityCache {
	return &redisCache{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		serviceName: serviceName,
		ttl:         ttl,
	}
}

func (r *redisCache) key(token string) string {
	return fmt.Sprintf("%s:token:%s", r.serviceName, token)
}

func (r *redisCache) Get(ctx context.Context, token string) (*Identity, error) {
	raw, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("failed to decode cached identity: %w", err)
	}
	return &id, nil
}

func (r *redisCache) Set(ctx context.Context, token string, id *Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(token), raw, r.ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = r.key(t)
	}
	return r.client.Del(ctx, keys...).Err()
}

// NopCache never holds anything
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Identity, error) { return nil, ErrCacheMiss }

func (NopCache) Set(context.Context, string, *Identity) error { return nil }

func (NopCache) Delete(context.Context, ...string) error { return nil }
