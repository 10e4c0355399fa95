// Package redis stores carts in Redis as JSON blobs with a sliding TTL.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/kart-shop/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store on a Redis client. Every Save refreshes
// the key's TTL.
type CartStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCartStore returns a CartStore. A non-positive ttl keeps carts forever.
func NewCartStore(client redis.UniversalClient, ttl time.Duration) *CartStore {
	if ttl < 0 {
		ttl = 0
	}
	return &CartStore{client: client, ttl: ttl}
}

// Load returns the stored cart or an empty cart when none exists.
func (s *CartStore) Load(ctx context.Context, sessionID string) (cart.State, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return cart.State{}, errors.Wrap(err, "redis get")
	}

	var st cart.State
	if err := json.Unmarshal(data, &st); err != nil {
		return cart.State{}, errors.Wrap(err, "decode cart")
	}
	return st.Clone(), nil
}

// Save replaces the stored cart. An empty cart without discount deletes the key.
func (s *CartStore) Save(ctx context.Context, sessionID string, st cart.State) error {
	key := cartKey(sessionID)
	if st.IsEmpty() && !st.HasDiscount() {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return errors.Wrap(err, "redis del")
		}
		return nil
	}

	data, err := json.Marshal(st.Clone())
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Ping checks connectivity to Redis.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}
