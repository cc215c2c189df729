package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"estate-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const listingKeyPrefix = "listing:"

// DefaultListingTTL is used when no TTL is configured.
const DefaultListingTTL = 10 * time.Minute

// ListingCache stores listing detail snapshots in Redis.
type ListingCache struct {
	Rdb *redis.Client
	TTL time.Duration
}

func NewListingCache(rdb *redis.Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &ListingCache{Rdb: rdb, TTL: ttl}
}

// Get returns (nil, nil) on a cache miss.
func (c *ListingCache) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	data, err := c.Rdb.Get(ctx, listingKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var l domain.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *ListingCache) Set(ctx context.Context, l *domain.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return c.Rdb.Set(ctx, listingKeyPrefix+l.ID.String(), data, c.TTL).Err()
}

func (c *ListingCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.Rdb.Del(ctx, listingKeyPrefix+id.String()).Err()
}
