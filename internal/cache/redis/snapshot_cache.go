package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/skyquery/skyquery/internal/domain"
)

// snapshotKey holds the lowest-ask snapshot as a hash: canonical pricing key
// to lowest fixed-price ask. The hash is swapped wholesale into place under
// a staging key so readers never see a partially written snapshot.
const (
	snapshotKey        = "lowest_asks"
	snapshotStagingKey = "lowest_asks:staging"
)

// SnapshotCache implements domain.SnapshotCache using a Redis hash.
type SnapshotCache struct {
	rdb *redis.Client
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.rdb}
}

// Load returns the whole snapshot. A missing key yields an empty map.
func (sc *SnapshotCache) Load(ctx context.Context) (map[string]int64, error) {
	vals, err := sc.rdb.HGetAll(ctx, snapshotKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load snapshot: %w", err)
	}

	out := make(map[string]int64, len(vals))
	for key, raw := range vals {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: parse snapshot price %s: %w", key, err)
		}
		out[key] = price
	}
	return out, nil
}

// Replace swaps the snapshot for the given prices. The new hash is built at
// a staging key and renamed over the live one.
func (sc *SnapshotCache) Replace(ctx context.Context, prices map[string]int64) error {
	if len(prices) == 0 {
		if err := sc.rdb.Del(ctx, snapshotKey).Err(); err != nil {
			return fmt.Errorf("redis: clear snapshot: %w", err)
		}
		return nil
	}

	fields := make(map[string]interface{}, len(prices))
	for key, price := range prices {
		fields[key] = strconv.FormatInt(price, 10)
	}

	pipe := sc.rdb.TxPipeline()
	pipe.Del(ctx, snapshotStagingKey)
	pipe.HSet(ctx, snapshotStagingKey, fields)
	pipe.Rename(ctx, snapshotStagingKey, snapshotKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: replace snapshot: %w", err)
	}
	return nil
}

// Get returns the lowest recorded ask for one key. It returns
// domain.ErrNotFound when the key has no recorded ask.
func (sc *SnapshotCache) Get(ctx context.Context, key string) (int64, error) {
	raw, err := sc.rdb.HGet(ctx, snapshotKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis: snapshot key %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("redis: get snapshot key %s: %w", key, err)
	}

	price, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse snapshot price %s: %w", key, err)
	}
	return price, nil
}
