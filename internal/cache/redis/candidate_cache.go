package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/skyquery/skyquery/internal/domain"
)

// candidatesKey holds the under-ask candidates of the most recent cycle as
// one JSON array, replaced wholesale each cycle.
const candidatesKey = "under_ask_candidates"

// CandidateCache implements domain.CandidateCache using a single Redis value.
type CandidateCache struct {
	rdb *redis.Client
}

var _ domain.CandidateCache = (*CandidateCache)(nil)

// NewCandidateCache creates a CandidateCache backed by the given Client.
func NewCandidateCache(c *Client) *CandidateCache {
	return &CandidateCache{rdb: c.rdb}
}

// Replace overwrites the stored candidates with the given list.
func (cc *CandidateCache) Replace(ctx context.Context, candidates []domain.ArbitrageCandidate) error {
	if candidates == nil {
		candidates = []domain.ArbitrageCandidate{}
	}
	payload, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("redis: encode candidates: %w", err)
	}
	if err := cc.rdb.Set(ctx, candidatesKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis: store candidates: %w", err)
	}
	return nil
}

// List returns the most recent cycle's candidates. A missing key yields an
// empty list.
func (cc *CandidateCache) List(ctx context.Context) ([]domain.ArbitrageCandidate, error) {
	raw, err := cc.rdb.Get(ctx, candidatesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.ArbitrageCandidate{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load candidates: %w", err)
	}

	var out []domain.ArbitrageCandidate
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("redis: decode candidates: %w", err)
	}
	return out, nil
}
