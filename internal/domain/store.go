package domain

import (
	"context"
	"time"
)

// AuctionStore persists full-record rows for live listings.
type AuctionStore interface {
	// ReplaceAll swaps the entire table for the given rows in one
	// transaction. Used at the end of a full-resync cycle.
	ReplaceAll(ctx context.Context, rows []AuctionRecord) (int64, error)

	// UpsertBatch inserts or updates rows by uuid. Used by incremental
	// cycles, which only see listings newer than the cutoff.
	UpsertBatch(ctx context.Context, rows []AuctionRecord) (int64, error)

	// DeleteByUUIDs removes rows whose listings have ended.
	DeleteByUUIDs(ctx context.Context, uuids []string) (int64, error)

	// Search returns rows matching the given filter.
	Search(ctx context.Context, q AuctionQuery) ([]AuctionRecord, error)
}

// AuctionQuery filters full-record rows for the query facade.
type AuctionQuery struct {
	ItemName   string
	ItemID     string
	Tier       string
	Enchant    string
	Auctioneer string
	BIN        *bool
	Limit      int
}

// AverageStore persists finalized average-price tables keyed by snapshot
// epoch.
type AverageStore interface {
	// Insert writes one cycle's finalized rows under the given epoch.
	Insert(ctx context.Context, kind AverageKind, epoch int64, rows []AvgRow) error

	// Averages returns the mean price and sale count per key averaged over
	// all epochs newer than since.
	Averages(ctx context.Context, kind AverageKind, since time.Time) (map[string]AvgRow, error)

	// SelectBefore returns all rows finalized before cutoff, tagged with
	// their epochs, for archival.
	SelectBefore(ctx context.Context, kind AverageKind, cutoff time.Time) ([]EpochAvgRow, error)

	// DeleteBefore prunes rows finalized before cutoff.
	DeleteBefore(ctx context.Context, kind AverageKind, cutoff time.Time) (int64, error)
}

// EpochAvgRow is an AvgRow tagged with the cycle epoch it was finalized at.
type EpochAvgRow struct {
	Epoch int64  `json:"time_t"`
	Row   AvgRow `json:"row"`
}

// PetStore persists finalized pet average prices.
type PetStore interface {
	Upsert(ctx context.Context, rows []PetRow) (int64, error)
	Get(ctx context.Context, name string) (PetRow, error)
	List(ctx context.Context) ([]PetRow, error)
}

// SnapshotCache holds the lowest-ask snapshot: canonical key -> lowest
// fixed-price ask recorded by the last full-resync cycle. The snapshot is
// never mutated in place; Replace swaps it wholesale.
type SnapshotCache interface {
	Load(ctx context.Context) (map[string]int64, error)
	Replace(ctx context.Context, prices map[string]int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// CandidateCache holds the under-ask candidates produced by the most recent
// cycle, replaced wholesale each cycle.
type CandidateCache interface {
	Replace(ctx context.Context, candidates []ArbitrageCandidate) error
	List(ctx context.Context) ([]ArbitrageCandidate, error)
}

// BlobWriter uploads an object to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
