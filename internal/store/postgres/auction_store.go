package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyquery/skyquery/internal/domain"
)

// AuctionStore implements domain.AuctionStore using PostgreSQL.
type AuctionStore struct {
	pool *pgxpool.Pool
}

var _ domain.AuctionStore = (*AuctionStore)(nil)

// NewAuctionStore creates an AuctionStore backed by the given pool.
func NewAuctionStore(pool *pgxpool.Pool) *AuctionStore {
	return &AuctionStore{pool: pool}
}

const auctionSelectCols = `uuid, auctioneer, end_t, item_name, tier, item_id,
	starting_bid, enchants, bin, bids`

const auctionInsert = `
	INSERT INTO query (
		uuid, auctioneer, end_t, item_name, tier, item_id,
		starting_bid, enchants, bin, bids
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (uuid) DO UPDATE SET
		auctioneer = EXCLUDED.auctioneer,
		end_t = EXCLUDED.end_t,
		item_name = EXCLUDED.item_name,
		tier = EXCLUDED.tier,
		item_id = EXCLUDED.item_id,
		starting_bid = EXCLUDED.starting_bid,
		enchants = EXCLUDED.enchants,
		bin = EXCLUDED.bin,
		bids = EXCLUDED.bids`

func scanAuctionRows(rows pgx.Rows) ([]domain.AuctionRecord, error) {
	var records []domain.AuctionRecord
	for rows.Next() {
		var (
			r    domain.AuctionRecord
			bids []byte
		)
		if err := rows.Scan(
			&r.UUID, &r.Auctioneer, &r.EndT, &r.ItemName, &r.Tier,
			&r.ItemID, &r.StartingBid, &r.Enchants, &r.BIN, &bids,
		); err != nil {
			return nil, err
		}
		if len(bids) > 0 {
			if err := json.Unmarshal(bids, &r.Bids); err != nil {
				return nil, fmt.Errorf("decode bids for %s: %w", r.UUID, err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func queueAuctionInserts(batch *pgx.Batch, rows []domain.AuctionRecord) error {
	for _, r := range rows {
		bids, err := json.Marshal(r.Bids)
		if err != nil {
			return fmt.Errorf("encode bids for %s: %w", r.UUID, err)
		}
		enchants := r.Enchants
		if enchants == nil {
			enchants = []string{}
		}
		batch.Queue(auctionInsert,
			r.UUID, r.Auctioneer, r.EndT, r.ItemName, r.Tier, r.ItemID,
			r.StartingBid, enchants, r.BIN, bids,
		)
	}
	return nil
}

// ReplaceAll swaps the whole table for the given rows in one transaction, so
// readers never observe a half-replaced table.
func (s *AuctionStore) ReplaceAll(ctx context.Context, rows []domain.AuctionRecord) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE query"); err != nil {
		return 0, fmt.Errorf("postgres: truncate query: %w", err)
	}

	batch := &pgx.Batch{}
	if err := queueAuctionInserts(batch, rows); err != nil {
		return 0, fmt.Errorf("postgres: %w", err)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("postgres: replace item %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("postgres: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit replace: %w", err)
	}
	return int64(len(rows)), nil
}

// UpsertBatch inserts or updates rows by uuid.
func (s *AuctionStore) UpsertBatch(ctx context.Context, rows []domain.AuctionRecord) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	if err := queueAuctionInserts(batch, rows); err != nil {
		return 0, fmt.Errorf("postgres: %w", err)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("postgres: upsert item %d: %w", i, err)
		}
	}
	return int64(len(rows)), nil
}

// DeleteByUUIDs removes rows whose listings have ended.
func (s *AuctionStore) DeleteByUUIDs(ctx context.Context, uuids []string) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM query WHERE uuid = ANY($1)", uuids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete by uuids: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Search returns rows matching every set filter, soonest-ending first.
func (s *AuctionStore) Search(ctx context.Context, q domain.AuctionQuery) ([]domain.AuctionRecord, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.ItemName != "" {
		where = append(where, "item_name ILIKE "+arg("%"+q.ItemName+"%"))
	}
	if q.ItemID != "" {
		where = append(where, "item_id = "+arg(q.ItemID))
	}
	if q.Tier != "" {
		where = append(where, "tier = "+arg(strings.ToUpper(q.Tier)))
	}
	if q.Enchant != "" {
		where = append(where, arg(strings.ToUpper(q.Enchant))+" = ANY(enchants)")
	}
	if q.Auctioneer != "" {
		where = append(where, "auctioneer = "+arg(q.Auctioneer))
	}
	if q.BIN != nil {
		where = append(where, "bin = "+arg(*q.BIN))
	}

	query := "SELECT " + auctionSelectCols + " FROM query"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY end_t ASC"
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	query += " LIMIT " + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search query: %w", err)
	}
	defer rows.Close()

	records, err := scanAuctionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan search results: %w", err)
	}
	return records, nil
}
