package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyquery/skyquery/internal/domain"
)

// AverageStore implements domain.AverageStore using PostgreSQL. Rows are
// keyed by (kind, epoch, item) so each cycle's output lands in its own
// epoch slice.
type AverageStore struct {
	pool *pgxpool.Pool
}

var _ domain.AverageStore = (*AverageStore)(nil)

// NewAverageStore creates an AverageStore backed by the given pool.
func NewAverageStore(pool *pgxpool.Pool) *AverageStore {
	return &AverageStore{pool: pool}
}

// Insert writes one cycle's finalized rows under the given epoch. Re-running
// the same epoch overwrites its rows instead of erroring.
func (s *AverageStore) Insert(ctx context.Context, kind domain.AverageKind, epoch int64, rows []domain.AvgRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO averages (kind, time_t, item_id, price, sales)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, time_t, item_id) DO UPDATE SET
			price = EXCLUDED.price,
			sales = EXCLUDED.sales`
	for _, r := range rows {
		batch.Queue(query, string(kind), epoch, r.Key, r.Price, r.Sales)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert average item %d: %w", i, err)
		}
	}
	return nil
}

// Averages returns the sales-weighted mean price and total sales per key
// over all epochs newer than since.
func (s *AverageStore) Averages(ctx context.Context, kind domain.AverageKind, since time.Time) (map[string]domain.AvgRow, error) {
	const query = `
		SELECT item_id,
		       SUM(price * sales) / NULLIF(SUM(sales), 0) AS price,
		       SUM(sales) AS sales
		FROM averages
		WHERE kind = $1 AND time_t > $2
		GROUP BY item_id`

	rows, err := s.pool.Query(ctx, query, string(kind), since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("postgres: query averages: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.AvgRow)
	for rows.Next() {
		var (
			r     domain.AvgRow
			price *float64
		)
		if err := rows.Scan(&r.Key, &price, &r.Sales); err != nil {
			return nil, fmt.Errorf("postgres: scan average: %w", err)
		}
		if price != nil {
			r.Price = *price
		}
		out[r.Key] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate averages: %w", err)
	}
	return out, nil
}

// SelectBefore returns all rows finalized before cutoff, tagged with their
// epochs, for archival.
func (s *AverageStore) SelectBefore(ctx context.Context, kind domain.AverageKind, cutoff time.Time) ([]domain.EpochAvgRow, error) {
	const query = `
		SELECT time_t, item_id, price, sales
		FROM averages
		WHERE kind = $1 AND time_t < $2
		ORDER BY time_t ASC`

	rows, err := s.pool.Query(ctx, query, string(kind), cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("postgres: select averages before cutoff: %w", err)
	}
	defer rows.Close()

	var out []domain.EpochAvgRow
	for rows.Next() {
		var r domain.EpochAvgRow
		if err := rows.Scan(&r.Epoch, &r.Row.Key, &r.Row.Price, &r.Row.Sales); err != nil {
			return nil, fmt.Errorf("postgres: scan expired average: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate expired averages: %w", err)
	}
	return out, nil
}

// DeleteBefore prunes rows finalized before cutoff.
func (s *AverageStore) DeleteBefore(ctx context.Context, kind domain.AverageKind, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM averages WHERE kind = $1 AND time_t < $2",
		string(kind), cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete expired averages: %w", err)
	}
	return tag.RowsAffected(), nil
}
