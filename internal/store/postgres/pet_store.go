package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyquery/skyquery/internal/domain"
)

// PetStore implements domain.PetStore using PostgreSQL.
type PetStore struct {
	pool *pgxpool.Pool
}

var _ domain.PetStore = (*PetStore)(nil)

// NewPetStore creates a PetStore backed by the given pool.
func NewPetStore(pool *pgxpool.Pool) *PetStore {
	return &PetStore{pool: pool}
}

// Upsert writes the given pet prices, overwriting existing names.
func (s *PetStore) Upsert(ctx context.Context, rows []domain.PetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO pets (name, price) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price`
	for _, r := range rows {
		batch.Queue(query, r.Name, r.Price)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("postgres: upsert pet item %d: %w", i, err)
		}
	}
	return int64(len(rows)), nil
}

// Get returns one pet's average price by its canonical name.
func (s *PetStore) Get(ctx context.Context, name string) (domain.PetRow, error) {
	var r domain.PetRow
	err := s.pool.QueryRow(ctx,
		"SELECT name, price FROM pets WHERE name = $1", name,
	).Scan(&r.Name, &r.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PetRow{}, fmt.Errorf("postgres: pet %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.PetRow{}, fmt.Errorf("postgres: get pet %s: %w", name, err)
	}
	return r, nil
}

// List returns every pet price row, name-ordered.
func (s *PetStore) List(ctx context.Context) ([]domain.PetRow, error) {
	rows, err := s.pool.Query(ctx, "SELECT name, price FROM pets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("postgres: list pets: %w", err)
	}
	defer rows.Close()

	var out []domain.PetRow
	for rows.Next() {
		var r domain.PetRow
		if err := rows.Scan(&r.Name, &r.Price); err != nil {
			return nil, fmt.Errorf("postgres: scan pet: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate pets: %w", err)
	}
	return out, nil
}
