// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"imagefeed/internal/models"
)

// ErrBatchNotFound is returned when a batch id has no status record.
var ErrBatchNotFound = errors.New("batch not found")

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

// SaveProduct appends one product record with its full image list in a
// single insert. There is no uniqueness constraint on the name: saving
// the same product twice creates two rows.
func (s *Storage) SaveProduct(ctx context.Context, p *models.Product) error {
	const op = "storage.SaveProduct"

	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO products (id, batch_id, name, images) VALUES ($1, $2, $3, $4)`,
		p.ID, p.BatchID, p.Name, images)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateBatch inserts a new batch record in the pending state.
func (s *Storage) CreateBatch(ctx context.Context, id uuid.UUID) error {
	const op = "storage.CreateBatch"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO batches (id, status) VALUES ($1, $2)`,
		id, models.BatchPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompleteBatch transitions a batch to completed. An unknown id fails
// with ErrBatchNotFound rather than silently succeeding.
func (s *Storage) CompleteBatch(ctx context.Context, id uuid.UUID) error {
	const op = "storage.CompleteBatch"

	tag, err := s.pool.Exec(ctx,
		`UPDATE batches SET status = $2, updated_at = now() WHERE id = $1`,
		id, models.BatchCompleted)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrBatchNotFound)
	}
	return nil
}

func (s *Storage) GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	const op = "storage.GetBatch"

	var b models.Batch
	err := s.pool.QueryRow(ctx,
		`SELECT id, status FROM batches WHERE id = $1`,
		id).Scan(&b.ID, &b.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrBatchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &b, nil
}
