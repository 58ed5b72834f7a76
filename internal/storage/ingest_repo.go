package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingest_store.go -package=mocks pmcbot/internal/storage IngestStore

import (
	"context"
	"database/sql"
	"fmt"
)

// IngestStore defines the interface for ingest bookkeeping.
type IngestStore interface {
	// Get returns the last ingest of a record. Returns nil and ErrNotFound if never ingested.
	Get(ctx context.Context, recordID string) (*IngestRecord, error)
	// Upsert records a successful ingest.
	Upsert(ctx context.Context, rec *IngestRecord) error
	// Count returns the number of tracked records in a collection.
	Count(ctx context.Context, collection string) (int, error)
}

// IngestRepo provides methods for ingest bookkeeping.
// It implements the IngestStore interface.
type IngestRepo struct {
	db *sql.DB
}

// NewIngestRepo creates a new IngestRepo.
func NewIngestRepo(db *sql.DB) *IngestRepo {
	return &IngestRepo{db: db}
}

// Get implements IngestStore.
func (r *IngestRepo) Get(ctx context.Context, recordID string) (*IngestRecord, error) {
	var rec IngestRecord
	var updatedAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT record_id, collection, point_id, content_hash, updated_at FROM ingest_records WHERE record_id = ?",
		recordID,
	).Scan(&rec.RecordID, &rec.Collection, &rec.PointID, &rec.ContentHash, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest record: %w", err)
	}
	if rec.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert implements IngestStore.
func (r *IngestRepo) Upsert(ctx context.Context, rec *IngestRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ingest_records (record_id, collection, point_id, content_hash, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (record_id) DO UPDATE SET
		 collection = excluded.collection, point_id = excluded.point_id,
		 content_hash = excluded.content_hash, updated_at = CURRENT_TIMESTAMP`,
		rec.RecordID, rec.Collection, rec.PointID, rec.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ingest record: %w", err)
	}
	return nil
}

// Count implements IngestStore.
func (r *IngestRepo) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ingest_records WHERE collection = ?", collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ingest records: %w", err)
	}
	return n, nil
}
