package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UploadStatusStore = (*UploadStatusStore)(nil)

// UploadStatusStore implements driven.UploadStatusStore on Postgres.
type UploadStatusStore struct {
	db *DB
}

// NewUploadStatusStore creates a new store.
func NewUploadStatusStore(db *DB) *UploadStatusStore {
	return &UploadStatusStore{db: db}
}

// Create inserts a new record in its initial status.
func (s *UploadStatusStore) Create(ctx context.Context, rec *domain.UploadRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_records (upload_id, contract_name, file_name, status, error, page_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.UploadID, rec.ContractName, rec.FileName, string(rec.Status),
		rec.Error, rec.PageCount, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create upload record: %w", err)
	}
	return nil
}

// UpdateStatus advances a record to the given status.
func (s *UploadStatusStore) UpdateStatus(ctx context.Context, uploadID string, status domain.UploadStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE upload_records
		SET status = $2, error = $3, updated_at = $4
		WHERE upload_id = $1`,
		uploadID, string(status), errMsg, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns a record by upload id.
func (s *UploadStatusStore) Get(ctx context.Context, uploadID string) (*domain.UploadRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT upload_id, contract_name, file_name, status, error, page_count, created_at, updated_at
		FROM upload_records
		WHERE upload_id = $1`,
		uploadID,
	)
	return scanUploadRecord(row)
}

// GetByContract returns the most recent record for a contract name.
func (s *UploadStatusStore) GetByContract(ctx context.Context, contractName string) (*domain.UploadRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT upload_id, contract_name, file_name, status, error, page_count, created_at, updated_at
		FROM upload_records
		WHERE contract_name = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		contractName,
	)
	return scanUploadRecord(row)
}

// List returns records newest first, capped at limit.
func (s *UploadStatusStore) List(ctx context.Context, limit int) ([]*domain.UploadRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT upload_id, contract_name, file_name, status, error, page_count, created_at, updated_at
		FROM upload_records
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload records: %w", err)
	}
	defer rows.Close()

	var out []*domain.UploadRecord
	for rows.Next() {
		rec, err := scanUploadRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the records for a contract name.
func (s *UploadStatusStore) Delete(ctx context.Context, contractName string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM upload_records WHERE contract_name = $1`, contractName,
	); err != nil {
		return fmt.Errorf("failed to delete upload records: %w", err)
	}
	return nil
}

// DeleteAll removes every record.
func (s *UploadStatusStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM upload_records`); err != nil {
		return fmt.Errorf("failed to clear upload records: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUploadRecord(row rowScanner) (*domain.UploadRecord, error) {
	var rec domain.UploadRecord
	var status string
	err := row.Scan(
		&rec.UploadID, &rec.ContractName, &rec.FileName, &status,
		&rec.Error, &rec.PageCount, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload record: %w", err)
	}
	rec.Status = domain.UploadStatus(status)
	return &rec, nil
}
