package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/data/pgxutil"
	"github.com/ageagekun/docqueue/internal/domain/model"
)

// BatchPrintRepo stores merge artifacts.
type BatchPrintRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewBatchPrintRepo creates a BatchPrintRepo. A nil tp uses the system clock.
func NewBatchPrintRepo(db *sql.DB, tp TimeProvider) *BatchPrintRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &BatchPrintRepo{DB: db, timeProvider: tp}
}

const batchPrintColumns = `
  id,
  file_name,
  file_path,
  file_size,
  page_count,
  document_count,
  document_ids,
  success_ids,
  failed_ids,
  created_at
`

func scanBatchPrint(row rowScanner) (*model.BatchPrint, error) {
	var b model.BatchPrint
	if err := row.Scan(
		&b.ID,
		&b.FileName,
		&b.FilePath,
		&b.FileSize,
		&b.PageCount,
		&b.DocumentCount,
		&b.DocumentIDs,
		&b.SuccessIDs,
		&b.FailedIDs,
		&b.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create persists a finished merge. The row is written in one statement, so an
// artifact is either fully recorded or absent.
func (r *BatchPrintRepo) Create(ctx context.Context, req model.CreateBatchPrintRequest) (*model.BatchPrint, error) {
	var bp *model.BatchPrint
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		bp, scanErr = scanBatchPrint(conn.QueryRow(ctx, `
			INSERT INTO batch_prints (
				file_name, file_path, file_size, page_count, document_count,
				document_ids, success_ids, failed_ids, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+batchPrintColumns,
			req.FileName,
			req.FilePath,
			req.FileSize,
			req.PageCount,
			len(req.DocumentIDs),
			nonNilIDs(req.DocumentIDs),
			nonNilIDs(req.SuccessIDs),
			nonNilIDs(req.FailedIDs),
			r.timeProvider.Now().UTC(),
		))
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("create batch print: %w", err)
	}
	return bp, nil
}

// GetByID returns one artifact.
func (r *BatchPrintRepo) GetByID(ctx context.Context, id int64) (*model.BatchPrint, error) {
	var bp *model.BatchPrint
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		bp, scanErr = scanBatchPrint(conn.QueryRow(ctx,
			`SELECT `+batchPrintColumns+` FROM batch_prints WHERE id = $1`, id))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchPrintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch print %d: %w", id, err)
	}
	return bp, nil
}

// List returns artifacts newest first.
func (r *BatchPrintRepo) List(ctx context.Context, limit int) ([]*model.BatchPrint, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*model.BatchPrint
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+batchPrintColumns+`
			FROM batch_prints
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			bp, err := scanBatchPrint(rows)
			if err != nil {
				return err
			}
			out = append(out, bp)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list batch prints: %w", err)
	}
	return out, nil
}

// Delete removes the artifact row. The caller removes the file first.
func (r *BatchPrintRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM batch_prints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete batch print %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrBatchPrintNotFound
	}
	return nil
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

var _ core.BatchPrintRepository = (*BatchPrintRepo)(nil)
