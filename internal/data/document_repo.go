package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
)

// DocumentRepo reads the collaborator documents table.
type DocumentRepo struct {
	DB *sql.DB
}

// NewDocumentRepo creates a DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{DB: db}
}

// GetByID returns a document by file id.
func (r *DocumentRepo) GetByID(ctx context.Context, fileID int64) (*model.Document, error) {
	var (
		d       model.Document
		baseDir sql.NullString
		upAt    sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT file_id, patient_id, file_name, category, file_type, pass, base_dir,
		       is_uploaded, uploaded_at, created_at
		FROM documents
		WHERE file_id = $1
	`, fileID).Scan(
		&d.FileID, &d.PatientID, &d.FileName, &d.Category, &d.FileType, &d.Path, &baseDir,
		&d.IsUploaded, &upAt, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", fileID, err)
	}
	if baseDir.Valid {
		d.BaseDir = baseDir.String
	} else {
		d.BaseDir = model.BaseDirOf(d.Path)
	}
	if upAt.Valid {
		t := upAt.Time
		d.UploadedAt = &t
	}
	return &d, nil
}

var _ core.DocumentRepository = (*DocumentRepo)(nil)
