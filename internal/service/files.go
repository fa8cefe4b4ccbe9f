package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/pathsafe"
)

// FileServiceOptions groups dependencies for FileService.
type FileServiceOptions struct {
	Documents core.DocumentRepository
	Root      *pathsafe.Root
	Logger    *slog.Logger
}

// FileService resolves document files under the configured root.
type FileService struct {
	documents core.DocumentRepository
	root      *pathsafe.Root
	logger    *slog.Logger
}

// NewFileService constructs a FileService.
func NewFileService(opts FileServiceOptions) (*FileService, error) {
	if opts.Documents == nil {
		return nil, errors.New("DocumentRepository is required")
	}
	if opts.Root == nil {
		return nil, errors.New("files root is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FileService{
		documents: opts.Documents,
		root:      opts.Root,
		logger:    logger.With("component", "file_service"),
	}, nil
}

// Resolve returns the document and the real path of its file. Paths that
// escape the root yield a path_security error; a missing file yields not_found.
func (s *FileService) Resolve(ctx context.Context, fileID int64) (*model.Document, string, error) {
	doc, err := s.documents.GetByID(ctx, fileID)
	if err != nil {
		return nil, "", mapStoreError(err)
	}
	if doc.Path == "" {
		return nil, "", apperrors.NotFoundf("document %d has no file", fileID)
	}
	p, err := s.root.Resolve(doc.Path)
	if err != nil {
		s.logger.WarnContext(ctx, "file access outside files root denied",
			"file_id", fileID, "path", doc.Path)
		return nil, "", apperrors.PathSecurity(err)
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", apperrors.NotFoundf("file for document %d not found", fileID)
	}
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrCodeIOFailure, "stat document file")
	}
	if info.IsDir() {
		return nil, "", apperrors.NotFoundf("file for document %d not found", fileID)
	}
	return doc, p, nil
}

// Info describes a document file without opening it. A missing file is
// reported with Exists=false rather than as an error.
func (s *FileService) Info(ctx context.Context, fileID int64) (*model.FileInfo, error) {
	doc, err := s.documents.GetByID(ctx, fileID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := &model.FileInfo{FileID: doc.FileID, FileName: doc.FileName, Path: doc.Path}
	if out.FileName == "" {
		out.FileName = filepath.Base(doc.Path)
	}
	p, err := s.root.Resolve(doc.Path)
	if err != nil {
		s.logger.WarnContext(ctx, "file info outside files root denied", "file_id", fileID, "path", doc.Path)
		return nil, apperrors.PathSecurity(err)
	}
	info, err := os.Stat(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return out, nil
	case err != nil:
		return nil, apperrors.Wrap(err, apperrors.ErrCodeIOFailure, fmt.Sprintf("stat file for document %d", fileID))
	}
	out.Exists = !info.IsDir()
	out.Size = info.Size()
	mod := info.ModTime()
	out.ModifiedAt = &mod
	return out, nil
}
