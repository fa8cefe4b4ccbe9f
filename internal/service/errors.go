package service

import (
	"errors"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/data"
	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/pathsafe"
)

// mapStoreError translates data-layer sentinels into application errors. Errors
// that are already AppErrors pass through unchanged.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.GetCode(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, data.ErrTransitionRejected):
		return apperrors.Wrap(err, apperrors.ErrCodeStateConflict, "status changed concurrently")
	case errors.Is(err, data.ErrQueueItemNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "queue item not found")
	case errors.Is(err, data.ErrQueueItemInFlight):
		return apperrors.Wrap(err, apperrors.ErrCodeStateConflict, "queue item is being processed and cannot be deleted")
	case errors.Is(err, data.ErrInvalidTransition):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid transition")
	case errors.Is(err, data.ErrDocumentNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "document not found")
	case errors.Is(err, data.ErrBatchPrintNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "batch print not found")
	case errors.Is(err, core.ErrMergeJobNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "merge job not found")
	case errors.Is(err, core.ErrMergeQueueFull):
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "merge queue is full, retry later")
	case errors.Is(err, pathsafe.ErrOutsideRoot):
		return apperrors.PathSecurity(err)
	}
	return apperrors.MapDBError(err)
}
