package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/data/pgxutil"
	"github.com/ageagekun/docqueue/internal/domain/model"
)

// idleCheckLockKey serializes the "is the agent finished?" check so that two
// transactions completing the last items concurrently cannot both miss it.
const idleCheckLockKey = 7_302_115

// Transition applies p as a compare-and-swap on the stored status. It returns
// ErrTransitionRejected when the item exists but is not in p.Transition.From(),
// and ErrQueueItemNotFound when it does not exist. Nothing is published on rejection.
func (r *QueueRepo) Transition(ctx context.Context, p core.TransitionParams) (*model.QueueItem, error) {
	if !p.Transition.Valid() {
		return nil, ErrInvalidTransition
	}

	var item *model.QueueItem
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		var txErr error
		item, txErr = r.transitionInTx(ctx, tx, p)
		return txErr
	}})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *QueueRepo) transitionInTx(ctx context.Context, tx pgx.Tx, p core.TransitionParams) (*model.QueueItem, error) {
	now := r.timeProvider.Now().UTC()
	t := p.Transition

	var errMsg *string
	if t.SetsError() {
		errMsg = &p.ErrorMessage
	}

	item, err := scanQueueItem(tx.QueryRow(ctx, `
		UPDATE rpa_queue
		SET status = $3,
		    updated_at = $4,
		    error_message = CASE WHEN $5::boolean THEN $6::text ELSE error_message END
		WHERE id = $1 AND status = $2
		RETURNING `+queueColumns,
		p.ID, string(t.From()), string(t.To()), now, t.SetsError(), errMsg,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.rejection(ctx, tx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("%s queue item %d: %w", t.Name(), p.ID, err)
	}

	if err := r.applySideEffects(ctx, tx, item, p); err != nil {
		return nil, err
	}
	if err := r.notifyStatus(ctx, tx, item, now); err != nil {
		return nil, err
	}
	if endsAgentWork(t) {
		if err := r.notifyIfIdle(ctx, tx, now); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (r *QueueRepo) rejection(ctx context.Context, tx pgx.Tx, p core.TransitionParams) error {
	var current string
	err := tx.QueryRow(ctx, `SELECT status FROM rpa_queue WHERE id = $1`, p.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrQueueItemNotFound
	}
	if err != nil {
		return fmt.Errorf("re-check queue item %d: %w", p.ID, err)
	}
	r.logger.DebugContext(ctx, "transition rejected",
		"queue_id", p.ID,
		"transition", p.Transition.Name(),
		"expected", p.Transition.From(),
		"actual", current,
	)
	return fmt.Errorf("%w: item %d is %s, expected %s", ErrTransitionRejected, p.ID, current, p.Transition.From())
}

func endsAgentWork(t model.Transition) bool {
	return t == model.TransitionMarkUploaded || t == model.TransitionMarkFailed || t == model.TransitionCancel
}

func (r *QueueRepo) applySideEffects(ctx context.Context, tx pgx.Tx, item *model.QueueItem, p core.TransitionParams) error {
	switch p.Transition {
	case model.TransitionMarkUploaded:
		if _, err := tx.Exec(ctx,
			`UPDATE documents SET is_uploaded = true, uploaded_at = $2 WHERE file_id = $1`,
			item.FileID, r.timeProvider.Now().UTC(),
		); err != nil {
			return fmt.Errorf("mark document %d uploaded: %w", item.FileID, err)
		}
		if item.Payload.Pass == "" {
			r.logger.WarnContext(ctx, "uploaded item has no source path; no move requested", "queue_id", item.ID)
			return nil
		}
		return pgxutil.Notify(ctx, tx, model.ChannelFileMovement, model.FileMovementEvent{
			QueueID: item.ID,
			FileID:  item.FileID,
			OldPath: item.Payload.Pass,
			NewPath: model.UploadedPath(item.Payload),
		})

	case model.TransitionMarkReadyToPrint:
		if p.DocumentPath == "" {
			return nil
		}
		baseDir := model.BaseDirOf(p.DocumentPath)
		if _, err := tx.Exec(ctx,
			`UPDATE documents SET pass = $2, base_dir = $3 WHERE file_id = $1`,
			item.FileID, p.DocumentPath, baseDir,
		); err != nil {
			return fmt.Errorf("update document %d path: %w", item.FileID, err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE rpa_queue
			SET payload = payload || jsonb_build_object('pass', $2::text, 'base_dir', $3::text)
			WHERE id = $1
		`, item.ID, p.DocumentPath, baseDir); err != nil {
			return fmt.Errorf("update queue item %d payload: %w", item.ID, err)
		}
		item.Payload.Pass = p.DocumentPath
		item.Payload.BaseDir = baseDir
	}
	return nil
}

func (r *QueueRepo) notifyStatus(ctx context.Context, tx pgx.Tx, item *model.QueueItem, now time.Time) error {
	ev := model.StatusChangedEvent{
		QueueID:   item.ID,
		FileID:    item.FileID,
		Status:    item.Status,
		Timestamp: now,
	}
	if item.ErrorMessage != nil {
		msg := truncateUTF8(*item.ErrorMessage, r.maxNotifyError)
		ev.Error = &msg
	}
	return pgxutil.Notify(ctx, tx, model.ChannelQueueStatusChanged, ev)
}

// truncateUTF8 cuts s to at most n bytes without splitting a character.
func truncateUTF8(s string, n int) string {
	if n < 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (r *QueueRepo) notifyIfIdle(ctx context.Context, tx pgx.Tx, now time.Time) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, idleCheckLockKey); err != nil {
		return fmt.Errorf("lock idle check: %w", err)
	}
	var idle bool
	if err := tx.QueryRow(ctx, `
		SELECT NOT EXISTS (SELECT 1 FROM rpa_queue WHERE status IN ('pending', 'processing'))
	`).Scan(&idle); err != nil {
		return fmt.Errorf("check idle queue: %w", err)
	}
	if !idle {
		return nil
	}
	return pgxutil.Notify(ctx, tx, model.ChannelAllTasksComplete, model.AllTasksCompleteEvent{CompletedAt: now})
}

// CancelAllPending moves every pending item to canceled in one transaction and
// publishes one status notification per canceled item.
func (r *QueueRepo) CancelAllPending(ctx context.Context) (*model.CancelResult, error) {
	res := &model.CancelResult{IDs: []int64{}}
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		now := r.timeProvider.Now().UTC()
		t := model.TransitionCancel
		rows, err := tx.Query(ctx, `
			UPDATE rpa_queue
			SET status = $2, updated_at = $3
			WHERE status = $1
			RETURNING `+queueColumns,
			string(t.From()), string(t.To()), now,
		)
		if err != nil {
			return fmt.Errorf("cancel pending: %w", err)
		}
		items, err := collectQueueItems(rows)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := r.notifyStatus(ctx, tx, item, now); err != nil {
				return err
			}
			res.IDs = append(res.IDs, item.ID)
		}
		res.Count = len(items)
		if len(items) == 0 {
			return nil
		}
		return r.notifyIfIdle(ctx, tx, now)
	}})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Create enqueues documents as pending items in one transaction. A request
// without a payload is snapshotted from the documents and patients tables.
func (r *QueueRepo) Create(ctx context.Context, reqs []model.CreateQueueItemRequest) ([]*model.QueueItem, error) {
	var created []*model.QueueItem
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		now := r.timeProvider.Now().UTC()
		for _, req := range reqs {
			item, err := r.insertInTx(ctx, tx, req, now)
			if err != nil {
				return err
			}
			if err := r.notifyStatus(ctx, tx, item, now); err != nil {
				return err
			}
			created = append(created, item)
		}
		return nil
	}})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *QueueRepo) insertInTx(
	ctx context.Context,
	tx pgx.Tx,
	req model.CreateQueueItemRequest,
	now time.Time,
) (*model.QueueItem, error) {
	patientID := req.PatientID
	var payload model.QueuePayload
	if req.Payload != nil {
		payload = *req.Payload
	} else {
		var docPatient int64
		err := tx.QueryRow(ctx, `
			SELECT d.patient_id, d.file_name, d.category, d.pass, COALESCE(d.base_dir, ''), p.patient_name
			FROM documents d
			JOIN patients p ON p.patient_id = d.patient_id
			WHERE d.file_id = $1
		`, req.FileID).Scan(&docPatient, &payload.FileName, &payload.Category, &payload.Pass,
			&payload.BaseDir, &payload.PatientName)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: file_id %d", ErrDocumentNotFound, req.FileID)
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot document %d: %w", req.FileID, err)
		}
		if patientID == 0 {
			patientID = docPatient
		}
	}
	if payload.BaseDir == "" {
		payload.BaseDir = model.BaseDirOf(payload.Pass)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	item, err := scanQueueItem(tx.QueryRow(ctx, `
		INSERT INTO rpa_queue (file_id, patient_id, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+queueColumns,
		req.FileID, patientID, body, string(model.QueueStatusPending), now,
	))
	if err != nil {
		return nil, fmt.Errorf("insert queue item for file %d: %w", req.FileID, err)
	}
	return item, nil
}

// RecordMoveFailure annotates the items referencing fileID with a move error
// without touching their status, and republishes their state so clients see it.
func (r *QueueRepo) RecordMoveFailure(ctx context.Context, fileID int64, message string) ([]*model.QueueItem, error) {
	var items []*model.QueueItem
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		now := r.timeProvider.Now().UTC()
		rows, err := tx.Query(ctx, `
			UPDATE rpa_queue
			SET error_message = $2, updated_at = $3
			WHERE file_id = $1 AND status IN ('uploaded', 'ready_to_print')
			RETURNING `+queueColumns,
			fileID, message, now,
		)
		if err != nil {
			return fmt.Errorf("record move failure: %w", err)
		}
		if items, err = collectQueueItems(rows); err != nil {
			return err
		}
		for _, item := range items {
			if err := r.notifyStatus(ctx, tx, item, now); err != nil {
				return err
			}
		}
		return nil
	}})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes an item unless a worker currently owns it.
func (r *QueueRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM rpa_queue
		WHERE id = $1
		  AND status NOT IN ('processing', 'merging')
	`, id)
	if err != nil {
		return fmt.Errorf("delete queue item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	item, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.Status.InFlight() {
		return ErrQueueItemInFlight
	}
	return errors.New("unexpected state: queue item is deletable but delete failed")
}

var _ core.QueueRepository = (*QueueRepo)(nil)
