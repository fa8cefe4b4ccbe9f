package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ageagekun/docqueue/internal/data/pgxutil"
	"github.com/ageagekun/docqueue/internal/domain/model"
)

// QueueRepoConfig holds configuration options for the queue repository.
type QueueRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
	// MaxNotifyError caps the error text carried in status notifications.
	MaxNotifyError int
}

// QueueRepo is the queue store. Every status change goes through a
// compare-and-swap UPDATE and publishes its notification in the same transaction.
type QueueRepo struct {
	DB             *sql.DB
	timeProvider   TimeProvider
	logger         *slog.Logger
	maxNotifyError int
}

// NewQueueRepo creates a new QueueRepo instance with the given database connection and configuration.
func NewQueueRepo(db *sql.DB, cfg QueueRepoConfig) *QueueRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxErr := cfg.MaxNotifyError
	if maxErr <= 0 {
		maxErr = 1000
	}
	return &QueueRepo{
		DB:             db,
		timeProvider:   tp,
		logger:         logger.With("component", "queue_repo"),
		maxNotifyError: maxErr,
	}
}

const queueColumns = `
  id,
  file_id,
  patient_id,
  payload,
  status,
  error_message,
  created_at,
  updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (*model.QueueItem, error) {
	var (
		item    model.QueueItem
		payload []byte
		status  string
	)
	if err := row.Scan(
		&item.ID,
		&item.FileID,
		&item.PatientID,
		&payload,
		&status,
		&item.ErrorMessage,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Status = model.QueueStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &item.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of queue item %d: %w", item.ID, err)
		}
	}
	return &item, nil
}

func collectQueueItems(rows pgx.Rows) ([]*model.QueueItem, error) {
	defer rows.Close()
	var items []*model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue items: %w", err)
	}
	return items, nil
}

// GetByID returns a single queue item.
func (r *QueueRepo) GetByID(ctx context.Context, id int64) (*model.QueueItem, error) {
	var item *model.QueueItem
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		item, scanErr = scanQueueItem(conn.QueryRow(ctx, `SELECT `+queueColumns+` FROM rpa_queue WHERE id = $1`, id))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQueueItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item %d: %w", id, err)
	}
	return item, nil
}

// activeQuery fills payload gaps from the collaborator tables for items
// enqueued before the snapshot carried every field.
const activeQuery = `
SELECT q.id,
       q.file_id,
       q.patient_id,
       jsonb_build_object(
         'file_name',    COALESCE(NULLIF(q.payload->>'file_name', ''), d.file_name, ''),
         'category',     COALESCE(NULLIF(q.payload->>'category', ''), d.category, ''),
         'pass',         COALESCE(NULLIF(q.payload->>'pass', ''), d.pass, ''),
         'base_dir',     COALESCE(NULLIF(q.payload->>'base_dir', ''), d.base_dir, ''),
         'patient_name', COALESCE(NULLIF(q.payload->>'patient_name', ''), p.patient_name, '')
       ),
       q.status,
       q.error_message,
       q.created_at,
       q.updated_at
FROM rpa_queue q
LEFT JOIN documents d ON d.file_id = q.file_id
LEFT JOIN patients p ON p.patient_id = q.patient_id
WHERE q.status = ANY($1::text[])
ORDER BY q.created_at ASC, q.id ASC
LIMIT $2
`

// ListByStatus returns items in any of the given statuses, oldest first.
func (r *QueueRepo) ListByStatus(ctx context.Context, statuses []model.QueueStatus, limit int) ([]*model.QueueItem, error) {
	if limit <= 0 {
		limit = 1000
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	var items []*model.QueueItem
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, activeQuery, names, limit)
		if err != nil {
			return err
		}
		items, err = collectQueueItems(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	return items, nil
}

// ListActive returns the pending board: every item in an active status.
func (r *QueueRepo) ListActive(ctx context.Context) ([]*model.QueueItem, error) {
	return r.ListByStatus(ctx, model.ActiveQueueStatuses(), 0)
}

// Overview counts items per status created at or after since.
func (r *QueueRepo) Overview(ctx context.Context, since time.Time) (*model.QueueOverview, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM rpa_queue
		WHERE created_at >= $1
		GROUP BY status
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query overview: %w", err)
	}
	defer rows.Close()

	ov := &model.QueueOverview{Since: since, Counts: make(map[model.QueueStatus]int)}
	for _, s := range model.AllQueueStatuses() {
		ov.Counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan overview: %w", err)
		}
		ov.Counts[model.QueueStatus(status)] = n
		ov.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overview: %w", err)
	}
	return ov, nil
}

// DailyStats summarizes outcomes of items created at or after since.
func (r *QueueRepo) DailyStats(ctx context.Context, since time.Time) (*model.DailyStats, error) {
	var st model.DailyStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status IN ('ready_to_print', 'done')),
		       COUNT(*) FILTER (WHERE status = 'failed')
		FROM rpa_queue
		WHERE created_at >= $1
	`, since.UTC()).Scan(&st.Total, &st.Successful, &st.Failed)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	return &st, nil
}

// MergeSources resolves queue ids to their current status and on-disk path.
// Results follow the order of ids; unknown ids are omitted.
func (r *QueueRepo) MergeSources(ctx context.Context, ids []int64) ([]model.MergeSource, error) {
	byID := make(map[int64]model.MergeSource, len(ids))
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT q.id, q.file_id, q.status, COALESCE(d.pass, q.payload->>'pass', '')
			FROM rpa_queue q
			LEFT JOIN documents d ON d.file_id = q.file_id
			WHERE q.id = ANY($1::bigint[])
		`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var src model.MergeSource
			var status string
			if err := rows.Scan(&src.QueueID, &src.FileID, &status, &src.Path); err != nil {
				return err
			}
			src.Status = model.QueueStatus(status)
			byID[src.QueueID] = src
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("resolve merge sources: %w", err)
	}

	out := make([]model.MergeSource, 0, len(byID))
	for _, id := range ids {
		if src, ok := byID[id]; ok {
			out = append(out, src)
		}
	}
	return out, nil
}

var readyDocumentOrder = map[model.ReadyDocumentSort]string{
	model.SortByPatientName: "patient_name",
	model.SortByFileName:    "file_name",
	model.SortByCreatedAt:   "q.created_at",
}

// ReadyDocuments lists ready-to-print items for batch selection.
func (r *QueueRepo) ReadyDocuments(ctx context.Context, opts model.ReadyDocumentListOptions) ([]model.ReadyDocument, error) {
	orderCol, ok := readyDocumentOrder[opts.Sort]
	if !ok {
		orderCol = readyDocumentOrder[model.SortByCreatedAt]
	}
	dir := "ASC"
	if opts.Descending {
		dir = "DESC"
	}

	query := `
		SELECT q.id,
		       q.file_id,
		       q.patient_id,
		       COALESCE(p.patient_name, q.payload->>'patient_name', '') AS patient_name,
		       COALESCE(d.file_name, q.payload->>'file_name', '') AS file_name,
		       COALESCE(d.category, q.payload->>'category', '') AS category,
		       COALESCE(d.pass, q.payload->>'pass', '') AS file_path,
		       q.created_at
		FROM rpa_queue q
		LEFT JOIN documents d ON d.file_id = q.file_id
		LEFT JOIN patients p ON p.patient_id = q.patient_id
		WHERE q.status = 'ready_to_print'
		ORDER BY ` + orderCol + ` ` + dir + `, q.id ASC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ready documents: %w", err)
	}
	defer rows.Close()

	var docs []model.ReadyDocument
	for rows.Next() {
		var d model.ReadyDocument
		if err := rows.Scan(&d.QueueID, &d.FileID, &d.PatientID, &d.PatientName,
			&d.FileName, &d.Category, &d.FilePath, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ready document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ready documents: %w", err)
	}
	return docs, nil
}
