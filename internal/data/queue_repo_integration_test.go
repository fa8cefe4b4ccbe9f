package data

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/domain/queue"
	"github.com/ageagekun/docqueue/internal/testutil"
)

func enqueue(t *testing.T, repo *QueueRepo, db *sql.DB, name string) *model.QueueItem {
	t.Helper()
	fileID := testutil.SeedDocument(t, db, testutil.SeedDocumentParams{
		PatientID:   1,
		PatientName: "Yamada Taro",
		FileName:    name,
		Category:    "report",
		Path:        "/srv/docs/p1/" + name,
	})
	items, err := repo.Create(context.Background(), []model.CreateQueueItemRequest{{FileID: fileID}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0]
}

func advance(t *testing.T, repo *QueueRepo, id int64, edges ...model.Transition) *model.QueueItem {
	t.Helper()
	var item *model.QueueItem
	for _, tr := range edges {
		var err error
		item, err = repo.Transition(context.Background(), core.TransitionParams{ID: id, Transition: tr})
		require.NoError(t, err, tr.String())
	}
	return item
}

// nextFor waits for the next notification on channel whose decoded queue id matches.
func nextFor(t *testing.T, l *PgListener, channel string, queueID int64) queue.Notification {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Until(deadline))
		note, err := l.WaitForNotification(ctx)
		cancel()
		require.NoError(t, err)
		if note.Channel != channel {
			continue
		}
		var decoded struct {
			QueueID int64 `json:"queue_id"`
		}
		require.NoError(t, note.Decode(&decoded))
		if decoded.QueueID == queueID {
			return note
		}
	}
	t.Fatalf("no %s notification for queue item %d", channel, queueID)
	return queue.Notification{}
}

func TestQueueRepo_Integration_CreateSnapshotsPayload(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		item := enqueue(t, repo, db, "a.pdf")

		assert.Equal(t, model.QueueStatusPending, item.Status)
		assert.Equal(t, "a.pdf", item.Payload.FileName)
		assert.Equal(t, "/srv/docs/p1/a.pdf", item.Payload.Pass)
		assert.Equal(t, "/srv/docs/p1", item.Payload.BaseDir)
		assert.Equal(t, "Yamada Taro", item.Payload.PatientName)
		assert.Nil(t, item.ErrorMessage)

		_, err := repo.Create(context.Background(), []model.CreateQueueItemRequest{{FileID: 999999}})
		require.ErrorIs(t, err, ErrDocumentNotFound)
	})
}

func TestQueueRepo_Integration_DuplicateActiveFileRejected(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		item := enqueue(t, repo, db, "dup.pdf")

		_, err := repo.Create(context.Background(), []model.CreateQueueItemRequest{{FileID: item.FileID}})
		require.Error(t, err)

		active, err := repo.ListActive(context.Background())
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})
}

func TestQueueRepo_Integration_CompareAndSwap(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		ctx := context.Background()
		item := enqueue(t, repo, db, "cas.pdf")

		// expected "from" does not match: rejected, status unchanged
		_, err := repo.Transition(ctx, core.TransitionParams{ID: item.ID, Transition: model.TransitionMarkUploaded})
		require.ErrorIs(t, err, ErrTransitionRejected)

		got, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, model.QueueStatusPending, got.Status)

		updated := advance(t, repo, item.ID, model.TransitionStartProcessing)
		assert.Equal(t, model.QueueStatusProcessing, updated.Status)
		assert.True(t, !updated.UpdatedAt.Before(got.UpdatedAt))

		// a retried call is rejected, not applied twice
		_, err = repo.Transition(ctx, core.TransitionParams{ID: item.ID, Transition: model.TransitionStartProcessing})
		require.ErrorIs(t, err, ErrTransitionRejected)

		_, err = repo.Transition(ctx, core.TransitionParams{ID: 424242, Transition: model.TransitionStartProcessing})
		require.ErrorIs(t, err, ErrQueueItemNotFound)

		_, err = repo.Transition(ctx, core.TransitionParams{ID: item.ID})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestQueueRepo_Integration_ConcurrentTransitionsSingleWinner(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		item := enqueue(t, repo, db, "race.pdf")

		const callers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			wins     int
			rejected int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tr := model.TransitionStartProcessing
				if i%2 == 1 {
					tr = model.TransitionCancel
				}
				_, err := repo.Transition(context.Background(), core.TransitionParams{ID: item.ID, Transition: tr})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
				} else if assert.ErrorIs(t, err, ErrTransitionRejected) {
					rejected++
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		assert.Equal(t, callers-1, rejected)

		got, err := repo.GetByID(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Contains(t, []model.QueueStatus{model.QueueStatusProcessing, model.QueueStatusCanceled}, got.Status)
	})
}

func TestQueueRepo_Integration_FailedRecordsError(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		ctx := context.Background()
		item := enqueue(t, repo, db, "fail.pdf")
		advance(t, repo, item.ID, model.TransitionStartProcessing)

		failed, err := repo.Transition(ctx, core.TransitionParams{
			ID:           item.ID,
			Transition:   model.TransitionMarkFailed,
			ErrorMessage: "login timeout",
		})
		require.NoError(t, err)
		assert.Equal(t, model.QueueStatusFailed, failed.Status)
		require.NotNil(t, failed.ErrorMessage)
		assert.Equal(t, "login timeout", *failed.ErrorMessage)
	})
}

func TestQueueRepo_Integration_NotificationsCommitWithTransition(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		listener := NewPgListener(PgListenerOptions{DB: db})
		defer listener.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		first, err := listener.WaitForNotification(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.ChannelResync, first.Channel)
		assert.True(t, listener.Connected())

		item := enqueue(t, repo, db, "notify.pdf")
		var ev model.StatusChangedEvent
		require.NoError(t, nextFor(t, listener, model.ChannelQueueStatusChanged, item.ID).Decode(&ev))
		assert.Equal(t, model.QueueStatusPending, ev.Status)

		// the rejected attempt publishes nothing, so the next event is the real one
		_, err = repo.Transition(context.Background(), core.TransitionParams{ID: item.ID, Transition: model.TransitionMarkDone})
		require.ErrorIs(t, err, ErrTransitionRejected)
		advance(t, repo, item.ID, model.TransitionStartProcessing)
		require.NoError(t, nextFor(t, listener, model.ChannelQueueStatusChanged, item.ID).Decode(&ev))
		assert.Equal(t, model.QueueStatusProcessing, ev.Status)
		assert.Equal(t, item.FileID, ev.FileID)

		advance(t, repo, item.ID, model.TransitionMarkUploaded)
		var move model.FileMovementEvent
		require.NoError(t, nextFor(t, listener, model.ChannelFileMovement, item.ID).Decode(&move))
		assert.Equal(t, "/srv/docs/p1/notify.pdf", move.OldPath)
		assert.Equal(t, "/srv/docs/p1/uploaded/notify.pdf", move.NewPath)
	})
}

func TestQueueRepo_Integration_CancelAllPending(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		ctx := context.Background()

		p1 := enqueue(t, repo, db, "p1.pdf")
		p2 := enqueue(t, repo, db, "p2.pdf")
		busy := enqueue(t, repo, db, "busy.pdf")
		advance(t, repo, busy.ID, model.TransitionStartProcessing)

		listener := NewPgListener(PgListenerOptions{DB: db})
		defer listener.Close()
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := listener.WaitForNotification(waitCtx)
		require.NoError(t, err)

		res, err := repo.CancelAllPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count)
		assert.ElementsMatch(t, []int64{p1.ID, p2.ID}, res.IDs)

		for _, id := range res.IDs {
			var ev model.StatusChangedEvent
			require.NoError(t, nextFor(t, listener, model.ChannelQueueStatusChanged, id).Decode(&ev))
			assert.Equal(t, model.QueueStatusCanceled, ev.Status)
		}

		got, err := repo.GetByID(ctx, busy.ID)
		require.NoError(t, err)
		assert.Equal(t, model.QueueStatusProcessing, got.Status)

		again, err := repo.CancelAllPending(ctx)
		require.NoError(t, err)
		assert.Zero(t, again.Count)
		assert.Empty(t, again.IDs)
	})
}

func TestQueueRepo_Integration_ReadyToPrintUpdatesDocumentPath(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		docs := NewDocumentRepo(db)
		ctx := context.Background()
		item := enqueue(t, repo, db, "move.pdf")
		advance(t, repo, item.ID, model.TransitionStartProcessing, model.TransitionMarkUploaded)

		ready, err := repo.Transition(ctx, core.TransitionParams{
			ID:           item.ID,
			Transition:   model.TransitionMarkReadyToPrint,
			DocumentPath: "/srv/docs/p1/uploaded/move.pdf",
		})
		require.NoError(t, err)
		assert.Equal(t, "/srv/docs/p1/uploaded/move.pdf", ready.Payload.Pass)

		doc, err := docs.GetByID(ctx, item.FileID)
		require.NoError(t, err)
		assert.Equal(t, "/srv/docs/p1/uploaded/move.pdf", doc.Path)
		assert.Equal(t, "/srv/docs/p1/uploaded", doc.BaseDir)
		assert.True(t, doc.IsUploaded)

		srcs, err := repo.MergeSources(ctx, []int64{item.ID, 777777})
		require.NoError(t, err)
		require.Len(t, srcs, 1)
		assert.Equal(t, model.QueueStatusReadyToPrint, srcs[0].Status)
		assert.Equal(t, "/srv/docs/p1/uploaded/move.pdf", srcs[0].Path)

		readyDocs, err := repo.ReadyDocuments(ctx, model.ReadyDocumentListOptions{Sort: model.SortByFileName})
		require.NoError(t, err)
		require.Len(t, readyDocs, 1)
		assert.Equal(t, "Yamada Taro", readyDocs[0].PatientName)
	})
}

func TestQueueRepo_Integration_MoveFailureKeepsStatus(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		ctx := context.Background()
		item := enqueue(t, repo, db, "stuck.pdf")
		advance(t, repo, item.ID, model.TransitionStartProcessing, model.TransitionMarkUploaded)

		items, err := repo.RecordMoveFailure(ctx, item.FileID, "permission denied")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, model.QueueStatusUploaded, items[0].Status)
		require.NotNil(t, items[0].ErrorMessage)
		assert.Equal(t, "permission denied", *items[0].ErrorMessage)
	})
}

func TestQueueRepo_Integration_DeleteRejectsInFlight(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		ctx := context.Background()
		item := enqueue(t, repo, db, "del.pdf")
		advance(t, repo, item.ID, model.TransitionStartProcessing)

		require.ErrorIs(t, repo.Delete(ctx, item.ID), ErrQueueItemInFlight)

		advance(t, repo, item.ID, model.TransitionMarkUploaded)
		require.NoError(t, repo.Delete(ctx, item.ID))
		require.ErrorIs(t, repo.Delete(ctx, item.ID), ErrQueueItemNotFound)
	})
}

func TestQueueRepo_Integration_OverviewAndDailyStats(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, QueueRepoConfig{})
		ctx := context.Background()

		enqueue(t, repo, db, "o1.pdf")
		failed := enqueue(t, repo, db, "o2.pdf")
		advance(t, repo, failed.ID, model.TransitionStartProcessing)
		_, err := repo.Transition(ctx, core.TransitionParams{ID: failed.ID, Transition: model.TransitionMarkFailed, ErrorMessage: "x"})
		require.NoError(t, err)

		since := time.Now().Add(-time.Hour)
		ov, err := repo.Overview(ctx, since)
		require.NoError(t, err)
		assert.Equal(t, 2, ov.Total)
		assert.Equal(t, 1, ov.Counts[model.QueueStatusPending])
		assert.Equal(t, 1, ov.Counts[model.QueueStatusFailed])
		assert.Equal(t, 0, ov.Counts[model.QueueStatusDone])

		st, err := repo.DailyStats(ctx, since)
		require.NoError(t, err)
		assert.Equal(t, model.DailyStats{Total: 2, Successful: 0, Failed: 1}, *st)
	})
}

func TestBatchPrintRepo_Integration_Lifecycle(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewBatchPrintRepo(db, nil)
		ctx := context.Background()

		bp, err := repo.Create(ctx, model.CreateBatchPrintRequest{
			FileName:    "batch_20240101_120000_abcd1234.pdf",
			FilePath:    "/srv/docs/batch/batch_20240101_120000_abcd1234.pdf",
			FileSize:    2048,
			PageCount:   5,
			DocumentIDs: []int64{1, 2, 3},
			SuccessIDs:  []int64{1, 3},
			FailedIDs:   []int64{2},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, bp.DocumentCount)
		assert.Equal(t, []int64{2}, bp.FailedIDs)

		got, err := repo.GetByID(ctx, bp.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, got.SuccessIDs)

		list, err := repo.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)

		require.NoError(t, repo.Delete(ctx, bp.ID))
		require.ErrorIs(t, repo.Delete(ctx, bp.ID), ErrBatchPrintNotFound)
		_, err = repo.GetByID(ctx, bp.ID)
		require.ErrorIs(t, err, ErrBatchPrintNotFound)

		// an artifact without any merged document violates the partition check
		_, err = repo.Create(ctx, model.CreateBatchPrintRequest{
			FileName:    "empty.pdf",
			FilePath:    "/srv/docs/batch/empty.pdf",
			DocumentIDs: []int64{4},
			FailedIDs:   []int64{4},
		})
		require.Error(t, err)
	})
}
