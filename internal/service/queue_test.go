package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/data"
	"github.com/ageagekun/docqueue/internal/domain/model"
	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/mocks"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
	"github.com/ageagekun/docqueue/internal/pathsafe"
	"github.com/ageagekun/docqueue/internal/testutil"
)

func newTestQueueService(t *testing.T) (*QueueService, *mocks.MockQueueRepository, *statsd.Recorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockQueueRepository(ctrl)
	rec := &statsd.Recorder{}
	root, err := pathsafe.NewRoot(t.TempDir())
	require.NoError(t, err)
	svc := MustNewQueueService(QueueServiceOptions{
		Repo:    repo,
		Root:    root,
		Metrics: rec,
		Clock:   testutil.FixedTimeFunc(testutil.TestTime()),
	})
	return svc, repo, rec
}

func transitionTo(p core.TransitionParams) *model.QueueItem {
	return &model.QueueItem{ID: p.ID, Status: p.Transition.To()}
}

func TestNewQueueService(t *testing.T) {
	_, err := NewQueueService(QueueServiceOptions{})
	require.Error(t, err)

	ctrl := gomock.NewController(t)
	_, err = NewQueueService(QueueServiceOptions{Repo: mocks.NewMockQueueRepository(ctrl)})
	require.Error(t, err, "files root is required")

	assert.Panics(t, func() { MustNewQueueService(QueueServiceOptions{}) })
}

func TestQueueService_NamedOperationsUseTheirEdge(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(*QueueService) (*model.QueueItem, error)
		want model.Transition
	}{
		{"start processing", func(s *QueueService) (*model.QueueItem, error) { return s.StartProcessing(ctx, 7) },
			model.TransitionStartProcessing},
		{"uploaded", func(s *QueueService) (*model.QueueItem, error) { return s.MarkUploaded(ctx, 7) },
			model.TransitionMarkUploaded},
		{"complete alias", func(s *QueueService) (*model.QueueItem, error) { return s.Complete(ctx, 7) },
			model.TransitionMarkUploaded},
		{"ready to print", func(s *QueueService) (*model.QueueItem, error) { return s.MarkReadyToPrint(ctx, 7, "") },
			model.TransitionMarkReadyToPrint},
		{"merging", func(s *QueueService) (*model.QueueItem, error) { return s.StartMerging(ctx, 7) },
			model.TransitionStartMerging},
		{"done", func(s *QueueService) (*model.QueueItem, error) { return s.MarkDone(ctx, 7) },
			model.TransitionMarkDone},
		{"cancel", func(s *QueueService) (*model.QueueItem, error) { return s.Cancel(ctx, 7) },
			model.TransitionCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, rec := newTestQueueService(t)
			repo.EXPECT().Transition(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, p core.TransitionParams) (*model.QueueItem, error) {
					assert.Equal(t, int64(7), p.ID)
					assert.Equal(t, tt.want, p.Transition)
					return transitionTo(p), nil
				})

			item, err := tt.call(svc)
			require.NoError(t, err)
			assert.Equal(t, tt.want.To(), item.Status)
			assert.Contains(t, rec.Lines(), "queue.transition:1|c|#result:success,transition:"+tt.want.Name())
		})
	}
}

func TestQueueService_MarkFailedDefaultsMessage(t *testing.T) {
	svc, repo, _ := newTestQueueService(t)
	repo.EXPECT().Transition(gomock.Any(), core.TransitionParams{
		ID:           3,
		Transition:   model.TransitionMarkFailed,
		ErrorMessage: DefaultFailureMessage,
	}).Return(&model.QueueItem{ID: 3, Status: model.QueueStatusFailed}, nil)

	_, err := svc.MarkFailed(context.Background(), 3, "   ")
	require.NoError(t, err)
}

func TestQueueService_MarkReadyToPrintPassesResolvedPath(t *testing.T) {
	svc, repo, _ := newTestQueueService(t)
	want := filepath.Join(svc.root.Dir(), "p1", "uploaded", "a.pdf")
	repo.EXPECT().Transition(gomock.Any(), core.TransitionParams{
		ID:           4,
		Transition:   model.TransitionMarkReadyToPrint,
		DocumentPath: want,
	}).Return(&model.QueueItem{ID: 4, Status: model.QueueStatusReadyToPrint}, nil)

	_, err := svc.MarkReadyToPrint(context.Background(), 4, " p1/uploaded/./a.pdf ")
	require.NoError(t, err)
}

func TestQueueService_MarkReadyToPrintRejectsPathOutsideRoot(t *testing.T) {
	svc, _, _ := newTestQueueService(t)
	outside := t.TempDir()
	link := filepath.Join(svc.root.Dir(), "link")
	require.NoError(t, os.Symlink(outside, link))

	for _, p := range []string{
		"/etc/passwd",
		"../sibling/a.pdf",
		filepath.Join(link, "a.pdf"),
	} {
		item, err := svc.MarkReadyToPrint(context.Background(), 4, p)
		require.Error(t, err, p)
		assert.Nil(t, item)
		assert.True(t, apperrors.IsPathSecurity(err), p)
	}
}

func TestQueueService_AnnotateMergeErrorRequiresMessage(t *testing.T) {
	svc, _, _ := newTestQueueService(t)

	_, err := svc.AnnotateMergeError(context.Background(), 5, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestQueueService_TransitionErrors(t *testing.T) {
	tests := []struct {
		name       string
		repoErr    error
		check      func(error) bool
		wantResult string
	}{
		{
			name:       "cas rejection is a state conflict",
			repoErr:    fmt.Errorf("%w: status is processing", data.ErrTransitionRejected),
			check:      apperrors.IsStateConflict,
			wantResult: "rejected",
		},
		{
			name:       "missing item is not found",
			repoErr:    data.ErrQueueItemNotFound,
			check:      apperrors.IsNotFound,
			wantResult: "error",
		},
		{
			name:       "connection failure is unavailable",
			repoErr:    sql.ErrConnDone,
			check:      apperrors.IsUnavailable,
			wantResult: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, rec := newTestQueueService(t)
			repo.EXPECT().Transition(gomock.Any(), gomock.Any()).Return(nil, tt.repoErr)

			item, err := svc.StartProcessing(context.Background(), 11)
			require.Error(t, err)
			assert.Nil(t, item)
			assert.True(t, tt.check(err), "unexpected error %v", err)
			assert.ErrorIs(t, err, tt.repoErr)

			found := false
			for _, line := range rec.Lines() {
				if strings.HasPrefix(line, "queue.transition:1|c") && strings.Contains(line, "result:"+tt.wantResult) {
					found = true
				}
			}
			assert.True(t, found, "metrics: %v", rec.Lines())
		})
	}
}

func TestQueueService_RejectsNonPositiveID(t *testing.T) {
	svc, _, _ := newTestQueueService(t)

	_, err := svc.Cancel(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestQueueService_Create(t *testing.T) {
	t.Run("validates before touching the store", func(t *testing.T) {
		svc, _, _ := newTestQueueService(t)
		ctx := context.Background()

		_, err := svc.Create(ctx, nil)
		assert.True(t, apperrors.IsValidation(err))

		_, err = svc.Create(ctx, []model.CreateQueueItemRequest{{FileID: 1}, {FileID: 1}})
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, "file_id", apperrors.GetField(err))

		_, err = svc.Create(ctx, []model.CreateQueueItemRequest{{FileID: -2}})
		assert.True(t, apperrors.IsValidation(err))

		many := make([]model.CreateQueueItemRequest, MaxCreateBatch+1)
		for i := range many {
			many[i].FileID = int64(i + 1)
		}
		_, err = svc.Create(ctx, many)
		assert.True(t, apperrors.IsResourceExceeded(err))
	})

	t.Run("unknown document maps to not found", func(t *testing.T) {
		svc, repo, _ := newTestQueueService(t)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, data.ErrDocumentNotFound)

		_, err := svc.Create(context.Background(), []model.CreateQueueItemRequest{{FileID: 9}})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("returns created items", func(t *testing.T) {
		svc, repo, _ := newTestQueueService(t)
		want := []*model.QueueItem{{ID: 1, FileID: 9, Status: model.QueueStatusPending}}
		repo.EXPECT().Create(gomock.Any(), []model.CreateQueueItemRequest{{FileID: 9, PatientID: 2}}).Return(want, nil)

		got, err := svc.Create(context.Background(), []model.CreateQueueItemRequest{{FileID: 9, PatientID: 2}})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestQueueService_OverviewUsesTrailingWindow(t *testing.T) {
	svc, repo, _ := newTestQueueService(t)
	since := testutil.TestTime().Add(-24 * time.Hour)
	repo.EXPECT().Overview(gomock.Any(), since).Return(&model.QueueOverview{Since: since, Total: 3}, nil)

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ov.Total)
}

func TestQueueService_DailyStatsSinceMidnight(t *testing.T) {
	svc, repo, _ := newTestQueueService(t)
	now := testutil.TestTime()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	repo.EXPECT().DailyStats(gomock.Any(), midnight).Return(&model.DailyStats{Total: 4, Successful: 3, Failed: 1}, nil)

	st, err := svc.DailyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Successful)
}

func TestQueueService_PendingNeverNil(t *testing.T) {
	svc, repo, _ := newTestQueueService(t)
	repo.EXPECT().ListActive(gomock.Any()).Return(nil, nil)

	items, err := svc.Pending(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestQueueService_DeleteInFlight(t *testing.T) {
	svc, repo, _ := newTestQueueService(t)
	repo.EXPECT().Delete(gomock.Any(), int64(8)).Return(data.ErrQueueItemInFlight)

	err := svc.Delete(context.Background(), 8)
	require.Error(t, err)
	assert.True(t, apperrors.IsStateConflict(err))
}

func TestQueueService_CancelAll(t *testing.T) {
	svc, repo, _ := newTestQueueService(t)
	repo.EXPECT().CancelAllPending(gomock.Any()).Return(&model.CancelResult{Count: 2, IDs: []int64{1, 2}}, nil)

	res, err := svc.CancelAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
}

func TestQueueService_ReadyDocuments(t *testing.T) {
	t.Run("validates sort and order", func(t *testing.T) {
		svc, _, _ := newTestQueueService(t)

		_, err := svc.ReadyDocuments(context.Background(), "size", "")
		assert.Equal(t, "sort", apperrors.GetField(err))

		_, err = svc.ReadyDocuments(context.Background(), "", "sideways")
		assert.Equal(t, "order", apperrors.GetField(err))
	})

	t.Run("passes options", func(t *testing.T) {
		svc, repo, _ := newTestQueueService(t)
		repo.EXPECT().ReadyDocuments(gomock.Any(), model.ReadyDocumentListOptions{
			Sort:       model.SortByPatientName,
			Descending: true,
		}).Return(nil, nil)

		docs, err := svc.ReadyDocuments(context.Background(), "patient_name", "DESC")
		require.NoError(t, err)
		assert.NotNil(t, docs)
	})
}
