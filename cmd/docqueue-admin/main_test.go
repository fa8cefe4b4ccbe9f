package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageagekun/docqueue/internal/domain/model"
)

type fakeBackend struct {
	overview    *model.QueueOverview
	pending     []*model.QueueItem
	canceled    *model.CancelResult
	history     *model.BatchPrintHistory
	historySize int
	deleted     []int64
	migrated    bool
	closed      bool
	err         error
}

func (f *fakeBackend) Overview(context.Context) (*model.QueueOverview, error) {
	return f.overview, f.err
}

func (f *fakeBackend) Pending(context.Context) ([]*model.QueueItem, error) { return f.pending, f.err }

func (f *fakeBackend) CancelAll(context.Context) (*model.CancelResult, error) {
	return f.canceled, f.err
}

func (f *fakeBackend) History(_ context.Context, limit int) (*model.BatchPrintHistory, error) {
	f.historySize = limit
	return f.history, f.err
}

func (f *fakeBackend) DeleteArtifact(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeBackend) Migrate(context.Context) error {
	f.migrated = true
	return f.err
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

type openCall struct {
	needFiles bool
}

func runCLI(t *testing.T, b *fakeBackend, args ...string) (string, *openCall, error) {
	t.Helper()
	call := &openCall{}
	cctx := &commandContext{
		logger: slog.New(slog.DiscardHandler),
		open: func(_ context.Context, needFiles bool) (backend, error) {
			call.needFiles = needFiles
			return b, nil
		},
	}
	cmd := newRootCommand(cctx)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), call, err
}

func TestOverviewTable(t *testing.T) {
	b := &fakeBackend{overview: &model.QueueOverview{
		Since:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Counts: map[model.QueueStatus]int{model.QueueStatusPending: 3, model.QueueStatusFailed: 1},
		Total:  4,
	}}
	out, call, err := runCLI(t, b, "overview")
	require.NoError(t, err)
	assert.True(t, call.needFiles)
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "total")
	assert.True(t, b.closed)
}

func TestPendingJSON(t *testing.T) {
	b := &fakeBackend{pending: []*model.QueueItem{{
		ID:      7,
		FileID:  42,
		Status:  model.QueueStatusProcessing,
		Payload: model.QueuePayload{FileName: "referral.pdf", PatientName: "Sato"},
	}}}
	out, _, err := runCLI(t, b, "--json", "pending")
	require.NoError(t, err)

	var items []model.QueueItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, int64(42), items[0].FileID)
	assert.Equal(t, model.QueueStatusProcessing, items[0].Status)
}

func TestPendingEmpty(t *testing.T) {
	out, _, err := runCLI(t, &fakeBackend{}, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending items.")
}

func TestCancelAllRequiresConfirmation(t *testing.T) {
	b := &fakeBackend{canceled: &model.CancelResult{Count: 2, IDs: []int64{1, 2}}}
	_, _, err := runCLI(t, b, "cancel-all")
	require.Error(t, err)
	assert.False(t, b.closed, "backend must not be opened without confirmation")

	out, _, err := runCLI(t, b, "cancel-all", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Canceled 2 pending item(s).")
}

func TestHistoryShowsStaleWarning(t *testing.T) {
	b := &fakeBackend{history: &model.BatchPrintHistory{
		Items: []model.BatchPrintEntry{{
			BatchPrint: model.BatchPrint{
				ID:            5,
				FileName:      "batch_20260301_090000.pdf",
				FileSize:      3 << 20,
				PageCount:     12,
				DocumentCount: 3,
				SuccessIDs:    []int64{1, 2},
			},
			IsStale: true,
		}},
		StaleCount: 1,
		Warning:    "1 batch prints are older than 60 days; consider deleting them",
	}}
	out, _, err := runCLI(t, b, "history", "--limit", "20")
	require.NoError(t, err)
	assert.Equal(t, 20, b.historySize)
	assert.Contains(t, out, "batch_20260301_090000.pdf")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "3.0 MiB")
	assert.Contains(t, out, "stale")
	assert.Contains(t, out, "consider deleting them")
}

func TestDeleteArtifact(t *testing.T) {
	b := &fakeBackend{}
	out, _, err := runCLI(t, b, "delete-artifact", "12")
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, b.deleted)
	assert.Contains(t, out, "Deleted batch print 12.")

	_, _, err = runCLI(t, &fakeBackend{}, "delete-artifact", "abc")
	require.Error(t, err)
}

func TestMigrateSkipsFilesRoot(t *testing.T) {
	b := &fakeBackend{}
	_, call, err := runCLI(t, b, "migrate")
	require.NoError(t, err)
	assert.True(t, b.migrated)
	assert.False(t, call.needFiles)
}

func TestBackendErrorIsReturned(t *testing.T) {
	b := &fakeBackend{err: errors.New("database unavailable")}
	_, _, err := runCLI(t, b, "overview")
	require.ErrorContains(t, err, "database unavailable")
	assert.True(t, b.closed)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 GiB", formatBytes(2<<30))
}

func TestStatusTextPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, shouldColorize(&buf))
	assert.Equal(t, "failed", statusText(model.QueueStatusFailed, false))
}
