// Package mocks provides gomock implementations of the repository and queue ports in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockQueueRepository(ctrl)
//	repo.EXPECT().Transition(gomock.Any(), gomock.Any()).Return(item, nil)
package mocks

// QueueRepository: Transition, GetByID, ListActive, ListByStatus, Overview, DailyStats,
// MergeSources, ReadyDocuments, CancelAllPending, Create, RecordMoveFailure, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=queue_repository_mock.go github.com/ageagekun/docqueue/internal/core QueueRepository

// BatchPrintRepository: Create, GetByID, List, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=batch_print_repository_mock.go github.com/ageagekun/docqueue/internal/core BatchPrintRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=document_repository_mock.go github.com/ageagekun/docqueue/internal/core DocumentRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=merge_job_store_mock.go github.com/ageagekun/docqueue/internal/core MergeJobStore

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=merge_queue_mock.go github.com/ageagekun/docqueue/internal/core MergeQueue

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=event_publisher_mock.go github.com/ageagekun/docqueue/internal/core EventPublisher
