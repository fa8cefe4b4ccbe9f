package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrQueueItemNotFound is returned when a queue item does not exist.
	ErrQueueItemNotFound = errors.New("queue item not found")
	// ErrTransitionRejected is returned when the stored status did not match the expected "from" status.
	ErrTransitionRejected = errors.New("transition rejected: status changed concurrently")
	// ErrQueueItemInFlight is returned when deleting an item that is processing or merging.
	ErrQueueItemInFlight = errors.New("queue item is in flight and cannot be deleted")
	// ErrInvalidTransition is returned for the zero Transition value.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrDocumentNotFound is returned when a document row does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrBatchPrintNotFound is returned when a batch print artifact does not exist.
	ErrBatchPrintNotFound = errors.New("batch print not found")
)
