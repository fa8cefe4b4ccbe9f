package core

import "errors"

// ErrMergeQueueFull is returned by MergeQueue.Enqueue when no slot is free.
var ErrMergeQueueFull = errors.New("merge queue is full")

// ErrMergeJobNotFound is returned when a merge job handle is unknown or expired.
var ErrMergeJobNotFound = errors.New("merge job not found")
