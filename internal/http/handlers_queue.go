// Package httpx provides the HTTP API of the document queue: queue
// transitions, batch printing, file serving, and the live socket.
package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/service"
)

// QueueHandlers provides HTTP handlers for queue items.
type QueueHandlers struct {
	Svc    *service.QueueService
	Logger *slog.Logger
}

type createBatchRequest struct {
	Items   []model.CreateQueueItemRequest `json:"items"`
	FileIDs []int64                        `json:"file_ids"`
}

type createBatchResponse struct {
	Items []*model.QueueItem `json:"items"`
	Count int                `json:"count"`
}

// CreateBatch enqueues documents given either as items or as bare file ids.
func (h *QueueHandlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	reqs := req.Items
	for _, id := range req.FileIDs {
		reqs = append(reqs, model.CreateQueueItemRequest{FileID: id})
	}

	items, err := h.Svc.Create(r.Context(), reqs)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, createBatchResponse{Items: items, Count: len(items)})
}

// Overview returns per-status counts for the last 24 hours.
func (h *QueueHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.Svc.Overview(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, ov)
}

// Pending returns every active item, oldest first.
func (h *QueueHandlers) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.Pending(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// Status returns a single item.
func (h *QueueHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	item, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

type transitionFunc func(ctx context.Context, id int64) (*model.QueueItem, error)

// transition adapts a body-less status change to a handler.
func (h *QueueHandlers) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeServiceError(w, r, h.Logger, err)
			return
		}
		item, err := fn(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, h.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, item)
	}
}

// Complete is the legacy name of MarkUploaded.
func (h *QueueHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Deprecation", "true")
	h.transition(h.Svc.Complete)(w, r)
}

type errorMessageRequest struct {
	ErrorMessage string `json:"error_message"`
}

// Failed records an upload failure; the message defaults when omitted.
func (h *QueueHandlers) Failed(w http.ResponseWriter, r *http.Request) {
	var req errorMessageRequest
	if !DecodeOptionalJSON(w, r, &req) {
		return
	}
	h.transition(func(ctx context.Context, id int64) (*model.QueueItem, error) {
		return h.Svc.MarkFailed(ctx, id, req.ErrorMessage)
	})(w, r)
}

type readyToPrintRequest struct {
	NewPath string `json:"new_path"`
}

// ReadyToPrint marks a moved document printable, optionally recording its new path.
func (h *QueueHandlers) ReadyToPrint(w http.ResponseWriter, r *http.Request) {
	var req readyToPrintRequest
	if !DecodeOptionalJSON(w, r, &req) {
		return
	}
	h.transition(func(ctx context.Context, id int64) (*model.QueueItem, error) {
		return h.Svc.MarkReadyToPrint(ctx, id, req.NewPath)
	})(w, r)
}

// MergeError records why a merging document could not be merged.
func (h *QueueHandlers) MergeError(w http.ResponseWriter, r *http.Request) {
	var req errorMessageRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	h.transition(func(ctx context.Context, id int64) (*model.QueueItem, error) {
		return h.Svc.AnnotateMergeError(ctx, id, req.ErrorMessage)
	})(w, r)
}

// CancelAll cancels every pending item.
func (h *QueueHandlers) CancelAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.CancelAll(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	if res.IDs == nil {
		res.IDs = []int64{}
	}
	WriteJSON(w, http.StatusOK, res)
}

// Delete removes an item that is not in flight.
func (h *QueueHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
