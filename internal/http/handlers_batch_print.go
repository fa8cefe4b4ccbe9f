package httpx

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/ageagekun/docqueue/internal/domain/model"
	"github.com/ageagekun/docqueue/internal/service"
)

// BatchPrintHandlers provides HTTP handlers for batch merges and their artifacts.
type BatchPrintHandlers struct {
	Svc    *service.BatchPrintService
	Queue  *service.QueueService
	Logger *slog.Logger
}

// ReadyDocuments lists documents that can be selected for a merge.
func (h *BatchPrintHandlers) ReadyDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := h.Queue.ReadyDocuments(r.Context(), q.Get("sort"), q.Get("order"))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, docs)
}

type mergeRequest struct {
	DocumentIDs []int64 `json:"document_ids"`
}

type mergeResponse struct {
	JobID  string               `json:"job_id"`
	Status model.MergeJobStatus `json:"status"`
	Total  int                  `json:"total"`
}

// Merge validates a selection and queues it for the merge worker.
func (h *BatchPrintHandlers) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	job, err := h.Svc.Submit(r.Context(), req.DocumentIDs)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, mergeResponse{JobID: job.ID, Status: job.Status, Total: len(job.DocumentIDs)})
}

// Job returns the state of a merge job.
func (h *BatchPrintHandlers) Job(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Job(r.Context(), r.PathValue("jobId"))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// History lists artifacts, newest first.
func (h *BatchPrintHandlers) History(w http.ResponseWriter, r *http.Request) {
	hist, err := h.Svc.History(r.Context(), parseIntQuery(r, "limit", service.DefaultHistoryLimit))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, hist)
}

// View streams an artifact inline.
func (h *BatchPrintHandlers) View(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "batchId")
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	bp, f, err := h.Svc.Open(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	setNoCache(w)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": bp.FileName}))
	http.ServeContent(w, r, bp.FileName, bp.CreatedAt, f)
}

// Delete removes an artifact's file and its record.
func (h *BatchPrintHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "batchId")
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
