package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Queue      *service.QueueService
	BatchPrint *service.BatchPrintService
	Files      *service.FileService
	// Optional: live socket handler mounted at /ws.
	Realtime http.Handler
	// Optional: merge queue whose depth /readyz reports.
	MergeQueue core.MergeQueue
	Readiness  []ReadinessCheck
	CORSOrigin string
	Logger     *slog.Logger
}

// NewRouter creates the API router wrapped in the standard middleware chain.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	registerQueueRoutes(mux, &QueueHandlers{Svc: services.Queue, Logger: logger})
	if services.BatchPrint != nil {
		registerBatchPrintRoutes(mux, &BatchPrintHandlers{
			Svc:    services.BatchPrint,
			Queue:  services.Queue,
			Logger: logger,
		})
	}
	if services.Files != nil {
		registerFileRoutes(mux, &FileHandlers{Svc: services.Files, Logger: logger})
	}
	if services.Realtime != nil {
		mux.Handle("GET /ws", services.Realtime)
	}
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Readiness, services.MergeQueue))

	return Chain(mux,
		Recover(logger),
		RequestID(),
		Logging(logger),
		CORS(services.CORSOrigin),
	)
}

func registerQueueRoutes(mux *http.ServeMux, h *QueueHandlers) {
	mux.HandleFunc("POST /api/queue/create-batch", h.CreateBatch)
	mux.HandleFunc("GET /api/queue/overview", h.Overview)
	mux.HandleFunc("GET /api/queue/pending", h.Pending)
	mux.HandleFunc("GET /api/queue/{id}/status", h.Status)
	mux.HandleFunc("DELETE /api/queue/cancel-all", h.CancelAll)
	mux.HandleFunc("DELETE /api/queue/{id}", h.Delete)

	mux.HandleFunc("PUT /api/queue/{id}/processing", h.transition(h.Svc.StartProcessing))
	mux.HandleFunc("PUT /api/queue/{id}/uploaded", h.transition(h.Svc.MarkUploaded))
	mux.HandleFunc("PUT /api/queue/{id}/complete", h.Complete)
	mux.HandleFunc("PUT /api/queue/{id}/failed", h.Failed)
	mux.HandleFunc("PUT /api/queue/{id}/ready-to-print", h.ReadyToPrint)
	mux.HandleFunc("PUT /api/queue/{id}/merging", h.transition(h.Svc.StartMerging))
	mux.HandleFunc("PUT /api/queue/{id}/done", h.transition(h.Svc.MarkDone))
	mux.HandleFunc("PUT /api/queue/{id}/merge-error", h.MergeError)
	mux.HandleFunc("PUT /api/queue/{id}/cancel", h.transition(h.Svc.Cancel))
}

func registerBatchPrintRoutes(mux *http.ServeMux, h *BatchPrintHandlers) {
	mux.HandleFunc("GET /api/batch-print/ready-documents", h.ReadyDocuments)
	mux.HandleFunc("POST /api/batch-print/merge", h.Merge)
	mux.HandleFunc("GET /api/batch-print/jobs/{jobId}", h.Job)
	mux.HandleFunc("GET /api/batch-print/history", h.History)
	mux.HandleFunc("GET /api/batch-print/view/{batchId}", h.View)
	mux.HandleFunc("DELETE /api/batch-print/{batchId}", h.Delete)
}

func registerFileRoutes(mux *http.ServeMux, h *FileHandlers) {
	mux.HandleFunc("GET /api/files/{fileId}", h.Serve)
	mux.HandleFunc("GET /api/files/{fileId}/info", h.Info)
}
