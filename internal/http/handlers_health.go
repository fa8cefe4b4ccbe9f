package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ageagekun/docqueue/internal/core"
)

const (
	healthResponse = `{"status":"ok"}`
	readyTimeout   = 2 * time.Second
)

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// ReadinessCheck is one dependency checked by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type readyResponse struct {
	Status          string            `json:"status"`
	Checks          map[string]string `json:"checks"`
	MergeQueueDepth *int              `json:"merge_queue_depth,omitempty"`
}

// readyHandler reports 503 when any dependency check fails.
func readyHandler(checks []ReadinessCheck, merges core.MergeQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		resp := readyResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Status = "unavailable"
				resp.Checks[c.Name] = err.Error()
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		if merges != nil {
			depth := merges.Depth()
			resp.MergeQueueDepth = &depth
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, resp)
	}
}
