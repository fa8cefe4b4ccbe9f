package httpx

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	apperrors "github.com/ageagekun/docqueue/internal/errors"
	"github.com/ageagekun/docqueue/internal/service"
)

// FileHandlers serves document files that live under the files root.
type FileHandlers struct {
	Svc    *service.FileService
	Logger *slog.Logger
}

// Serve streams a document. mode=download sets an attachment disposition;
// anything else is shown inline.
func (h *FileHandlers) Serve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "fileId")
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	disposition := "inline"
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "inline":
	case "download":
		disposition = "attachment"
	default:
		writeServiceError(w, r, h.Logger, apperrors.ValidationField("mode", "mode must be inline or download"))
		return
	}

	doc, p, err := h.Svc.Resolve(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	f, err := os.Open(p) //nolint:gosec // p was resolved inside the files root
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = apperrors.NotFoundf("file for document %d not found", id)
		} else {
			err = apperrors.Wrap(err, apperrors.ErrCodeIOFailure, "open document file")
		}
		writeServiceError(w, r, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		writeServiceError(w, r, h.Logger, apperrors.Wrap(err, apperrors.ErrCodeIOFailure, "stat document file"))
		return
	}

	name := doc.FileName
	if name == "" {
		name = filepath.Base(p)
	}
	ctype := mime.TypeByExtension(filepath.Ext(p))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	setNoCache(w)
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// Info describes a document file.
func (h *FileHandlers) Info(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "fileId")
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	info, err := h.Svc.Info(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}
