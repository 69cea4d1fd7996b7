package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/jobstore"
)

// ArtifactHandler serves the processed-artifact endpoints of spec §6.
type ArtifactHandler struct {
	Jobs         *jobstore.Store
	ProcessedDir string
}

// Preview handles GET /preview/{id}.
func (h *ArtifactHandler) Preview(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.Jobs.Get(id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if !job.PreviewReady {
		WriteAppError(w, apperr.NotFound("preview not ready for job %s", id))
		return
	}
	path := filepath.Join(h.ProcessedDir, id, "preview.json")
	http.ServeFile(w, r, path)
}

// Download handles GET /download/{id}.
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.Jobs.Get(id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if !job.CSVReady {
		WriteAppError(w, apperr.NotFound("csv not ready for job %s", id))
		return
	}
	path := filepath.Join(h.ProcessedDir, id, "output.csv")
	if _, err := os.Stat(path); err != nil {
		WriteAppError(w, apperr.NotFound("csv not found for job %s", id))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"output.csv\"")
	http.ServeFile(w, r, path)
}
