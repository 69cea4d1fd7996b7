package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/events"
	"github.com/disruptio/cne-pipeline/internal/jobcache"
	"github.com/disruptio/cne-pipeline/internal/jobstore"
	"github.com/disruptio/cne-pipeline/internal/models"
	"github.com/disruptio/cne-pipeline/internal/promote"
)

// TopicJobStatus is the event topic emitted whenever a job's status
// changes, consumed by the websocket stream handler.
const TopicJobStatus = "job.status"

// JobHandler serves the job lifecycle endpoints of spec §6.
type JobHandler struct {
	Jobs        *jobstore.Store
	Queue       *jobstore.Queue
	Cache       *jobcache.Cache
	Promoter    *promote.Promoter
	Events      *events.Bus
	IncomingDir string
	Logger      arbor.ILogger
}

// JobStatusEvent is the payload emitted on TopicJobStatus.
type JobStatusEvent struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

const maxUploadBytes = 64 << 20 // 64MB

// List handles GET /jobs/, optionally filtered by ?status=.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.JobStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status != "" {
		var jobs []*models.Job
		var err error
		if h.Cache == nil {
			jobs = h.Jobs.ListByStatus(status)
		} else if jobs, err = h.Cache.List(status); err != nil {
			h.Logger.Warn().Err(err).Str("status", string(status)).Msg("job cache query failed, falling back to jobs.json scan")
			jobs = h.Jobs.ListByStatus(status)
		}
		summaries := make([]models.JobSummary, len(jobs))
		for i, j := range jobs {
			summaries[i] = j.Summary()
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": summaries})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": h.Jobs.List()})
}

// Create handles POST /jobs/: multipart upload, stores the file under
// incoming/<id>/<filename> and enqueues it for the worker.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	uploader := r.FormValue("uploader")
	job, err := h.Jobs.Create(header.Filename, uploader)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	jobDir := filepath.Join(h.IncomingDir, job.ID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		WriteAppError(w, apperr.IOFailure(err, "create incoming dir"))
		return
	}
	dest, err := os.Create(filepath.Join(jobDir, header.Filename))
	if err != nil {
		WriteAppError(w, apperr.IOFailure(err, "create uploaded file"))
		return
	}
	defer dest.Close()
	if _, err := io.Copy(dest, file); err != nil {
		WriteAppError(w, apperr.IOFailure(err, "write uploaded file"))
		return
	}

	job, err = h.Jobs.Enqueue(job.ID, h.Queue)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	h.Events.Emit(TopicJobStatus, JobStatusEvent{JobID: job.ID, Status: job.Status})

	WriteJSON(w, http.StatusOK, job)
}

// Get handles GET /jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.Jobs.Get(id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Approve handles POST /approval/{id}.
func (h *JobHandler) Approve(id string, req models.ApprovalRequest) (models.ApprovalResponse, error) {
	job, err := h.Jobs.Approve(id, req.Approver, req.Notes)
	if err != nil {
		return models.ApprovalResponse{}, err
	}
	h.Events.Emit(TopicJobStatus, JobStatusEvent{JobID: job.ID, Status: job.Status})

	if err := h.Promoter.Promote(job); err != nil {
		h.Logger.Error().Err(err).Str("job_id", job.ID).Msg("approval promotion failed")
	}

	resp := models.ApprovalResponse{JobID: job.ID, Approved: true, Notes: req.Notes}
	if job.ApprovedAt != nil {
		resp.ApprovedAt = job.ApprovedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp, nil
}
