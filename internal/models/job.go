package models

import "time"

// JobStatus enumerates the job lifecycle states.
type JobStatus string

const (
	StatusReceived   JobStatus = "RECEIVED"
	StatusQueued     JobStatus = "QUEUED"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
	StatusApproved   JobStatus = "APPROVED"
)

// Job is the durable record owned exclusively by the job store.
type Job struct {
	ID           string                 `json:"id" boltholdKey:"ID"`
	Filename     string                 `json:"filename"`
	Status       JobStatus              `json:"status" boltholdIndex:"Status"`
	CreatedAt    time.Time              `json:"created_at" boltholdIndex:"CreatedAt"`
	UpdatedAt    time.Time              `json:"updated_at"`
	ApprovedAt   *time.Time             `json:"approved_at,omitempty"`
	Metadata     map[string]interface{} `json:"metadata"`
	PreviewReady bool                   `json:"preview_ready"`
	CSVReady     bool                   `json:"csv_ready"`
	Error        string                 `json:"error,omitempty"`
	OCRConfMean  *float64               `json:"ocr_conf_mean,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to callers outside the store lock.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.ApprovedAt != nil {
		t := *j.ApprovedAt
		out.ApprovedAt = &t
	}
	if j.OCRConfMean != nil {
		v := *j.OCRConfMean
		out.OCRConfMean = &v
	}
	out.Metadata = make(map[string]interface{}, len(j.Metadata))
	for k, v := range j.Metadata {
		out.Metadata[k] = v
	}
	return &out
}

// JobSummary is the list-view projection of a Job.
type JobSummary struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Status       JobStatus `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	PreviewReady bool      `json:"preview_ready"`
	CSVReady     bool      `json:"csv_ready"`
}

// Summary projects a Job down to its list-view form.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		ID:           j.ID,
		Filename:     j.Filename,
		Status:       j.Status,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		PreviewReady: j.PreviewReady,
		CSVReady:     j.CSVReady,
	}
}

// QueueEntry is one line of the file-backed pending-job queue.
type QueueEntry struct {
	JobID      string    `json:"job_id"`
	Filename   string    `json:"filename"`
	ReceivedAt time.Time `json:"received_at"`
}
