// Package jobstore is the durable job-id -> Job mapping, the system's
// single owner of job records. Persistence is one JSON file rewritten
// atomically (write-new-then-rename) on every mutation; every mutation
// is serialized behind one mutex, matching the core spec's single-writer
// requirement.
package jobstore

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/models"
)

// Store is the job state store described by spec §4.1.
type Store struct {
	mu     sync.Mutex
	path   string
	jobs   map[string]*models.Job
	logger arbor.ILogger
	cache  Cache
}

// Cache is the secondary write-through index kept in sync with Store.
// jobstore owns the interface; internal/jobcache provides the
// badgerhold-backed implementation so this package stays free of a
// storage-engine dependency.
type Cache interface {
	Put(job *models.Job) error
	List(status models.JobStatus) ([]*models.Job, error)
}

// noopCache is used when no cache is wired (e.g. in unit tests).
type noopCache struct{}

func (noopCache) Put(*models.Job) error                          { return nil }
func (noopCache) List(models.JobStatus) ([]*models.Job, error)    { return nil, nil }

// Open loads (or initializes) the job store at path.
func Open(path string, logger arbor.ILogger) (*Store, error) {
	s := &Store{path: path, jobs: map[string]*models.Job{}, logger: logger, cache: noopCache{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, apperr.IOFailure(err, "read job store %s", path)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.jobs); err != nil {
		return nil, apperr.IOFailure(err, "parse job store %s", path)
	}
	return s, nil
}

// SetCache wires a secondary index; every mutation made after this call
// is also mirrored into the cache.
func (s *Store) SetCache(c Cache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = c
}

// Create assigns a fresh job id and persists a RECEIVED record.
func (s *Store) Create(filename, uploader string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuidHex(),
		Filename:  filename,
		Status:    models.StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]interface{}{},
	}
	if uploader != "" {
		job.Metadata["uploader"] = uploader
	}
	s.jobs[job.ID] = job
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	s.mirror(job)
	return job.Clone(), nil
}

// List returns every job summary, sorted by created_at descending.
func (s *Store) List() []models.JobSummary {
	s.mu.Lock()
	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	out := make([]models.JobSummary, len(jobs))
	for i, j := range jobs {
		out[i] = j.Summary()
	}
	return out
}

// ListByStatus scans every stored job and returns the ones matching
// status, sorted by created_at descending. It is the degrade path used
// when the badgerhold cache is unavailable: slower than the indexed
// query, but jobs.json is always the durable source of truth anyway.
func (s *Store) ListByStatus(status models.JobStatus) []*models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if j.Status == status {
			out = append(out, j.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Get returns the full job record, or an apperr.KindNotFound error.
func (s *Store) Get(id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, apperr.NotFound("job not found: %s", id)
	}
	return j.Clone(), nil
}

// StatusUpdate is the partial-update payload for UpdateStatus.
type StatusUpdate struct {
	Metadata     map[string]interface{}
	PreviewReady *bool
	CSVReady     *bool
	Error        *string
	ApprovedAt   *time.Time
}

// UpdateStatus atomically transitions id to status, merging metadata
// shallowly and overwriting any other provided fields. An ocr_conf_mean
// key in Metadata is mirrored to the top-level field.
func (s *Store) UpdateStatus(id string, status models.JobStatus, upd StatusUpdate) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, apperr.NotFound("job not found: %s", id)
	}

	job.Status = status
	for k, v := range upd.Metadata {
		job.Metadata[k] = v
		if k == "ocr_conf_mean" {
			if f, ok := toFloat(v); ok {
				job.OCRConfMean = &f
			}
		}
	}
	if upd.PreviewReady != nil {
		job.PreviewReady = *upd.PreviewReady
	}
	if upd.CSVReady != nil {
		job.CSVReady = *upd.CSVReady
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.ApprovedAt != nil {
		job.ApprovedAt = upd.ApprovedAt
	}
	job.UpdatedAt = time.Now().UTC()

	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	s.mirror(job)
	return job.Clone(), nil
}

// SetProcessing transitions id to PROCESSING.
func (s *Store) SetProcessing(id string) (*models.Job, error) {
	return s.UpdateStatus(id, models.StatusProcessing, StatusUpdate{})
}

// SetCompleted transitions id to COMPLETED with preview/csv ready flags.
func (s *Store) SetCompleted(id string, metadata map[string]interface{}) (*models.Job, error) {
	t := true
	return s.UpdateStatus(id, models.StatusCompleted, StatusUpdate{
		Metadata:     metadata,
		PreviewReady: &t,
		CSVReady:     &t,
	})
}

// MarkFailed transitions id to FAILED with the given error message.
func (s *Store) MarkFailed(id, errMsg string) (*models.Job, error) {
	return s.UpdateStatus(id, models.StatusFailed, StatusUpdate{Error: &errMsg})
}

// Enqueue appends the job to the file queue then transitions it to QUEUED.
// The queue write happens first so a crash never leaves a QUEUED job the
// worker cannot see.
func (s *Store) Enqueue(id string, queue *Queue) (*models.Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.NotFound("job not found: %s", id)
	}
	entry := models.QueueEntry{JobID: job.ID, Filename: job.Filename, ReceivedAt: time.Now().UTC()}
	s.mu.Unlock()

	if err := queue.Enqueue(entry); err != nil {
		return nil, err
	}
	return s.UpdateStatus(id, models.StatusQueued, StatusUpdate{})
}

// Approve transitions id to APPROVED, stamping approved_at and merging
// approver/notes into metadata. Callers invoke the approval promoter
// separately; the store itself only owns the state transition.
func (s *Store) Approve(id, approver, notes string) (*models.Job, error) {
	now := time.Now().UTC()
	meta := map[string]interface{}{"approved_by": approver}
	if notes != "" {
		meta["notes"] = notes
	}
	return s.UpdateStatus(id, models.StatusApproved, StatusUpdate{
		Metadata:   meta,
		ApprovedAt: &now,
	})
}

func (s *Store) mirror(job *models.Job) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(job.Clone()); err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("job cache mirror failed")
	}
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return apperr.IOFailure(err, "marshal job store")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return apperr.IOFailure(err, "write temp job store")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperr.IOFailure(err, "rename job store")
	}
	return nil
}

func uuidHex() string {
	id := uuid.New()
	return hexNoDashes(id.String())
}

func hexNoDashes(s string) string {
	out := make([]byte, 0, len(s))
	for _, c := range s {
		if c != '-' {
			out = append(out, byte(c))
		}
	}
	return string(out)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
