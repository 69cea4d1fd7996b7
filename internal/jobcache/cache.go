// Package jobcache is the embedded badgerhold secondary index over job
// records described by SPEC_FULL.md §4.1: disposable, rebuildable from
// jobstore's JSON file at any time, existing purely to serve filtered
// listing without scanning the whole job map. Grounded on the teacher's
// internal/storage/badger.JobStorage wrapping a BadgerDB/badgerhold.Store.
package jobcache

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/models"
)

// Cache wraps a badgerhold.Store holding models.Job records keyed by ID.
type Cache struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens (or creates) the embedded database at path. When
// resetOnStartup is set the directory is wiped first, matching the
// teacher's BadgerConfig.ResetOnStartup convenience for clean test runs.
func Open(path string, resetOnStartup bool, logger arbor.ILogger) (*Cache, error) {
	if resetOnStartup {
		if _, err := os.Stat(path); err == nil {
			logger.Debug().Str("path", path).Msg("resetting job cache (reset_on_startup=true)")
			if err := os.RemoveAll(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("failed to reset job cache directory")
			}
		}
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, apperr.IOFailure(err, "create job cache dir %s", path)
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	opts.Options = opts.Options.WithLoggingLevel(badger.ERROR)

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, apperr.IOFailure(err, "open job cache at %s", path)
	}
	return &Cache{store: store, logger: logger}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Put upserts job into the cache, keyed by its ID.
func (c *Cache) Put(job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job cache: empty job id")
	}
	if err := c.store.Upsert(job.ID, job); err != nil {
		return fmt.Errorf("job cache upsert: %w", err)
	}
	return nil
}

// List returns jobs matching status (or every job, if status is empty),
// sorted newest-first.
func (c *Cache) List(status models.JobStatus) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if status != "" {
		query = query.And("Status").Eq(status)
	}
	query = query.SortBy("CreatedAt").Reverse()

	var jobs []models.Job
	if err := c.store.Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("job cache find: %w", err)
	}
	out := make([]*models.Job, len(jobs))
	for i := range jobs {
		out[i] = &jobs[i]
	}
	return out, nil
}

// StaleProcessing returns jobs in PROCESSING whose UpdatedAt predates cutoff.
func (c *Cache) StaleProcessing(cutoff time.Time) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(models.StatusProcessing).And("UpdatedAt").Lt(cutoff)
	if err := c.store.Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("job cache stale find: %w", err)
	}
	out := make([]*models.Job, len(jobs))
	for i := range jobs {
		out[i] = &jobs[i]
	}
	return out, nil
}
