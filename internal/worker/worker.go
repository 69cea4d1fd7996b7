// Package worker drives the background processing loop of spec §4.9: a
// poll/drain loop over the pending-job queue feeding the pipeline, plus
// a cron-scheduled sweep that fails jobs stuck in PROCESSING too long.
package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/jobcache"
	"github.com/disruptio/cne-pipeline/internal/jobstore"
	"github.com/disruptio/cne-pipeline/internal/pipeline"
)

// Worker owns the queue-drain loop and the stale-job sweep cron.
type Worker struct {
	Queue        *jobstore.Queue
	Jobs         *jobstore.Store
	Cache        *jobcache.Cache
	Pipeline     *pipeline.Pipeline
	Logger       arbor.ILogger
	PollInterval time.Duration
	StaleAfter   time.Duration
	StaleCron    string

	cronRunner *cron.Cron
}

// Run drains the queue on PollInterval until ctx is cancelled. It also
// starts the stale-job sweep cron alongside the drain loop and stops it
// on return.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.startStaleSweep(); err != nil {
		return err
	}
	defer w.stopStaleSweep()

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	w.drainOnce()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.drainOnce()
		}
	}
}

func (w *Worker) drainOnce() {
	entries, err := w.Queue.Drain()
	if err != nil {
		w.Logger.Error().Err(err).Msg("failed to drain job queue")
		return
	}
	for _, entry := range entries {
		w.Logger.Info().Str("job_id", entry.JobID).Msg("dequeued job for processing")
		if err := w.Pipeline.Run(entry.JobID); err != nil {
			w.Logger.Error().Err(err).Str("job_id", entry.JobID).Msg("pipeline run failed")
		}
	}
}

func (w *Worker) startStaleSweep() error {
	w.cronRunner = cron.New()
	_, err := w.cronRunner.AddFunc(w.StaleCron, w.sweepStale)
	if err != nil {
		return err
	}
	w.cronRunner.Start()
	return nil
}

func (w *Worker) stopStaleSweep() {
	if w.cronRunner != nil {
		<-w.cronRunner.Stop().Done()
	}
}

// sweepStale fails every job stuck in PROCESSING past StaleAfter, so a
// worker crash mid-job never leaves a job invisibly stuck forever.
func (w *Worker) sweepStale() {
	if w.Cache == nil {
		w.Logger.Warn().Msg("stale job sweep skipped: job cache unavailable")
		return
	}
	cutoff := time.Now().UTC().Add(-w.StaleAfter)
	stale, err := w.Cache.StaleProcessing(cutoff)
	if err != nil {
		w.Logger.Error().Err(err).Msg("stale job sweep query failed")
		return
	}
	for _, job := range stale {
		w.Logger.Warn().Str("job_id", job.ID).Str("updated_at", job.UpdatedAt.Format(time.RFC3339)).Msg("failing stale processing job")
		if _, err := w.Jobs.MarkFailed(job.ID, "stale: exceeded processing deadline"); err != nil {
			w.Logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to mark stale job failed")
		}
	}
	if len(stale) > 0 {
		w.Logger.Info().Int("count", len(stale)).Msg("stale job sweep completed")
	}
}
