package worker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/jobcache"
	"github.com/disruptio/cne-pipeline/internal/jobstore"
	"github.com/disruptio/cne-pipeline/internal/master"
	"github.com/disruptio/cne-pipeline/internal/models"
	"github.com/disruptio/cne-pipeline/internal/pipeline"
)

func newTestWorker(t *testing.T) (*Worker, *jobstore.Store, *jobcache.Cache) {
	t.Helper()
	dir := t.TempDir()
	logger := arbor.NewLogger()

	jobs, err := jobstore.Open(filepath.Join(dir, "jobs.json"), logger)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	cache, err := jobcache.Open(filepath.Join(dir, "cache"), false, logger)
	if err != nil {
		t.Fatalf("open job cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	jobs.SetCache(cache)

	w := &Worker{
		Jobs:   jobs,
		Cache:  cache,
		Logger: logger,
	}
	return w, jobs, cache
}

// TestSweepStale_FailsJobsPastDeadline exercises the stale-processing sweep
// against a real badgerhold-backed cache: a job stuck in PROCESSING past
// StaleAfter is marked FAILED, and one within the deadline is left alone.
func TestSweepStale_FailsJobsPastDeadline(t *testing.T) {
	w, jobs, _ := newTestWorker(t)
	w.StaleAfter = 20 * time.Millisecond

	stale, err := jobs.Create("stale.txt", "")
	if err != nil {
		t.Fatalf("create stale job: %v", err)
	}
	if _, err := jobs.SetProcessing(stale.ID); err != nil {
		t.Fatalf("set processing: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	fresh, err := jobs.Create("fresh.txt", "")
	if err != nil {
		t.Fatalf("create fresh job: %v", err)
	}
	if _, err := jobs.SetProcessing(fresh.ID); err != nil {
		t.Fatalf("set processing: %v", err)
	}

	w.sweepStale()

	staleAfter, err := jobs.Get(stale.ID)
	if err != nil {
		t.Fatalf("get stale job: %v", err)
	}
	if staleAfter.Status != models.StatusFailed {
		t.Errorf("stale job status = %s, want FAILED", staleAfter.Status)
	}

	freshAfter, err := jobs.Get(fresh.ID)
	if err != nil {
		t.Fatalf("get fresh job: %v", err)
	}
	if freshAfter.Status != models.StatusProcessing {
		t.Errorf("fresh job status = %s, want still PROCESSING", freshAfter.Status)
	}
}

// TestDrainOnce_PipelineFailureDoesNotStopTheLoop verifies a single job's
// pipeline failure is logged and absorbed rather than propagated, so one
// bad job can never stall the drain loop for every other queued job.
func TestDrainOnce_PipelineFailureDoesNotStopTheLoop(t *testing.T) {
	dir := t.TempDir()
	logger := arbor.NewLogger()
	incomingDir := filepath.Join(dir, "incoming")
	processedDir := filepath.Join(dir, "processed")
	masterDir := filepath.Join(dir, "master")
	for _, d := range []string{incomingDir, processedDir, masterDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}

	jobs, err := jobstore.Open(filepath.Join(dir, "jobs.json"), logger)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	queue, err := jobstore.OpenQueue(filepath.Join(dir, "queue.jsonl"))
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	masterStore, err := master.New(masterDir)
	if err != nil {
		t.Fatalf("open master store: %v", err)
	}

	job, err := jobs.Create("empty.txt", "")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	// No incoming file written for job.ID: the pipeline will fail to find
	// an input file and mark the job FAILED rather than panic or hang.
	if err := os.MkdirAll(filepath.Join(incomingDir, job.ID), 0755); err != nil {
		t.Fatalf("mkdir job incoming dir: %v", err)
	}
	if _, err := jobs.Enqueue(job.ID, queue); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	w := &Worker{
		Queue: queue,
		Jobs:  jobs,
		Pipeline: &pipeline.Pipeline{
			Jobs:         jobs,
			Master:       masterStore,
			IncomingDir:  incomingDir,
			ProcessedDir: processedDir,
			Logger:       logger,
		},
		Logger: logger,
	}

	w.drainOnce()

	after, err := jobs.Get(job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if after.Status != models.StatusFailed {
		t.Errorf("status = %s, want FAILED", after.Status)
	}
}

// TestSweepStale_NilCacheIsSkippedNotPanicked covers the degrade path where
// the API/worker started with no job cache available: the sweep must log a
// warning and return rather than dereference a nil *jobcache.Cache.
func TestSweepStale_NilCacheIsSkippedNotPanicked(t *testing.T) {
	dir := t.TempDir()
	logger := arbor.NewLogger()
	jobs, err := jobstore.Open(filepath.Join(dir, "jobs.json"), logger)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}

	job, err := jobs.Create("in-progress.txt", "")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := jobs.SetProcessing(job.ID); err != nil {
		t.Fatalf("set processing: %v", err)
	}

	w := &Worker{
		Jobs:       jobs,
		Cache:      nil,
		Logger:     logger,
		StaleAfter: time.Millisecond,
	}

	w.sweepStale()

	after, err := jobs.Get(job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if after.Status != models.StatusProcessing {
		t.Errorf("status = %s, want still PROCESSING (sweep should have been skipped entirely)", after.Status)
	}
}

func TestSweepStale_NoStaleJobsIsANoop(t *testing.T) {
	w, jobs, _ := newTestWorker(t)
	w.StaleAfter = time.Hour

	job, err := jobs.Create("in-progress.txt", "")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := jobs.SetProcessing(job.ID); err != nil {
		t.Fatalf("set processing: %v", err)
	}

	w.sweepStale()

	after, err := jobs.Get(job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if after.Status != models.StatusProcessing {
		t.Errorf("status = %s, want still PROCESSING", after.Status)
	}
}
