package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/events"
	"github.com/disruptio/cne-pipeline/internal/handlers"
	"github.com/disruptio/cne-pipeline/internal/jobstore"
	"github.com/disruptio/cne-pipeline/internal/master"
	"github.com/disruptio/cne-pipeline/internal/modelregistry"
	"github.com/disruptio/cne-pipeline/internal/ratelimit"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	logger := arbor.NewLogger()

	jobs, err := jobstore.Open(filepath.Join(dir, "jobs.json"), logger)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	queue, err := jobstore.OpenQueue(filepath.Join(dir, "queue.jsonl"))
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	incoming := filepath.Join(dir, "incoming")
	processed := filepath.Join(dir, "processed")
	for _, d := range []string{incoming, processed} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	masterStore, err := master.New(filepath.Join(dir, "master"))
	if err != nil {
		t.Fatalf("open master store: %v", err)
	}
	registry, err := modelregistry.Open(filepath.Join(dir, "registry.json"))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}

	bus := events.New(logger)
	jobHandler := newTestJobHandler(jobs, queue, incoming, bus, logger)

	deps := Dependencies{
		Jobs:      jobHandler,
		Approval:  &handlers.ApprovalHandler{Jobs: jobHandler},
		Artifacts: &handlers.ArtifactHandler{Jobs: jobs, ProcessedDir: processed},
		Master:    &handlers.MasterHandler{Store: masterStore},
		Registry:  &handlers.RegistryHandler{Registry: registry},
		Stream:    handlers.NewStreamHandler(bus, logger),
		RateLimit: ratelimit.New(1000, 1000),
		Logger:    logger,
	}
	return New("127.0.0.1", 0, time.Second, time.Second, time.Second, deps)
}

func newTestJobHandler(jobs *jobstore.Store, queue *jobstore.Queue, incoming string, bus *events.Bus, logger arbor.ILogger) *handlers.JobHandler {
	return &handlers.JobHandler{
		Jobs:        jobs,
		Queue:       queue,
		IncomingDir: incoming,
		Events:      bus,
		Logger:      logger,
	}
}

func TestServer_HealthRoute(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestServer_JobsCollectionDispatchesByMethod(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /jobs/ status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/jobs/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /jobs/ status = %d, want 405", rec.Code)
	}
}

func TestServer_PreviewRouteRejectsNonGET(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/preview/some-id", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestServer_ApprovalRouteRejectsNonPOST(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/approval/some-id", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestServer_MasterDataRouteDispatchesByMethod(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/master-data/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /master-data/ status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/master-data/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /master-data/ status = %d, want 405", rec.Code)
	}
}

func TestServer_ModelsHistoryRoute(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models/history", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
