package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/disruptio/cne-pipeline/internal/modelregistry"
	"github.com/disruptio/cne-pipeline/internal/models"
)

func TestRegistryHandler_HistoryReturnsRegisteredEntries(t *testing.T) {
	registry, err := modelregistry.Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	if _, err := registry.Register("nominations", nil, models.ModelCandidate); err != nil {
		t.Fatalf("register: %v", err)
	}
	h := &RegistryHandler{Registry: registry}

	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/models/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Items []models.ModelRecord `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ModelName != "nominations" {
		t.Errorf("items = %+v", got.Items)
	}
}

func TestHealth_ReturnsOK(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}
