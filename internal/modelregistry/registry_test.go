package modelregistry

import (
	"path/filepath"
	"testing"

	"github.com/disruptio/cne-pipeline/internal/models"
)

func TestRegistry_RegisterAssignsSequentialVersions(t *testing.T) {
	registry, err := Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	first, err := registry.Register("dataset-a", map[string]interface{}{"rows": 10}, models.ModelCandidate)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := registry.Register("dataset-b", map[string]interface{}{"rows": 20}, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if first.Version != "001" {
		t.Errorf("first version = %s, want 001", first.Version)
	}
	if second.Version != "002" {
		t.Errorf("second version = %s, want 002", second.Version)
	}
	if second.Status != models.ModelCandidate {
		t.Errorf("empty status should default to candidate, got %s", second.Status)
	}
}

func TestRegistry_PromoteArchivesOthers(t *testing.T) {
	registry, err := Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a, err := registry.Register("dataset-a", nil, models.ModelCandidate)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	b, err := registry.Register("dataset-b", nil, models.ModelCandidate)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := registry.Promote(b.Version); err != nil {
		t.Fatalf("promote: %v", err)
	}

	history := registry.History()
	byVersion := map[string]models.ModelRecord{}
	for _, r := range history {
		byVersion[r.Version] = r
	}
	if byVersion[b.Version].Status != models.ModelProduction {
		t.Errorf("promoted record status = %s, want production", byVersion[b.Version].Status)
	}
	if byVersion[a.Version].Status != models.ModelArchived {
		t.Errorf("other record status = %s, want archived", byVersion[a.Version].Status)
	}
}

func TestRegistry_RollbackRestoresPreviousProduction(t *testing.T) {
	registry, err := Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a, _ := registry.Register("dataset-a", nil, models.ModelCandidate)
	b, _ := registry.Register("dataset-b", nil, models.ModelCandidate)
	if err := registry.Promote(b.Version); err != nil {
		t.Fatalf("promote: %v", err)
	}

	if err := registry.Rollback(a.Version); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	history := registry.History()
	byVersion := map[string]models.ModelRecord{}
	for _, r := range history {
		byVersion[r.Version] = r
	}
	if byVersion[a.Version].Status != models.ModelProduction {
		t.Errorf("rolled-back record status = %s, want production", byVersion[a.Version].Status)
	}
	if byVersion[b.Version].Status != models.ModelArchived {
		t.Errorf("previously-production record status = %s, want archived", byVersion[b.Version].Status)
	}
}

func TestRegistry_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	registry, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := registry.Register("dataset-a", map[string]interface{}{"rows": 5}, models.ModelCandidate); err != nil {
		t.Fatalf("register: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	history := reopened.History()
	if len(history) != 1 || history[0].ModelName != "dataset-a" {
		t.Fatalf("history after reopen = %+v", history)
	}
}
