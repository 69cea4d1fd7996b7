// Package modelregistry is the append-only versioned registry of dataset
// candidates, mirroring ml/registry.py's register/promote/rollback cycle.
package modelregistry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/models"
)

// Registry owns state/model_registry.json.
type Registry struct {
	mu      sync.Mutex
	path    string
	history []models.ModelRecord
}

// Open loads (or initializes) the registry at path.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, apperr.IOFailure(err, "read model registry %s", path)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.history); err != nil {
		return nil, apperr.IOFailure(err, "parse model registry %s", path)
	}
	return r, nil
}

// Register appends a new candidate record, assigning the next zero-padded
// 3-digit version by append position.
func (r *Registry) Register(modelName string, metrics map[string]interface{}, status models.ModelStatus) (models.ModelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if status == "" {
		status = models.ModelCandidate
	}
	rec := models.ModelRecord{
		ModelName: modelName,
		Version:   fmt.Sprintf("%03d", len(r.history)+1),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Status:    status,
		Metrics:   metrics,
	}
	r.history = append(r.history, rec)
	if err := r.save(); err != nil {
		return models.ModelRecord{}, err
	}
	return rec, nil
}

// Promote marks version production and archives every other record.
func (r *Registry) Promote(version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.history {
		if r.history[i].Version == version {
			r.history[i].Status = models.ModelProduction
		} else {
			r.history[i].Status = models.ModelArchived
		}
	}
	return r.save()
}

// Rollback restores version to production, archiving the current production record.
func (r *Registry) Rollback(version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.history {
		switch {
		case r.history[i].Version == version:
			r.history[i].Status = models.ModelProduction
		case r.history[i].Status == models.ModelProduction:
			r.history[i].Status = models.ModelArchived
		}
	}
	return r.save()
}

// UpdateMetrics merges metrics into the record for version.
func (r *Registry) UpdateMetrics(version string, metrics map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.history {
		if r.history[i].Version == version {
			if r.history[i].Metrics == nil {
				r.history[i].Metrics = map[string]interface{}{}
			}
			for k, v := range metrics {
				r.history[i].Metrics[k] = v
			}
		}
	}
	return r.save()
}

// History returns a copy of the full append-only history.
func (r *Registry) History() []models.ModelRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ModelRecord, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.history, "", "  ")
	if err != nil {
		return apperr.IOFailure(err, "marshal model registry")
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return apperr.IOFailure(err, "write temp model registry")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return apperr.IOFailure(err, "rename model registry")
	}
	return nil
}
