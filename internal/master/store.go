// Package master owns the content-addressed acronym master registry:
// one JSON file per record, keyed by lowercased sigla.
package master

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/models"
)

// Store owns the master/<sigla_lowercase>.json directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New returns a master Store rooted at dir, creating it if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperr.IOFailure(err, "create master dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(sigla string) string {
	return filepath.Join(s.dir, strings.ToLower(sigla)+".json")
}

// Upsert writes (or overwrites) the record for rec.Sigla.
func (s *Store) Upsert(rec models.MasterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Sigla == "" {
		return apperr.Validation("sigla is required")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperr.IOFailure(err, "marshal master record")
	}
	return writeAtomic(s.path(rec.Sigla), data)
}

// List returns every master record, sorted by sigla.
func (s *Store) List() ([]models.MasterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperr.IOFailure(err, "read master dir")
	}
	var out []models.MasterRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var rec models.MasterRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sigla < out[j].Sigla })
	return out, nil
}

// Cache returns the full master registry indexed by uppercase sigla, for
// use by the fuzzy matcher.
func (s *Store) Cache() (map[string]models.MasterRecord, error) {
	recs, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.MasterRecord, len(recs))
	for _, r := range recs {
		out[strings.ToUpper(r.Sigla)] = r
	}
	return out, nil
}

// Version computes the content-addressed digest over every master file:
// SHA-256 streamed as sorted (name, bytes) pairs. Returns "empty" if the
// directory holds no master files.
func (s *Store) Version() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", apperr.IOFailure(err, "read master dir")
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "empty", nil
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return "", apperr.IOFailure(err, "read master file %s", name)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return apperr.IOFailure(err, "write temp file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.IOFailure(err, "rename %s to %s", tmp, path)
	}
	return nil
}
