package jobstore

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/models"
)

// Queue is the append-only line-delimited JSON pending-job log described
// by spec §4.2: enqueue appends; Drain atomically reads every non-empty
// line then truncates the file. The worker is the sole drainer; the API
// only ever appends.
type Queue struct {
	mu   sync.Mutex
	path string
}

// OpenQueue returns a Queue backed by path, creating the file if absent.
func OpenQueue(path string) (*Queue, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, apperr.IOFailure(err, "open queue file %s", path)
	}
	f.Close()
	return &Queue{path: path}, nil
}

// Enqueue appends entry as one JSON line.
func (q *Queue) Enqueue(entry models.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return apperr.IOFailure(err, "marshal queue entry")
	}
	f, err := os.OpenFile(q.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return apperr.IOFailure(err, "open queue file %s", q.path)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return apperr.IOFailure(err, "append queue entry")
	}
	return nil
}

// Drain reads and parses every non-empty line, then truncates the file,
// returning the parsed entries. There is a known crash-window race
// between read and truncate, accepted per spec §5/§9: the worker is
// assumed to be the sole drainer.
func (q *Queue) Drain() ([]models.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.Open(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.IOFailure(err, "open queue file %s", q.path)
	}
	var entries []models.QueueEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry models.QueueEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	f.Close()

	if err := os.Truncate(q.path, 0); err != nil {
		return nil, apperr.IOFailure(err, "truncate queue file %s", q.path)
	}
	return entries, nil
}
