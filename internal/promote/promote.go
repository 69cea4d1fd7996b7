// Package promote implements the approval promoter of spec §4.10: once a
// job transitions to APPROVED, its artifacts are copied into a
// date-partitioned approved store, a model candidate is registered, and
// a result.approved event is emitted. Missing processed artifacts
// degrade promotion (logged, skipped) rather than failing approval.
package promote

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/events"
	"github.com/disruptio/cne-pipeline/internal/master"
	"github.com/disruptio/cne-pipeline/internal/modelregistry"
	"github.com/disruptio/cne-pipeline/internal/models"
)

// TopicResultApproved is the event bus topic emitted after promotion.
const TopicResultApproved = "result.approved"

// Promoter materializes approved artifacts and registers the resulting
// dataset candidate.
type Promoter struct {
	IncomingDir  string
	ProcessedDir string
	ApprovedDir  string

	Master   *master.Store
	Registry *modelregistry.Registry
	Events   *events.Bus
	Logger   arbor.ILogger

	RenderSummaryPDF func(meta models.Meta, path string) error
}

// ApprovedEvent is the payload emitted on the result.approved topic.
type ApprovedEvent struct {
	Meta models.Meta `json:"meta"`
	Path string      `json:"path"`
}

// Promote runs the full promotion protocol for job, which must already
// be in the APPROVED state.
func (p *Promoter) Promote(job *models.Job) error {
	if job.ApprovedAt == nil {
		return apperr.Validation("job %s has no approved_at timestamp", job.ID)
	}
	approvedDate := job.ApprovedAt.Format("2006-01-02")
	destDir := filepath.Join(p.ApprovedDir, approvedDate, job.ID)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return apperr.IOFailure(err, "create approved dir %s", destDir)
	}

	srcCSV := filepath.Join(p.ProcessedDir, job.ID, "output.csv")
	if _, err := os.Stat(srcCSV); err != nil {
		p.Logger.Warn().Str("job_id", job.ID).Str("path", srcCSV).Msg("processed CSV missing, skipping promotion")
		return nil
	}
	destCSV := filepath.Join(destDir, "output.csv")
	if err := copyFile(srcCSV, destCSV); err != nil {
		return err
	}

	var previewName string
	srcPreview := filepath.Join(p.ProcessedDir, job.ID, "preview.json")
	if _, err := os.Stat(srcPreview); err == nil {
		destPreview := filepath.Join(destDir, "preview.json")
		if err := copyFile(srcPreview, destPreview); err != nil {
			return err
		}
		previewName = "preview.json"
	}

	srcIncoming := filepath.Join(p.IncomingDir, job.ID)
	destIncoming := filepath.Join(destDir, "incoming")
	incomingFiles, err := copyDirMerge(srcIncoming, destIncoming)
	if err != nil {
		p.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to copy incoming artifacts")
	}
	sort.Strings(incomingFiles)

	rows, err := countCSVRows(destCSV)
	if err != nil {
		return err
	}

	modelRecord, err := p.Registry.Register(fmt.Sprintf("dataset-%s", job.ID), map[string]interface{}{
		"rows":   rows,
		"job_id": job.ID,
	}, models.ModelCandidate)
	if err != nil {
		return err
	}

	masterDigest, err := p.Master.Version()
	if err != nil {
		return err
	}

	meta := models.Meta{
		Job: job,
		Artifacts: models.MetaArtifacts{
			CSV:      "output.csv",
			Preview:  previewName,
			Incoming: incomingFiles,
		},
		Versions: models.MetaVersions{
			Model: models.MetaModelVersion{
				Name:    modelRecord.ModelName,
				Version: modelRecord.Version,
				Status:  modelRecord.Status,
			},
			MasterData: masterDigest,
		},
	}

	metaPath := filepath.Join(destDir, "meta.json")
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return apperr.IOFailure(err, "marshal meta.json")
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return apperr.IOFailure(err, "write meta.json")
	}

	if p.RenderSummaryPDF != nil {
		summaryPath := filepath.Join(destDir, "summary.pdf")
		if err := p.RenderSummaryPDF(meta, summaryPath); err != nil {
			p.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to render approval summary pdf")
		}
	}

	p.Events.Emit(TopicResultApproved, ApprovedEvent{Meta: meta, Path: destDir})
	p.Logger.Info().Str("job_id", job.ID).Str("path", destDir).Msg("job promoted to approved store")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return apperr.IOFailure(err, "open %s", src)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return apperr.IOFailure(err, "create %s", dst)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return apperr.IOFailure(err, "copy %s to %s", src, dst)
	}
	return nil
}

// copyDirMerge recursively copies src into dst, merging on conflict
// (overwriting existing files), and returns the sorted list of relative
// file paths copied. A missing src directory is not an error: it returns
// an empty list, since a job may have been uploaded without any
// incoming-directory artifacts surviving cleanup.
func copyDirMerge(src, dst string) ([]string, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.IOFailure(err, "stat %s", src)
	}
	if !info.IsDir() {
		return nil, apperr.IOFailure(nil, "%s is not a directory", src)
	}

	var files []string
	err = filepath.Walk(src, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(dst, rel)
		if fi.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return err
		}
		if err := copyFile(path, destPath); err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

func countCSVRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, apperr.IOFailure(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		return 0, apperr.IOFailure(err, "parse csv %s", path)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows) - 1, nil // exclude header
}
