// Package pipeline is the single-threaded per-job orchestrator of spec
// §4.9: OCR -> layout -> segment -> extract -> normalize -> validate,
// then CSV + preview artifacts, then the job-state transition.
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/apperr"
	"github.com/disruptio/cne-pipeline/internal/extract"
	"github.com/disruptio/cne-pipeline/internal/fuzzy"
	"github.com/disruptio/cne-pipeline/internal/jobstore"
	"github.com/disruptio/cne-pipeline/internal/layout"
	"github.com/disruptio/cne-pipeline/internal/master"
	"github.com/disruptio/cne-pipeline/internal/models"
	"github.com/disruptio/cne-pipeline/internal/normalize"
	"github.com/disruptio/cne-pipeline/internal/ocr"
	"github.com/disruptio/cne-pipeline/internal/segment"
	"github.com/disruptio/cne-pipeline/internal/validate"
)

// Pipeline wires the stores a job run needs.
type Pipeline struct {
	Jobs         *jobstore.Store
	Master       *master.Store
	IncomingDir  string
	ProcessedDir string
	Logger       arbor.ILogger
}

// Run executes the full pipeline for jobID, transitioning the job state
// as it goes. Any unexpected failure marks the job FAILED and is
// returned to the caller (the worker), which fails only that job slot.
func (p *Pipeline) Run(jobID string) error {
	if _, err := p.Jobs.SetProcessing(jobID); err != nil {
		return err
	}

	jobDir := filepath.Join(p.IncomingDir, jobID)
	filePath, err := firstFile(jobDir)
	if err != nil {
		p.fail(jobID, err.Error())
		return err
	}

	p.Logger.Info().Str("job_id", jobID).Str("file", filePath).Msg("processing job")

	lines, err := ocr.ReadFile(filePath)
	if err != nil {
		p.fail(jobID, err.Error())
		return err
	}
	ocrConfMean := ocr.MeanConfidence(lines)

	layoutEntries := layout.Detect(lines)
	segmented := segment.Segment(layoutEntries)
	rawRecords := extract.Records(segmented)

	cache, err := p.Master.Cache()
	if err != nil {
		p.fail(jobID, err.Error())
		return err
	}
	matcher := fuzzy.New(cache)

	normalized := normalize.Normalize(rawRecords, matcher)
	validations := validate.Validate(normalized, matcher, validate.Context{
		RawRecords:  rawRecords,
		OCRConfMean: ocrConfMean,
	})

	if err := p.writeCSV(jobID, normalized); err != nil {
		p.fail(jobID, err.Error())
		return err
	}
	if err := p.writePreview(jobID, normalized, validations, ocrConfMean); err != nil {
		p.fail(jobID, err.Error())
		return err
	}

	if _, err := p.Jobs.SetCompleted(jobID, map[string]interface{}{"ocr_conf_mean": ocrConfMean}); err != nil {
		return err
	}
	p.Logger.Info().Str("job_id", jobID).Int("rows", len(normalized)).Msg("job processed successfully")
	return nil
}

func (p *Pipeline) fail(jobID, message string) {
	p.Logger.Error().Str("job_id", jobID).Str("error", message).Msg("job failed")
	if _, err := p.Jobs.MarkFailed(jobID, message); err != nil {
		p.Logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to mark job failed")
	}
}

func firstFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", apperr.IOFailure(err, "no files found in %s", dir)
	}
	for _, e := range entries {
		if !e.IsDir() {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", apperr.NotFound("no files found in %s", dir)
}

func (p *Pipeline) writeCSV(jobID string, records []models.Record) error {
	dir := filepath.Join(p.ProcessedDir, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.IOFailure(err, "create processed dir %s", dir)
	}
	path := filepath.Join(dir, "output.csv")
	f, err := os.Create(path)
	if err != nil {
		return apperr.IOFailure(err, "create csv %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	defer w.Flush()

	if err := w.Write(models.CanonicalColumns); err != nil {
		return apperr.IOFailure(err, "write csv header")
	}
	for _, rec := range records {
		if err := w.Write(rec.Row()); err != nil {
			return apperr.IOFailure(err, "write csv row")
		}
	}
	return nil
}

func (p *Pipeline) writePreview(jobID string, records []models.Record, validations [][]models.Badge, ocrConfMean float64) error {
	rows := make([]models.PreviewRow, len(records))
	for i, rec := range records {
		rows[i] = models.PreviewRow{Columns: rec.Row(), Validations: validations[i]}
	}
	preview := models.Preview{
		JobID:     jobID,
		Headers:   models.CanonicalColumns,
		Rows:      rows,
		TotalRows: len(rows),
		Metadata:  map[string]interface{}{"ocr_conf_mean": ocrConfMean},
	}

	dir := filepath.Join(p.ProcessedDir, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.IOFailure(err, "create processed dir %s", dir)
	}
	data, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		return apperr.IOFailure(err, "marshal preview")
	}
	path := filepath.Join(dir, "preview.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperr.IOFailure(err, "write preview %s", path)
	}
	return nil
}
