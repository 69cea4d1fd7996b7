// Package summarypdf renders the optional approval summary.pdf artifact
// of spec §4.10, grounded on the teacher's internal/services/pdf.Service
// fpdf usage (simplified here to a fixed key/value layout since the
// input is a meta.json snapshot, not markdown).
package summarypdf

import (
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/disruptio/cne-pipeline/internal/models"
)

// Render writes meta as a one-page approval summary PDF to path.
func Render(meta models.Meta, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Nomination Approval Summary")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	if meta.Job != nil {
		writeRow(pdf, "Job ID", meta.Job.ID)
		writeRow(pdf, "Filename", meta.Job.Filename)
		writeRow(pdf, "Status", string(meta.Job.Status))
		if meta.Job.ApprovedAt != nil {
			writeRow(pdf, "Approved At", meta.Job.ApprovedAt.Format("2006-01-02 15:04:05"))
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Artifacts")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	writeRow(pdf, "CSV", meta.Artifacts.CSV)
	if meta.Artifacts.Preview != "" {
		writeRow(pdf, "Preview", meta.Artifacts.Preview)
	}
	writeRow(pdf, "Incoming files", fmt.Sprintf("%d", len(meta.Artifacts.Incoming)))

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Versions")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	writeRow(pdf, "Model", fmt.Sprintf("%s v%s (%s)", meta.Versions.Model.Name, meta.Versions.Model.Version, meta.Versions.Model.Status))
	writeRow(pdf, "Master data digest", meta.Versions.MasterData)

	return pdf.OutputFileAndClose(path)
}

func writeRow(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(45, 7, label+":")
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, value)
	pdf.Ln(7)
}
