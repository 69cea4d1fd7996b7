// Package ocr is the pluggable OCR adapter: file -> ordered lines with a
// per-line confidence score. No real OCR engine is wired (non-goal); the
// reference implementation decodes UTF-8 text directly and assigns a
// deterministic heuristic confidence, exactly as spec §4.3 describes.
package ocr

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/disruptio/cne-pipeline/internal/apperr"
)

// Line is one ordered OCR result line.
type Line struct {
	Text       string
	Confidence float64
}

var uncertainTokens = []string{"incerta", "aguardando", "§"}

// Confidence computes the deterministic heuristic score for one line.
func Confidence(text string) float64 {
	c := 0.98
	lower := strings.ToLower(text)
	for _, tok := range uncertainTokens {
		if strings.Contains(lower, tok) {
			c -= 0.20
			break
		}
	}
	if strings.ContainsAny(text, "0123456789") {
		c -= 0.02
	}
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// ReadFile runs the OCR adapter over path, returning ordered non-blank
// lines. ZIP archives are flattened member-by-member, sorted by name,
// excluding directories. PDFs are introspected via pdfcpu for page count
// (prefixed as a synthetic metadata line) then decoded as best-effort
// UTF-8, since no actual text recognition runs on image content.
func ReadFile(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.IOFailure(err, "open input file %s", path)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperr.IOFailure(err, "read input file %s", path)
	}

	if isZip(data) {
		return readZip(data)
	}
	if isPDF(data, path) {
		return readPDF(path, data)
	}
	return linesFromText(string(data)), nil
}

func isZip(data []byte) bool {
	return len(data) >= 4 && data[0] == 'P' && data[1] == 'K'
}

func isPDF(data []byte, path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func readZip(data []byte) ([]Line, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.IOFailure(err, "open zip archive")
	}
	var names []string
	files := map[string]*zip.File{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
		files[f.Name] = f
	}
	sort.Strings(names)

	var out []Line
	for _, name := range names {
		rc, err := files[name].Open()
		if err != nil {
			continue
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		out = append(out, linesFromText(string(b))...)
	}
	return out, nil
}

func readPDF(path string, data []byte) ([]Line, error) {
	var out []Line
	if n, err := api.PageCountFile(path); err == nil {
		out = append(out, Line{Text: fmt.Sprintf("pdf_pages: %d", n), Confidence: Confidence(fmt.Sprintf("%d", n))})
	}
	// pdfcpu has no text-extraction API in this corpus's vendored version;
	// fall back to a best-effort decode of whatever textual content the
	// raw bytes contain, matching the OCR stub's deterministic nature.
	out = append(out, linesFromText(string(data))...)
	return out, nil
}

func linesFromText(text string) []Line {
	var out []Line
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, Line{Text: line, Confidence: Confidence(line)})
	}
	return out
}

// MeanConfidence is the arithmetic mean of confidences, 0.0 for no lines.
func MeanConfidence(lines []Line) float64 {
	if len(lines) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, l := range lines {
		sum += l.Confidence
	}
	return sum / float64(len(lines))
}
