// Package layout tags OCR lines by section, the thinnest stage of the
// pipeline (spec §4.4).
package layout

import "github.com/disruptio/cne-pipeline/internal/ocr"

// Entry is one line tagged with its position and section.
type Entry struct {
	Index   int
	Content string
	Section string
}

// Detect tags the first line as "header" and every other line as "body".
func Detect(lines []ocr.Line) []Entry {
	out := make([]Entry, len(lines))
	for i, l := range lines {
		section := "body"
		if i == 0 {
			section = "header"
		}
		out[i] = Entry{Index: i, Content: l.Text, Section: section}
	}
	return out
}
