package models

import "strings"

// BadgeStatus is the validation severity of one field on one row.
type BadgeStatus string

const (
	BadgeOK    BadgeStatus = "ok"
	BadgeAviso BadgeStatus = "aviso"
	BadgeErro  BadgeStatus = "erro"
)

var severityRank = map[BadgeStatus]int{
	BadgeOK:    0,
	BadgeAviso: 1,
	BadgeErro:  2,
}

// Severity returns the ordinal rank of a status (higher is worse).
func (s BadgeStatus) Severity() int {
	return severityRank[s]
}

// Badge is a single field's validation verdict.
type Badge struct {
	Field   string      `json:"field"`
	Status  BadgeStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// FieldOrder is the stable ordering used to render a row's badge list.
var FieldOrder = []string{"orgao", "lista", "tipo", "sigla", "dtmnfr", "num_ordem"}

// BadgeSet accumulates per-field badges under the merge algebra: higher
// severity wins; equal severity appends messages (deduplicated); lower
// severity updates are ignored.
type BadgeSet struct {
	byField map[string]*Badge
	order   []string
}

// NewBadgeSet returns an empty badge accumulator.
func NewBadgeSet() *BadgeSet {
	return &BadgeSet{byField: make(map[string]*Badge)}
}

// Merge applies a new badge verdict for a field under the merge algebra.
func (b *BadgeSet) Merge(field string, status BadgeStatus, message string) {
	existing, ok := b.byField[field]
	if !ok {
		nb := &Badge{Field: field, Status: status, Message: message}
		b.byField[field] = nb
		b.order = append(b.order, field)
		return
	}
	switch {
	case status.Severity() > existing.Status.Severity():
		existing.Status = status
		existing.Message = message
	case status.Severity() == existing.Status.Severity():
		if message != "" && !strings.Contains(existing.Message, message) {
			if existing.Message == "" {
				existing.Message = message
			} else {
				existing.Message = existing.Message + "; " + message
			}
		}
	default:
		// lower severity update is ignored
	}
}

// Rows renders the accumulated badges ordered by FieldOrder, then any
// extra fields in insertion order.
func (b *BadgeSet) Rows() []Badge {
	seen := make(map[string]bool, len(b.order))
	out := make([]Badge, 0, len(b.order))
	for _, f := range FieldOrder {
		if bd, ok := b.byField[f]; ok {
			out = append(out, *bd)
			seen[f] = true
		}
	}
	for _, f := range b.order {
		if seen[f] {
			continue
		}
		out = append(out, *b.byField[f])
		seen[f] = true
	}
	return out
}
