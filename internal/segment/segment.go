// Package segment buckets layout entries by keyword and reconstructs
// reading order, per spec §4.4.
package segment

import (
	"sort"
	"strings"

	"github.com/disruptio/cne-pipeline/internal/layout"
)

var bucketKeywords = []string{"orgao", "lista", "tipo"}

// Bucket groups entries by the first matching keyword, falling back to "body".
type Bucket struct {
	Name    string
	Entries []layout.Entry
}

// Segment buckets entries and returns them re-merged into one stream
// sorted by original Index.
func Segment(entries []layout.Entry) []layout.Entry {
	buckets := map[string][]layout.Entry{}
	for _, e := range entries {
		lower := strings.ToLower(e.Content)
		name := "body"
		for _, kw := range bucketKeywords {
			if strings.Contains(lower, kw) {
				name = kw
				break
			}
		}
		buckets[name] = append(buckets[name], e)
	}

	var out []layout.Entry
	for _, es := range buckets {
		out = append(out, es...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
