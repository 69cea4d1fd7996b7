// Package extract turns a stream of segmented layout entries into raw
// records using the "<label>: <value>" grammar of spec §4.5.
package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/disruptio/cne-pipeline/internal/layout"
	"github.com/disruptio/cne-pipeline/internal/models"
)

// fieldMapping maps a normalized label to its canonical column.
var fieldMapping = map[string]string{
	"dtmnfr":             "DTMNFR",
	"competencia":        "DTMNFR",
	"orgao":              "ORGAO",
	"lista":              "NOME_LISTA",
	"tipo":               "TIPO",
	"sigla":              "SIGLA",
	"descricao":          "NOME_CANDIDATO",
	"partido_proponente": "PARTIDO_PROPONENTE",
}

// metadataMapping maps a preamble metadata label to the column it defaults.
var metadataMapping = map[string]string{
	"dtmnfr": "DTMNFR",
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeKey decomposes label, strips combining marks, lowercases, and
// replaces "-"/space with "_".
func normalizeKey(label string) string {
	out, _, err := transform.String(stripMarks, label)
	if err != nil {
		out = label
	}
	out = strings.ToLower(out)
	out = strings.ReplaceAll(out, "-", "_")
	out = strings.ReplaceAll(out, " ", "_")
	return out
}

func initRecord() models.Record {
	r := make(models.Record, len(models.CanonicalColumns)+2)
	for _, c := range models.CanonicalColumns {
		r[c] = ""
	}
	r[models.ShadowRawLista] = ""
	r[models.ShadowRawSigla] = ""
	return r
}

// Records extracts raw records from segmented, reading-order entries.
func Records(entries []layout.Entry) []models.Record {
	metadata := extractMetadata(entries)
	var records []models.Record
	current := initRecord()

	hasAny := func(r models.Record) bool {
		return r.HasAny("ORGAO", "NOME_LISTA", "TIPO", "NOME_CANDIDATO")
	}

	finalize := func() {
		if hasAny(current) {
			rec := current.Clone()
			for metaKey, column := range metadataMapping {
				if rec[column] == "" {
					rec[column] = metadata[metaKey]
				}
			}
			records = append(records, rec)
		}
		current = initRecord()
	}

	for _, e := range entries {
		text := strings.TrimSpace(e.Content)
		if text == "" {
			if hasAny(current) {
				finalize()
			}
			continue
		}

		if idx := strings.Index(text, ":"); idx >= 0 {
			prefix := strings.TrimSpace(text[:idx])
			value := strings.TrimSpace(text[idx+1:])
			key := normalizeKey(prefix)
			column, ok := fieldMapping[key]
			if !ok {
				continue
			}
			if column == "ORGAO" && current["ORGAO"] != "" {
				finalize()
			}
			switch column {
			case "NOME_LISTA":
				current[models.ShadowRawLista] = value
				current[column] = value
			case "SIGLA":
				current[models.ShadowRawSigla] = value
				current[column] = value
			case "NOME_CANDIDATO":
				current[column] = joinNonEmpty(current[column], value)
			default:
				current[column] = value
			}
		} else {
			if hasAny(current) {
				current["NOME_CANDIDATO"] = joinNonEmpty(current["NOME_CANDIDATO"], text)
			}
		}
	}
	finalize()
	return records
}

func extractMetadata(entries []layout.Entry) map[string]string {
	metadata := map[string]string{}
	for _, e := range entries {
		text := strings.TrimSpace(e.Content)
		if text == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(text), "orgao") {
			break
		}
		idx := strings.Index(text, ":")
		if idx < 0 {
			continue
		}
		prefix := strings.TrimSpace(text[:idx])
		value := strings.TrimSpace(text[idx+1:])
		metadata[normalizeKey(prefix)] = value
	}
	return metadata
}

func joinNonEmpty(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.TrimSpace(strings.Join(nonEmpty, " "))
}
