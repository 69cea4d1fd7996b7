// Package normalize canonicalizes raw extracted records: TIPO coding,
// NOME_LISTA/SIMBOLO splitting, acronym fuzzy-matching, and the
// context-scoped NUM_ORDEM ordering counter (spec §4.6).
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/disruptio/cne-pipeline/internal/fuzzy"
	"github.com/disruptio/cne-pipeline/internal/models"
)

var acronymTokenRE = regexp.MustCompile(`[A-Za-zÀ-ÖØ-öø-ÿ]+`)

func normalizeTipo(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "TITULAR") {
		return "2"
	}
	if strings.HasPrefix(v, "SUPLENTE") {
		return "3"
	}
	if v == "2" || v == "3" {
		return v
	}
	return "3"
}

// splitLista implements spec §4.6's NOME_LISTA/SIMBOLO split rules.
func splitLista(rawValue string) (name, symbol string) {
	value := strings.TrimSpace(rawValue)
	if value == "" {
		return "", ""
	}

	lower := strings.ToLower(value)
	working := value
	removedPrefix := false
	if strings.HasPrefix(lower, "coligacao ") {
		working = strings.TrimSpace(value[len("coligacao "):])
		removedPrefix = true
	}

	if idx := strings.LastIndex(working, " - "); idx >= 0 {
		return strings.TrimSpace(working[:idx]), strings.TrimSpace(working[idx+len(" - "):])
	}

	if strings.Contains(working, "(") && strings.Contains(working, ")") {
		parts := strings.SplitN(working, "(", 2)
		remainder := parts[1]
		sym := remainder
		if end := strings.Index(remainder, ")"); end >= 0 {
			sym = remainder[:end]
		}
		return strings.TrimSpace(parts[0]), strings.TrimSpace(sym)
	}

	if strings.Contains(value, "§") {
		parts := strings.SplitN(value, "§", 2)
		left := strings.TrimSpace(parts[0])
		right := strings.TrimSpace(parts[1])
		tokens := strings.Fields(left)
		sym := ""
		if len(tokens) > 0 {
			sym = tokens[len(tokens)-1]
		}
		name := right
		if name == "" {
			name = working
		}
		return name, sym
	}

	if removedPrefix {
		matches := acronymTokenRE.FindAllString(working, -1)
		var initials strings.Builder
		for _, tok := range matches {
			initials.WriteRune([]rune(tok)[0])
		}
		return working, strings.ToUpper(initials.String())
	}

	return value, ""
}

func isIndependent(rawLista string) string {
	lowered := strings.ToLower(rawLista)
	if lowered == "" {
		return ""
	}
	if strings.Contains(lowered, "coligacao") {
		return "N"
	}
	if strings.Contains(lowered, "lista unica") {
		return "S"
	}
	return "N"
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// counterKey identifies the context NUM_ORDEM is scoped within.
type counterKey struct {
	dtmnfr, orgao, sigla, lista, tipo string
}

// Normalize canonicalizes the full record stream, resolving acronyms
// against matcher and assigning context-scoped NUM_ORDEM values in
// input order.
func Normalize(records []models.Record, matcher *fuzzy.Matcher) []models.Record {
	counters := map[counterKey]int{}
	out := make([]models.Record, 0, len(records))

	for _, rec := range records {
		dtmnfr := strings.TrimSpace(rec["DTMNFR"])
		orgao := strings.TrimSpace(rec["ORGAO"])
		tipo := normalizeTipo(rec["TIPO"])

		rawLista := rec[models.ShadowRawLista]
		if rawLista == "" {
			rawLista = rec["NOME_LISTA"]
		}
		rawLista = strings.TrimSpace(rawLista)
		listaHint := strings.TrimSpace(rec["NOME_LISTA"])

		splitSource := rawLista
		if splitSource == "" {
			splitSource = listaHint
		}
		nomeFromRaw, simbolo := splitLista(splitSource)
		nomeLista := nomeFromRaw
		if nomeLista == "" {
			nomeLista = listaHint
		}

		independenteSource := rawLista
		if independenteSource == "" {
			independenteSource = nomeLista
		}
		independente := isIndependent(independenteSource)

		siglaValue := strings.TrimSpace(rec["SIGLA"])
		siglaRaw := strings.TrimSpace(rec[models.ShadowRawSigla])
		if siglaRaw == "" {
			siglaRaw = siglaValue
		}
		partido := strings.TrimSpace(rec["PARTIDO_PROPONENTE"])

		sigla := ""
		var master *models.MasterRecord
		switch {
		case siglaRaw != "":
			sigla, master = matcher.Match(siglaRaw)
		case siglaValue != "":
			sigla, master = matcher.Match(siglaValue)
		}
		if master != nil {
			partido = master.Descricao
		} else if partido == "" && siglaRaw != "" {
			partido = strings.ToUpper(siglaRaw)
		}
		if sigla == "" {
			if siglaRaw != "" {
				sigla = strings.ToUpper(siglaRaw)
			} else {
				sigla = strings.ToUpper(siglaValue)
			}
		}

		nomeCandidato := collapseWhitespace(rec["NOME_CANDIDATO"])

		key := counterKey{dtmnfr, strings.ToUpper(orgao), strings.ToUpper(sigla), strings.ToUpper(nomeLista), tipo}
		numOrdem := ""
		if tipo != "" {
			counters[key]++
			numOrdem = strconv.Itoa(counters[key])
		}

		out = append(out, models.Record{
			"DTMNFR":             dtmnfr,
			"ORGAO":              orgao,
			"TIPO":               tipo,
			"SIGLA":              sigla,
			"SIMBOLO":            simbolo,
			"NOME_LISTA":         nomeLista,
			"NUM_ORDEM":          numOrdem,
			"NOME_CANDIDATO":     nomeCandidato,
			"PARTIDO_PROPONENTE": partido,
			"INDEPENDENTE":       independente,
			models.ShadowRawLista: rawLista,
			models.ShadowRawSigla: siglaRaw,
		})
	}
	return out
}
