// Package validate builds per-row validation badges under the merge
// algebra described in spec §4.8: higher severity wins per field, equal
// severity appends messages.
package validate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disruptio/cne-pipeline/internal/fuzzy"
	"github.com/disruptio/cne-pipeline/internal/models"
)

var orgaoRE = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ0-9 .,'ºª/&()\-]+$`)

// validTipos are the coded values the normalizer ever produces ("2"
// titular, "3" suplente) plus the literal "GCE" group designation, which
// passes through uncoded when supplied directly (e.g. by tests feeding
// the validator raw rows that bypass the normalizer).
var validTipos = map[string]bool{"2": true, "3": true, "GCE": true}

// Context carries cross-cutting inputs the validator needs beyond the
// record itself: the pre-normalization raw records (for fuzzy-matching
// the original sigla text) and the OCR confidence mean.
type Context struct {
	RawRecords  []models.Record
	OCRConfMean float64
}

// Validate runs every per-row rule plus the cross-row checks (NUM_ORDEM
// gaps, missing alternates) over the normalized record stream, returning
// one ordered badge list per row.
func Validate(records []models.Record, matcher *fuzzy.Matcher, ctx Context) [][]models.Badge {
	sets := make([]*models.BadgeSet, len(records))
	for i, rec := range records {
		sets[i] = models.NewBadgeSet()
		validateRow(sets[i], rec, matcher, ctx, i)
	}

	validateNumOrdemSequence(sets, records)
	validateMissingAlternates(sets, records)

	out := make([][]models.Badge, len(sets))
	for i, s := range sets {
		out[i] = s.Rows()
	}
	return out
}

func validateRow(b *models.BadgeSet, rec models.Record, matcher *fuzzy.Matcher, ctx Context, index int) {
	// Required fields.
	for _, field := range []string{"ORGAO", "NOME_LISTA", "TIPO", "SIGLA"} {
		if rec[field] != "" {
			continue
		}
		lower := strings.ToLower(field)
		if field == "SIGLA" {
			b.Merge(lower, models.BadgeAviso, "Sigla ausente")
		} else {
			b.Merge(lower, models.BadgeErro, "Valor obrigatório ausente")
		}
	}

	// DTMNFR
	dtmnfr := rec["DTMNFR"]
	if dtmnfr == "" {
		b.Merge("dtmnfr", models.BadgeAviso, "Data de nomeação ausente")
	} else if !validDate(dtmnfr) {
		b.Merge("dtmnfr", models.BadgeErro, "Formato de data inválido")
	} else {
		b.Merge("dtmnfr", models.BadgeOK, "")
	}

	// ORGAO format
	orgao := rec["ORGAO"]
	if orgao != "" {
		if !orgaoRE.MatchString(orgao) {
			b.Merge("orgao", models.BadgeAviso, "Formato de órgão inesperado")
		} else {
			b.Merge("orgao", models.BadgeOK, "")
		}
	}

	// TIPO allowed values
	tipo := rec["TIPO"]
	if tipo != "" {
		upper := strings.ToUpper(tipo)
		if !validTipos[upper] {
			b.Merge("tipo", models.BadgeErro, "Tipo inválido")
		} else {
			b.Merge("tipo", models.BadgeOK, "")
		}
	}

	// NUM_ORDEM presence/shape
	numOrdem := rec["NUM_ORDEM"]
	switch {
	case numOrdem == "":
		b.Merge("num_ordem", models.BadgeErro, "Número de ordem ausente")
	default:
		if _, err := strconv.Atoi(numOrdem); err != nil {
			b.Merge("num_ordem", models.BadgeErro, "Número de ordem inválido")
		} else {
			b.Merge("num_ordem", models.BadgeOK, "")
		}
	}

	// SIGLA quality via fuzzy match against the original (pre-normalization) text.
	raw := siglaOriginal(rec, ctx, index)
	if raw == "" {
		raw = rec["SIGLA"]
	}
	if raw != "" {
		resolved, master := matcher.Match(raw)
		if master == nil {
			b.Merge("sigla", models.BadgeErro, "Sigla não encontrada no cadastro mestre")
		} else {
			ratio := matcher.Ratio(strings.ToUpper(raw), resolved)
			switch {
			case ratio < fuzzy.Cutoff:
				b.Merge("sigla", models.BadgeErro, "Diferença grande entre a sigla informada e o cadastro mestre")
			case ratio < fuzzy.WarningThreshold:
				b.Merge("sigla", models.BadgeAviso, "Sigla ajustada para cadastro mestre")
			default:
				b.Merge("sigla", models.BadgeOK, "")
			}
		}
	}
}

// siglaOriginal recovers the pre-normalization sigla text for row index,
// preferring the raw_records context entry's SIGLA column over the
// normalized record's own shadow field, then its SIGLA column.
func siglaOriginal(rec models.Record, ctx Context, index int) string {
	if index < len(ctx.RawRecords) {
		if v := ctx.RawRecords[index]["SIGLA"]; v != "" {
			return v
		}
	}
	if v := rec[models.ShadowRawSigla]; v != "" {
		return v
	}
	return rec["SIGLA"]
}

func validDate(s string) bool {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	if _, err := time.Parse("02/01/2006", s); err == nil {
		return true
	}
	return false
}

// validateNumOrdemSequence checks, within each lista (lowercased NOME_LISTA
// key), that assigned NUM_ORDEM values form the contiguous sequence
// 1,2,3,... when sorted by (number, original index).
func validateNumOrdemSequence(sets []*models.BadgeSet, records []models.Record) {
	type entry struct {
		index  int
		number int
	}
	byLista := map[string][]entry{}
	for i, rec := range records {
		numOrdem := rec["NUM_ORDEM"]
		if numOrdem == "" {
			continue
		}
		n, err := strconv.Atoi(numOrdem)
		if err != nil {
			continue
		}
		key := strings.ToLower(rec["NOME_LISTA"])
		byLista[key] = append(byLista[key], entry{index: i, number: n})
	}

	for lista, entries := range byLista {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].number != entries[j].number {
				return entries[i].number < entries[j].number
			}
			return entries[i].index < entries[j].index
		})
		for pos, e := range entries {
			expected := pos + 1
			if e.number != expected {
				msg := "Número de ordem esperado " + strconv.Itoa(expected) + " para a lista '" + lista + "'"
				sets[e.index].Merge("num_ordem", models.BadgeAviso, msg)
			}
		}
	}
}

// validateMissingAlternates flags, per lista, the absence of any
// SUPLENTE row when a TITULAR row exists, attaching the badge to the
// first row of that lista's `lista` field (spec §9 resolved choice).
func validateMissingAlternates(sets []*models.BadgeSet, records []models.Record) {
	type listaState struct {
		firstIndex  int
		hasTitular  bool
		hasSuplente bool
	}
	byLista := map[string]*listaState{}
	var order []string

	for i, rec := range records {
		key := strings.ToLower(rec["NOME_LISTA"])
		if key == "" {
			continue
		}
		st, ok := byLista[key]
		if !ok {
			st = &listaState{firstIndex: i}
			byLista[key] = st
			order = append(order, key)
		}
		switch rec["TIPO"] {
		case "2":
			st.hasTitular = true
		case "3":
			st.hasSuplente = true
		}
	}

	for _, key := range order {
		st := byLista[key]
		if st.hasTitular && !st.hasSuplente {
			sets[st.firstIndex].Merge("lista", models.BadgeAviso, "Lista sem suplentes cadastrados")
		}
	}
}
