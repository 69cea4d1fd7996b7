package validate

import (
	"testing"

	"github.com/disruptio/cne-pipeline/internal/fuzzy"
	"github.com/disruptio/cne-pipeline/internal/models"
)

func matcherWithPS() *fuzzy.Matcher {
	return fuzzy.New(map[string]models.MasterRecord{
		"PS": {Sigla: "PS", Descricao: "Partido Socialista"},
	})
}

func badgeFor(rows []models.Badge, field string) *models.Badge {
	for i := range rows {
		if rows[i].Field == field {
			return &rows[i]
		}
	}
	return nil
}

func TestValidate_RequiredFieldsMissing(t *testing.T) {
	records := []models.Record{{"DTMNFR": "2025-01-01", "NUM_ORDEM": "1", "SIGLA": "PS"}}
	out := Validate(records, matcherWithPS(), Context{RawRecords: records})

	for _, field := range []string{"orgao", "tipo"} {
		b := badgeFor(out[0], field)
		if b == nil || b.Status != models.BadgeErro {
			t.Errorf("field %s: want erro for missing value, got %+v", field, b)
		}
	}
}

func TestValidate_InvalidTipo(t *testing.T) {
	records := []models.Record{{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "9", "SIGLA": "PS", "DTMNFR": "2025-01-01", "NUM_ORDEM": "1"}}
	out := Validate(records, matcherWithPS(), Context{RawRecords: records})

	b := badgeFor(out[0], "tipo")
	if b == nil || b.Status != models.BadgeErro {
		t.Fatalf("expected erro for invalid TIPO, got %+v", b)
	}
}

func TestValidate_ValidTipoGCE(t *testing.T) {
	records := []models.Record{{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "GCE", "SIGLA": "PS", "DTMNFR": "2025-01-01", "NUM_ORDEM": "1"}}
	out := Validate(records, matcherWithPS(), Context{RawRecords: records})

	b := badgeFor(out[0], "tipo")
	if b == nil || b.Status != models.BadgeOK {
		t.Fatalf("expected ok for TIPO=GCE, got %+v", b)
	}
}

func TestValidate_SiglaFuzzyBadges(t *testing.T) {
	tests := []struct {
		name   string
		sigla  string
		status models.BadgeStatus
	}{
		{"exact match is ok", "PS", models.BadgeOK},
		{"close match is aviso", "PSX", models.BadgeAviso},
		{"no match is erro", "ZZZZZZ", models.BadgeErro},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []models.Record{{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "2", "SIGLA": tt.sigla, "DTMNFR": "2025-01-01", "NUM_ORDEM": "1"}}
			out := Validate(records, matcherWithPS(), Context{RawRecords: records})
			b := badgeFor(out[0], "sigla")
			if b == nil || b.Status != tt.status {
				t.Errorf("sigla %q: got %+v, want status %s", tt.sigla, b, tt.status)
			}
		})
	}
}

func TestValidate_NumOrdemSequenceGapFlagged(t *testing.T) {
	records := []models.Record{
		{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "2", "SIGLA": "PS", "DTMNFR": "2025-01-01", "NUM_ORDEM": "1"},
		{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "2", "SIGLA": "PS", "DTMNFR": "2025-01-01", "NUM_ORDEM": "3"},
	}
	out := Validate(records, matcherWithPS(), Context{RawRecords: records})

	b := badgeFor(out[1], "num_ordem")
	if b == nil || b.Status != models.BadgeAviso {
		t.Fatalf("expected aviso for gapped sequence, got %+v", b)
	}
}

func TestValidate_MissingAlternatesFlaggedOnFirstRow(t *testing.T) {
	records := []models.Record{
		{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "2", "SIGLA": "PS", "DTMNFR": "2025-01-01", "NUM_ORDEM": "1"},
		{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "2", "SIGLA": "PS", "DTMNFR": "2025-01-01", "NUM_ORDEM": "2"},
	}
	out := Validate(records, matcherWithPS(), Context{RawRecords: records})

	b := badgeFor(out[0], "lista")
	if b == nil || b.Status != models.BadgeAviso {
		t.Fatalf("expected aviso on first row for missing suplente, got %+v", b)
	}
	if badgeFor(out[1], "lista") != nil {
		t.Errorf("second row should not carry the missing-alternates badge")
	}
}

func TestValidate_MissingAlternatesSatisfiedWhenSuplentePresent(t *testing.T) {
	records := []models.Record{
		{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "2", "SIGLA": "PS", "DTMNFR": "2025-01-01", "NUM_ORDEM": "1"},
		{"ORGAO": "Camara", "NOME_LISTA": "Lista A", "TIPO": "3", "SIGLA": "PS", "DTMNFR": "2025-01-01", "NUM_ORDEM": "1"},
	}
	out := Validate(records, matcherWithPS(), Context{RawRecords: records})

	if badgeFor(out[0], "lista") != nil {
		t.Errorf("expected no missing-alternates badge when a suplente exists")
	}
}
