package segment

import (
	"testing"

	"github.com/disruptio/cne-pipeline/internal/layout"
)

func TestSegment_PreservesOriginalIndexOrder(t *testing.T) {
	entries := []layout.Entry{
		{Index: 0, Content: "ORGAO: Camara"},
		{Index: 1, Content: "NOME_LISTA: Lista A"},
		{Index: 2, Content: "TIPO: 2"},
		{Index: 3, Content: "some unrelated body line"},
	}

	out := Segment(entries)

	if len(out) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(out), len(entries))
	}
	for i, e := range out {
		if e.Index != i {
			t.Errorf("out[%d].Index = %d, want %d (result must stay sorted by Index)", i, e.Index, i)
		}
	}
}

func TestSegment_NonMatchingLinesFallBackToBody(t *testing.T) {
	entries := []layout.Entry{{Index: 0, Content: "no keyword here"}}
	out := Segment(entries)
	if len(out) != 1 || out[0].Content != "no keyword here" {
		t.Errorf("out = %+v", out)
	}
}

func TestSegment_MatchIsCaseInsensitive(t *testing.T) {
	entries := []layout.Entry{
		{Index: 0, Content: "ORGAO: Camara"},
		{Index: 1, Content: "orgao: outra"},
	}
	out := Segment(entries)
	if len(out) != 2 {
		t.Fatalf("got %d entries, want 2", len(out))
	}
}
