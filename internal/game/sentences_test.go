package game

import (
	"strings"
	"testing"
)

func TestSentencePoolBlanksMatchMarkers(t *testing.T) {
	if len(sentencePool) == 0 {
		t.Fatal("sentence pool is empty")
	}
	seen := make(map[int]bool)
	for _, tpl := range sentencePool {
		if seen[tpl.ID] {
			t.Errorf("duplicate template ID %d", tpl.ID)
		}
		seen[tpl.ID] = true

		markers := strings.Count(tpl.Text, blankMarker)
		if markers != tpl.Blanks {
			t.Errorf("template %d: %d markers but Blanks=%d", tpl.ID, markers, tpl.Blanks)
		}
		if tpl.Blanks < 1 || tpl.Blanks > 3 {
			t.Errorf("template %d: Blanks=%d out of range", tpl.ID, tpl.Blanks)
		}
	}
}

func TestFillTemplate(t *testing.T) {
	tpl := SentenceTemplate{ID: 99, Text: "First ____ then ____.", Blanks: 2}
	cards := []Card{{ID: 1, Text: "the llama"}, {ID: 2, Text: "the gnome"}}

	got := fillTemplate(tpl, cards)
	want := "First the llama then the gnome."
	if got != want {
		t.Fatalf("fillTemplate = %q; want %q", got, want)
	}
}

func TestFillTemplateKeepsCardOrder(t *testing.T) {
	tpl := SentenceTemplate{ID: 98, Text: "____ vs ____", Blanks: 2}
	a := []Card{{ID: 1, Text: "A"}, {ID: 2, Text: "B"}}
	b := []Card{{ID: 2, Text: "B"}, {ID: 1, Text: "A"}}

	if fillTemplate(tpl, a) == fillTemplate(tpl, b) {
		t.Fatal("card order should change the sentence")
	}
}

func TestPickTemplateReturnsPoolMember(t *testing.T) {
	rng := testRNG()
	for i := 0; i < 20; i++ {
		tpl := pickTemplate(rng)
		if tpl.ID < 0 || tpl.ID >= len(sentencePool) {
			t.Fatalf("picked template ID %d outside pool", tpl.ID)
		}
		if sentencePool[tpl.ID].Text != tpl.Text {
			t.Fatalf("picked template %d does not match pool", tpl.ID)
		}
	}
}
