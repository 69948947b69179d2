package game

import (
	"math/rand"
	"strings"
)

const blankMarker = "____"

// SentenceTemplate is a prompt sentence with one to three blanks that
// players fill from their hands.
type SentenceTemplate struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Blanks int    `json:"blanks"`
}

func pickTemplate(rng *rand.Rand) SentenceTemplate {
	return sentencePool[rng.Intn(len(sentencePool))]
}

// fillTemplate substitutes the selected cards into the blanks in order.
// The caller validates len(cards) == tpl.Blanks.
func fillTemplate(tpl SentenceTemplate, cards []Card) string {
	out := tpl.Text
	for _, c := range cards {
		out = strings.Replace(out, blankMarker, c.Text, 1)
	}
	return out
}

var sentencePool = []SentenceTemplate{
	{0, "A painting of ____ winning a gold medal.", 1},
	{1, "Nobody expected ____ at the wedding.", 1},
	{2, "The museum's newest exhibit: ____.", 1},
	{3, "Breaking news: ____ spotted downtown.", 1},
	{4, "My therapist says I should avoid ____.", 1},
	{5, "The school play was ruined by ____.", 1},
	{6, "A renaissance portrait of ____.", 1},
	{7, "The real reason the meeting ran long: ____.", 1},
	{8, "Scientists have finally explained ____.", 1},
	{9, "This year's hottest holiday gift is ____.", 1},
	{10, "A photo of ____ next to ____.", 2},
	{11, "When ____ met ____, history was made.", 2},
	{12, "The movie poster shows ____ battling ____.", 2},
	{13, "My weekend plans: ____ followed by ____.", 2},
	{14, "The recipe calls for ____ and a pinch of ____.", 2},
	{15, "A courtroom sketch of ____ suing ____.", 2},
	{16, "The band's album cover features ____ riding ____.", 2},
	{17, "Witnesses describe ____ fleeing the scene with ____.", 2},
	{18, "A postcard of ____ visiting ____.", 2},
	{19, "The documentary follows ____ training ____ for ____.", 3},
	{20, "In the sequel, ____ teams up with ____ against ____.", 3},
	{21, "The parade featured ____, ____, and a float shaped like ____.", 3},
	{22, "Family dinner: ____ argued with ____ about ____.", 3},
	{23, "The time capsule contained ____, ____, and a note about ____.", 3},
}
