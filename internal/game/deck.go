package game

import "math/rand"

// Card is a single answer card. IDs are indexes into cardPool and are
// stable for the lifetime of the process.
type Card struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// deck tracks the draw and discard piles. Cards held by players live in
// their hands; at any moment draw + discard + hands covers cardPool
// exactly once.
type deck struct {
	rng     *rand.Rand
	draw    []Card
	discard []Card
}

func newDeck(rng *rand.Rand) *deck {
	cards := make([]Card, len(cardPool))
	for i, text := range cardPool {
		cards[i] = Card{ID: i, Text: text}
	}
	d := &deck{rng: rng, draw: cards}
	d.shuffle()
	return d
}

func (d *deck) shuffle() {
	d.rng.Shuffle(len(d.draw), func(i, j int) {
		d.draw[i], d.draw[j] = d.draw[j], d.draw[i]
	})
}

// drawN pops up to n cards from the draw pile, folding the discard pile
// back in when the draw pile runs dry. Returns fewer than n only when
// hands hold the rest of the pool.
func (d *deck) drawN(n int) []Card {
	out := make([]Card, 0, n)
	for len(out) < n {
		if len(d.draw) == 0 {
			if len(d.discard) == 0 {
				break
			}
			d.draw = d.discard
			d.discard = nil
			d.shuffle()
		}
		last := len(d.draw) - 1
		out = append(out, d.draw[last])
		d.draw = d.draw[:last]
	}
	return out
}

func (d *deck) toDiscard(cards ...Card) {
	d.discard = append(d.discard, cards...)
}

// inPiles is the number of cards not currently held in hands.
func (d *deck) inPiles() int {
	return len(d.draw) + len(d.discard)
}

// cardPool is the answer card content. Keep entries short enough to
// slot into a sentence blank.
var cardPool = []string{
	"a suspiciously confident pigeon",
	"grandma's secret wrestling career",
	"an inflatable tyrannosaurus costume",
	"the world's saddest trombone",
	"a lifetime supply of expired coupons",
	"seventeen raccoons in a trench coat",
	"a motivational poster about cheese",
	"the office printer, finally sentient",
	"an extremely polite sword fight",
	"a haunted vending machine",
	"the moon, but closer",
	"a conga line of tax auditors",
	"my imaginary friend's lawyer",
	"a karaoke battle at the library",
	"the last slice of pizza, armed",
	"an interpretive dance about spreadsheets",
	"a very small horse with big plans",
	"the ghost of breakfast past",
	"a jacuzzi full of spaghetti",
	"an award-winning mime scream",
	"the neighbor's passive-aggressive garden gnome",
	"a skateboarding grandpa gang",
	"the fourth little pig, who built with glitter",
	"an emergency kazoo solo",
	"a llama running for mayor",
	"the secret tunnel under the salad bar",
	"a thousand rubber ducks, organized",
	"an overly dramatic weather forecast",
	"the elevator music composer's revenge",
	"a pillow fort with a mortgage",
	"the loudest sneeze in recorded history",
	"a unicycle built for five",
	"an encyclopedia of forbidden casseroles",
	"the janitor's hidden throne room",
	"a flash mob of substitute teachers",
	"the world championship of hide and seek",
	"a diplomatic incident involving soup",
	"an escalator to nowhere in particular",
	"the committee for unnecessary meetings",
	"a parrot that only quotes infomercials",
	"the great glitter spill of last Tuesday",
	"a medieval knight at the drive-thru",
	"an origami crane uprising",
	"the staff room's forbidden coffee",
	"a whale learning parallel parking",
	"the annual sock puppet summit",
	"a disco ball in the break room",
	"an apology written in skywriting",
	"the intern who answers to no one",
	"a bouncy castle board meeting",
	"the algorithm that recommends regret",
	"a penguin with a briefcase",
	"the hold music that never ends",
	"a garage band of retired opera singers",
	"an umbrella that attracts seagulls",
	"the leftover lasagna of destiny",
	"a treasure map drawn in crayon",
	"the world's most aggressive hug",
	"a yoga class for competitive people",
	"an anonymous tip about the cafeteria meatloaf",
	"the spare key hidden too well",
	"a marching band in the waiting room",
	"the group project that ruined everything",
	"a fog machine at the book club",
}
