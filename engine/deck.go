package engine

import "math/rand"

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// NewDeck returns the 52-card deck in suit-major order, all face down.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for rank := 1; rank <= 13; rank++ {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// Shuffle returns a Fisher-Yates shuffled copy of deck driven by rng.
// Callers own the rand source so shuffles are reproducible under test.
func Shuffle(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Deal splits the front n cards off deck. The returned slices alias deck's
// backing array; deck itself is not mutated.
func Deal(deck []Card, n int) (dealt, remaining []Card) {
	if n > len(deck) {
		n = len(deck)
	}
	return deck[:n], deck[n:]
}
