// Package engine implements the Oh Hell card game rules.
//
// The package owns the deck, the per-round hands, the hand-size cadence and
// the trick/beat relation, and nothing else. It carries no transport or
// session concerns: session code serializes engine output into the
// replicated document, and from that point on the replicated copies are the
// source of truth.
package engine

import "strconv"

// Suit identifies one of the four French suits.
type Suit string

const (
	SuitClub    Suit = "CLUB"
	SuitDiamond Suit = "DIAMOND"
	SuitHeart   Suit = "HEART"
	SuitSpade   Suit = "SPADE"
)

// Suits lists all suits in deck-construction order.
var Suits = [4]Suit{SuitClub, SuitDiamond, SuitHeart, SuitSpade}

// Rank constants. Ace is stored as 1 and promoted to 14 only inside trick
// comparison (TrickRank); dealing and hand-size math always see 1.
const (
	RankAce   = 1
	RankJack  = 11
	RankQueen = 12
	RankKing  = 13
)

// Card is an immutable suit/rank pair. FaceUp is cosmetic: it flips on deal
// and trump reveal but never participates in a rules decision.
type Card struct {
	Suit   Suit `json:"suit"`
	Rank   int  `json:"rank"`
	FaceUp bool `json:"faceUp"`
}

// TrickRank returns the comparison rank of the card: Ace counts 14, every
// other rank counts face value.
func (c Card) TrickRank() int {
	if c.Rank == RankAce {
		return 14
	}
	return c.Rank
}

// Equal reports whether two cards share suit and rank, ignoring face-up
// state.
func (c Card) Equal(o Card) bool { return c.Suit == o.Suit && c.Rank == o.Rank }

var suitSymbols = map[Suit]string{
	SuitClub:    "♣",
	SuitDiamond: "♦",
	SuitHeart:   "♥",
	SuitSpade:   "♠",
}

// Name renders a short display label such as "A♠" or "10♦".
func (c Card) Name() string {
	var rank string
	switch c.Rank {
	case RankAce:
		rank = "A"
	case RankJack:
		rank = "J"
	case RankQueen:
		rank = "Q"
	case RankKing:
		rank = "K"
	default:
		rank = strconv.Itoa(c.Rank)
	}
	return rank + suitSymbols[c.Suit]
}
