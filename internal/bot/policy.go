// Package bot implements the decision policy for synthetic players. The
// policy is deliberately shallow: a hand-strength estimate for bidding and
// a cheapest-winning/cheapest-losing rule for card play, with a seeded
// generator so a given seed always produces the same game.
package bot

import (
	"sort"

	"github.com/arno-o/oh-hell/engine"
)

// Policy decides bids and card plays for one bot. Not safe for concurrent
// use; the host drives every bot from its tick loop.
type Policy struct {
	seed int64
}

// NewPolicy returns a policy driven by the given seed.
func NewPolicy(seed int64) *Policy {
	return &Policy{seed: seed}
}

// Seed exposes the current generator state so it can be replicated and
// restored on host change.
func (p *Policy) Seed() int64 { return p.seed }

// nextInt returns a pseudo-random integer in [min, max] and advances the
// generator. Linear congruential, so the sequence is fully determined by
// the seed.
func (p *Policy) nextInt(min, max int) int {
	if min >= max {
		return min
	}
	p.seed = (p.seed*9301 + 49297) % 233280
	return min + int(float64(p.seed)/233280.0*float64(max-min+1))
}

// DecideBid estimates tricks from high cards and trump length, then
// perturbs the estimate by one in either direction and shades odd rounds
// down.
func (p *Policy) DecideBid(hand []engine.Card, trump engine.Suit, round int) int {
	handCount := len(hand)
	if handCount == 0 {
		return 0
	}

	high := 0
	trumps := 0
	for _, c := range hand {
		switch c.Rank {
		case engine.RankAce, engine.RankKing, engine.RankQueen, engine.RankJack, 10:
			high++
		}
		if trump != "" && c.Suit == trump {
			trumps++
		}
	}

	strength := float64(high)*0.7 + float64(trumps)*0.9 + float64(handCount-high)*0.15
	expected := int(strength/1.2 + 0.5)
	variance := p.nextInt(0, 2) - 1
	bias := 0
	if round%2 != 0 {
		bias = -1
	}

	bid := expected + variance + bias
	if bid < 0 {
		bid = 0
	}
	if bid > handCount {
		bid = handCount
	}
	return bid
}

// ChooseCard picks the card to play given the trick so far. A bot still
// chasing its bid plays to win as cheaply as possible; a bot at or over
// its bid ducks with its lowest card.
func (p *Policy) ChooseCard(hand []engine.Card, trick []engine.Play, trump engine.Suit, seats, bid, tricksWon int) (engine.Card, bool) {
	if len(hand) == 0 {
		return engine.Card{}, false
	}

	needsWins := tricksWon < bid
	lastToAct := seats > 0 && len(trick) == seats-1

	// Leading: keep trumps back unless nothing else is left.
	if len(trick) == 0 {
		candidates := hand
		if trump != "" {
			nonTrump := filter(hand, func(c engine.Card) bool { return c.Suit != trump })
			if len(nonTrump) > 0 {
				candidates = nonTrump
			}
		}
		if needsWins {
			return highest(candidates), true
		}
		return lowest(candidates), true
	}

	lead := engine.LeadSuit(trick)
	follow := filter(hand, func(c engine.Card) bool { return c.Suit == lead })
	candidates := hand
	if len(follow) > 0 {
		candidates = follow
	}

	winner, _ := engine.ProvisionalWinner(trick, trump)

	if needsWins {
		winning := filter(candidates, func(c engine.Card) bool { return engine.Beats(c, winner, lead, trump) })
		if len(winning) > 0 {
			return lowest(winning), true
		}
	} else {
		losing := filter(candidates, func(c engine.Card) bool { return !engine.Beats(c, winner, lead, trump) })
		if len(losing) > 0 {
			return lowest(losing), true
		}
	}

	// Void in the lead suit and still chasing: ruff with the cheapest trump.
	if len(follow) == 0 && trump != "" && needsWins {
		trumps := filter(hand, func(c engine.Card) bool { return c.Suit == trump })
		if len(trumps) > 0 {
			return lowest(trumps), true
		}
	}

	if needsWins && lastToAct {
		return highest(candidates), true
	}
	return lowest(candidates), true
}

func filter(cards []engine.Card, keep func(engine.Card) bool) []engine.Card {
	var out []engine.Card
	for _, c := range cards {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func lowest(cards []engine.Card) engine.Card {
	sorted := append([]engine.Card(nil), cards...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	return sorted[0]
}

func highest(cards []engine.Card) engine.Card {
	sorted := append([]engine.Card(nil), cards...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank > sorted[j].Rank })
	return sorted[0]
}
