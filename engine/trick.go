package engine

// Play is one entry of a trick: a single card played by a player.
type Play struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
}

// LeadSuit returns the suit of the first card played to the trick, or the
// empty suit when the trick has not started.
func LeadSuit(trick []Play) Suit {
	if len(trick) == 0 {
		return ""
	}
	return trick[0].Card.Suit
}

// Beats reports whether candidate beats best under the given lead and trump
// suits. Within a suit the higher trick rank wins; trump beats non-trump;
// a lead-suit card beats an off-suit non-trump card; an off-suit non-trump
// card never wins.
//
// This is the single beat relation shared by trick resolution and the bot
// card-selection policy.
func Beats(candidate, best Card, lead, trump Suit) bool {
	if candidate.Suit == best.Suit {
		return candidate.TrickRank() > best.TrickRank()
	}
	if trump != "" && candidate.Suit == trump && best.Suit != trump {
		return true
	}
	if trump != "" && best.Suit == trump && candidate.Suit != trump {
		return false
	}
	return candidate.Suit == lead && best.Suit != lead
}

// DetermineTrickWinner returns the player id of the winning play. The lead
// suit is the suit of the first card played. Ties are impossible with 52
// unique cards. The trick must be non-empty.
func DetermineTrickWinner(trick []Play, trump Suit) string {
	best := trick[0]
	lead := trick[0].Card.Suit
	for _, p := range trick[1:] {
		if Beats(p.Card, best.Card, lead, trump) {
			best = p
		}
	}
	return best.PlayerID
}

// ProvisionalWinner returns the card currently winning the (possibly
// incomplete) trick, or ok=false when the trick is empty.
func ProvisionalWinner(trick []Play, trump Suit) (Card, bool) {
	if len(trick) == 0 {
		return Card{}, false
	}
	best := trick[0].Card
	lead := trick[0].Card.Suit
	for _, p := range trick[1:] {
		if Beats(p.Card, best, lead, trump) {
			best = p.Card
		}
	}
	return best, true
}

// Playable reports whether card may legally be played from hand onto trick:
// any card leads an empty trick; otherwise the lead suit must be followed
// whenever the hand holds at least one card of it.
func Playable(card Card, hand []Card, trick []Play) bool {
	if len(trick) == 0 {
		return true
	}
	lead := trick[0].Card.Suit
	if card.Suit == lead {
		return true
	}
	for _, c := range hand {
		if c.Suit == lead {
			return false
		}
	}
	return true
}
