package engine

// MaxRounds is the number of rounds in a full game.
const MaxRounds = 13

// Hand-size cadence bounds: 7 cards down to 1 and back up to 7.
const (
	maxCardsPerPlayer = 7
	minCardsPerPlayer = 1
)

// CardsPerPlayerForRound implements the hand-size cadence over the 13
// rounds: 7,6,5,4,3,2,1,2,3,4,5,6,7. It returns 0 once round exceeds
// MaxRounds, which is the game-over signal.
func CardsPerPlayerForRound(round int) int {
	if round > MaxRounds {
		return 0
	}
	span := maxCardsPerPlayer - minCardsPerPlayer // 6
	if round <= span+1 {
		return maxCardsPerPlayer - (round - 1)
	}
	return minCardsPerPlayer + (round - (span + 1))
}

// Round owns the deck and the dealt hands for the round in progress. It is
// constructed once per game and re-armed between rounds with
// PrepareNextRound. The hands it retains become stale the moment they are
// serialized into the replicated document; from then on the replicated
// copies are the editable source of truth and the engine copies must not be
// mutated further.
type Round struct {
	deck      []Card
	playerIDs []string
	hands     map[string][]Card
	number    int
}

// NewRound builds a round engine over a shuffled deck and the seat list in
// turn order. The round number starts at 1.
func NewRound(deck []Card, playerIDs []string) *Round {
	return &Round{
		deck:      deck,
		playerIDs: playerIDs,
		hands:     make(map[string][]Card),
		number:    1,
	}
}

// Number returns the current round number, 1-based.
func (r *Round) Number() int { return r.number }

// CardsPerPlayer returns the hand size for the round in progress.
func (r *Round) CardsPerPlayer() int { return CardsPerPlayerForRound(r.number) }

// Remaining returns the undealt stock. Its first card is the trump
// indicator once the round has been dealt.
func (r *Round) Remaining() []Card { return r.deck }

// SetPlayers re-anchors dealing to the given seat list. Hands already dealt
// are unaffected; the next DealCards uses the new list.
func (r *Round) SetPlayers(playerIDs []string) { r.playerIDs = playerIDs }

// DealCards deals cardsPerPlayer cards, face up, to each player in seat
// order and flips the trump indicator as a side effect. Dealing with no
// players, or asking for more cards than the deck holds, is a caller
// contract violation: size cardsPerPlayer with CardsPerPlayerForRound.
func (r *Round) DealCards(cardsPerPlayer int) map[string][]Card {
	hands := make(map[string][]Card, len(r.playerIDs))
	working := r.deck
	for _, id := range r.playerIDs {
		var dealt []Card
		dealt, working = Deal(working, cardsPerPlayer)
		up := make([]Card, len(dealt))
		for i, c := range dealt {
			c.FaceUp = true
			up[i] = c
		}
		hands[id] = up
	}
	r.deck = working
	r.hands = hands
	if len(r.deck) > 0 {
		r.deck[0].FaceUp = true
	}
	return hands
}

// TrumpCard returns the face-up trump indicator, or ok=false when the stock
// is exhausted and the round has no trump.
func (r *Round) TrumpCard() (Card, bool) {
	if len(r.deck) == 0 {
		return Card{}, false
	}
	return r.deck[0], true
}

// TrumpSuit returns the trump suit for the round, or the empty suit when
// there is none.
func (r *Round) TrumpSuit() Suit {
	c, ok := r.TrumpCard()
	if !ok {
		return ""
	}
	return c.Suit
}

// Hand returns the cards dealt to playerID this round.
func (r *Round) Hand(playerID string) []Card { return r.hands[playerID] }

// IsRoundComplete reports whether every dealt hand is empty.
func (r *Round) IsRoundComplete() bool {
	for _, hand := range r.hands {
		if len(hand) > 0 {
			return false
		}
	}
	return true
}

// ShouldContinueGame reports whether another round can be dealt: the game
// ends after round 13 or when the next round's hand size would be 0.
func (r *Round) ShouldContinueGame() bool {
	if r.number >= MaxRounds {
		return false
	}
	return CardsPerPlayerForRound(r.number+1) > 0
}

// PrepareNextRound installs a freshly shuffled deck, clears the dealt
// hands and advances the round number. It returns the new round number and
// its hand size.
func (r *Round) PrepareNextRound(newDeck []Card) (round, cardsPerPlayer int) {
	r.deck = newDeck
	r.hands = make(map[string][]Card)
	r.number++
	return r.number, r.CardsPerPlayer()
}
