package game

import (
	"github.com/sirupsen/logrus"

	"github.com/arno-o/oh-hell/engine"
)

// Deal starts the game: the host shuffles, deals round 1, and publishes
// the opening state. Later rounds are dealt by ContinueAfterSummary.
func (s *Session) Deal() error {
	if !s.st.IsHost() {
		return ErrNotHost
	}
	if s.doc.DealID() > 0 {
		return ErrAlreadyDealt
	}

	s.ensureHostID()
	s.round = engine.NewRound(engine.Shuffle(engine.NewDeck(), s.rng), s.turnOrderIDs())
	s.dealRound()
	return nil
}

// dealRound publishes one round's worth of state. Write order matters:
// hands, trump, and orders go out first, and dealId is bumped last, so a
// reader observing the new dealId is guaranteed to be past the
// transition. biddingPhase opens only after the grace window, giving
// replication (and deal animations on clients) time to settle.
func (s *Session) dealRound() {
	order := s.turnOrderIDs()
	s.round.SetPlayers(order)

	cardsPerPlayer := engine.CardsPerPlayerForRound(s.round.Number())
	if cardsPerPlayer == 0 {
		s.doc.set(keyGameOver, true)
		return
	}

	hands := s.round.DealCards(cardsPerPlayer)
	for _, id := range order {
		s.doc.SetHand(id, hands[id])
		s.doc.ClearBid(id)
		s.doc.SetTricksWon(id, 0)
	}
	s.doc.bump(keyBidsVersion)

	s.doc.set(keyRound, s.round.Number())
	s.doc.set(keyCardsPerPlayer, cardsPerPlayer)
	s.doc.set(keyTrumpSuit, s.round.TrumpSuit())
	if trump, ok := s.round.TrumpCard(); ok {
		s.doc.set(keyTrumpCard, trump)
	} else {
		s.doc.set(keyTrumpCard, nil)
	}

	hostID := s.st.MyID()
	s.doc.set(keyTurnOrder, order)
	s.doc.set(keyTurnIndex, 0)
	s.doc.set(keyCurrentTurnPlayerID, hostID)
	s.doc.set(keyBiddingOrder, order)
	s.doc.set(keyBiddingIndex, 0)
	s.doc.set(keyCurrentBidPlayerID, hostID)
	s.doc.set(keyBiddingPhase, false)

	s.doc.bump(keyDealID)

	s.log.WithFields(logrus.Fields{
		"round":          s.round.Number(),
		"cardsPerPlayer": cardsPerPlayer,
		"trump":          s.round.TrumpSuit(),
	}).Info("round dealt")

	s.after(s.cfg.DealGraceDelay, func() {
		s.doc.set(keyBiddingPhase, true)
	})
}

// ensureRound rebuilds the engine round on a host promoted mid-game. The
// replicated document stays the source of truth for the hands in play;
// the rebuilt round only needs the right number and a fresh deck so the
// cadence continues where the previous host left it.
func (s *Session) ensureRound() {
	if s.round != nil {
		return
	}
	current := s.doc.Round()
	if current == 0 {
		return
	}
	s.round = engine.NewRound(engine.Shuffle(engine.NewDeck(), s.rng), s.turnOrderIDs())
	for s.round.Number() < current {
		s.round.PrepareNextRound(engine.Shuffle(engine.NewDeck(), s.rng))
	}
	s.log.WithField("round", current).Info("rebuilt round state after host change")
}

// startNextRound reshuffles and re-enters dealing, or ends the game when
// the cadence has run out.
func (s *Session) startNextRound() {
	s.ensureRound()
	if s.round == nil || !s.round.ShouldContinueGame() {
		s.doc.set(keyGameOver, true)
		s.log.Info("game over, all rounds completed")
		return
	}
	s.round.PrepareNextRound(engine.Shuffle(engine.NewDeck(), s.rng))
	s.dealRound()
}
