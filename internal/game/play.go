package game

import (
	"github.com/sirupsen/logrus"

	"github.com/arno-o/oh-hell/engine"
)

// playCardFor plays card for the player currently on turn. The guards
// mirror the bid path: wrong turn holder, unknown card, and suit
// violations are silent drops, since a reconciled intent may be stale.
func (s *Session) playCardFor(id string, card engine.Card) {
	if s.doc.BiddingPhase() {
		s.log.WithField("player", id).Debug("play during bidding dropped")
		return
	}
	if s.doc.CurrentTurnPlayerID() != id {
		s.log.WithField("player", id).Debug("off-turn play dropped")
		return
	}

	hand := s.doc.Hand(id)
	idx := -1
	for i, c := range hand {
		if c.Equal(card) {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.log.WithFields(logrus.Fields{"player": id, "card": card.Name()}).Debug("play of unheld card dropped")
		return
	}

	trick := s.doc.TrickCards()
	if len(trick) >= len(s.members.Participants()) || alreadyPlayed(trick, id) {
		s.log.WithField("player", id).Debug("play into settled trick dropped")
		return
	}
	if !engine.Playable(card, hand, trick) {
		s.log.WithFields(logrus.Fields{"player": id, "card": card.Name()}).Debug("suit violation dropped")
		return
	}

	hand = append(hand[:idx], hand[idx+1:]...)
	s.doc.SetHand(id, hand)

	trick = append(trick, engine.Play{PlayerID: id, Card: card})
	s.doc.set(keyTrickCards, trick)
	s.doc.bump(keyTrickVersion)

	if len(trick) < len(s.members.Participants()) {
		s.advanceTurn()
		return
	}
	s.resolveTrick(trick)
}

// advanceTurn moves the turn token circularly through turnOrder. Like the
// bid token, a handover to a bot is slightly deferred.
func (s *Session) advanceTurn() {
	order := s.doc.TurnOrder()
	if len(order) == 0 {
		return
	}
	next := (s.doc.TurnIndex() + 1) % len(order)
	nextID := order[next]

	grant := func() {
		s.doc.set(keyTurnIndex, next)
		s.doc.set(keyCurrentTurnPlayerID, nextID)
	}
	if s.isBot(nextID) {
		s.after(s.cfg.BotTurnDelay, grant)
	} else {
		grant()
	}
}

// resolveTrick publishes the winner immediately, then after the settle
// delay clears the trick, credits the winner, and re-anchors the turn at
// the winner's seat. The settle callback always fires once scheduled;
// there is no way to retract a completed trick.
func (s *Session) resolveTrick(trick []engine.Play) {
	winnerID := engine.DetermineTrickWinner(trick, s.doc.TrumpSuit())

	s.doc.set(keyTrickWinnerID, winnerID)
	s.doc.bump(keyTrickWinVersion)
	s.log.WithField("winner", winnerID).Info("trick resolved")

	s.after(s.cfg.TrickSettleDelay, func() {
		s.doc.set(keyTrickCards, []engine.Play{})
		s.doc.bump(keyTrickVersion)

		s.doc.SetTricksWon(winnerID, s.doc.TricksWon(winnerID)+1)

		order := s.doc.TurnOrder()
		for i, id := range order {
			if id == winnerID {
				s.doc.set(keyTurnIndex, i)
				break
			}
		}
		s.doc.set(keyCurrentTurnPlayerID, winnerID)

		if s.isRoundComplete() {
			s.after(s.cfg.SummaryDelay, s.openRoundSummary)
		}
	})
}

// isRoundComplete reads replicated hand counts, not the engine's local
// copy: once dealt, the document is the live source of truth for hands.
func (s *Session) isRoundComplete() bool {
	for _, p := range s.members.Participants() {
		if s.doc.HandCount(p.ID) != 0 {
			return false
		}
	}
	return true
}
