package game

import "github.com/sirupsen/logrus"

// submitBidFor records a bid for the player currently holding the bid
// token and advances the bidding rotation. Every guard failure is a
// silent drop: by the time the host reconciles an intent the rotation may
// have moved on, and that is not the bidder's error.
func (s *Session) submitBidFor(id string, bid int) {
	if !s.doc.BiddingPhase() {
		s.log.WithField("player", id).Debug("bid outside bidding phase dropped")
		return
	}
	if s.doc.CurrentBidPlayerID() != id {
		s.log.WithField("player", id).Debug("off-turn bid dropped")
		return
	}
	if _, already := s.doc.Bid(id); already {
		s.log.WithField("player", id).Debug("repeat bid dropped")
		return
	}
	if bid < 0 || bid > s.doc.HandCount(id) {
		s.log.WithFields(logrus.Fields{"player": id, "bid": bid}).Debug("out-of-range bid dropped")
		return
	}

	s.doc.SetBid(id, bid)
	s.doc.bump(keyBidsVersion)
	s.advanceBidding()
}

// advanceBidding moves the bid token to the next seat, or closes the
// bidding phase after the last seat. Handing the token to a bot is
// deferred briefly so bids do not land in a single burst.
func (s *Session) advanceBidding() {
	order := s.doc.BiddingOrder()
	next := s.doc.BiddingIndex() + 1

	if next >= len(order) {
		s.doc.set(keyBiddingPhase, false)
		s.doc.set(keyCurrentBidPlayerID, nil)
		return
	}

	nextID := order[next]
	grant := func() {
		s.doc.set(keyBiddingIndex, next)
		s.doc.set(keyCurrentBidPlayerID, nextID)
	}
	if s.isBot(nextID) {
		s.after(s.cfg.BotBidDelay, grant)
	} else {
		grant()
	}
}

func (s *Session) isBot(id string) bool {
	_, ok := s.bots[id]
	return ok
}
