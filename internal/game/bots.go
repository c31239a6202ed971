package game

import (
	"time"

	"github.com/arno-o/oh-hell/engine"
)

// updateBots runs the bot policy for every synthetic seat, host side
// only. Each bot is gated by a jittered readiness deadline and an
// in-flight latch, so a table of bots never fires in one synchronous
// burst, and a bot never has two actions pending at once. Bot actions go
// through the same mutation paths as human ones.
func (s *Session) updateBots() {
	now := s.clock.Now()
	biddingPhase := s.doc.BiddingPhase()
	currentBidder := s.doc.CurrentBidPlayerID()
	currentTurn := s.doc.CurrentTurnPlayerID()
	trick := s.doc.TrickCards()
	trump := s.doc.TrumpSuit()
	round := s.doc.Round()
	seats := len(s.members.Participants())

	for id, policy := range s.bots {
		if biddingPhase && id == currentBidder {
			if _, already := s.doc.Bid(id); already {
				continue
			}
			if !s.botReady(id, now) || s.botBusy[id] {
				continue
			}

			s.botBusy[id] = true
			s.after(s.cfg.BotBidDelay, func() {
				hand := s.doc.Hand(id)
				s.submitBidFor(id, policy.DecideBid(hand, trump, round))
				s.scheduleNextBotAction(id)
				s.botBusy[id] = false
			})
			continue
		}

		if !biddingPhase && id == currentTurn {
			if !s.botReady(id, now) || s.botBusy[id] {
				continue
			}
			if alreadyPlayed(trick, id) {
				continue
			}

			hand := s.doc.Hand(id)
			if len(hand) == 0 {
				continue
			}

			bid, _ := s.doc.Bid(id)
			chosen, ok := policy.ChooseCard(hand, trick, trump, seats, bid, s.doc.TricksWon(id))
			if !ok {
				continue
			}

			s.botBusy[id] = true
			s.after(s.cfg.BotTurnDelay, func() {
				s.playCardFor(id, chosen)
				s.scheduleNextBotAction(id)
				s.botBusy[id] = false
			})
		}
	}
}

func (s *Session) botReady(id string, now time.Time) bool {
	readyAt, ok := s.botReadyAt[id]
	return !ok || !now.Before(readyAt)
}

// scheduleNextBotAction pushes the bot's next readiness out by the base
// delay plus a random slice of the jitter window.
func (s *Session) scheduleNextBotAction(id string) {
	jitter := time.Duration(0)
	if s.cfg.BotJitter > 0 {
		jitter = time.Duration(s.rng.Int63n(int64(s.cfg.BotJitter)))
	}
	s.botReadyAt[id] = s.clock.Now().Add(s.cfg.BotBaseDelay + jitter)
}

func alreadyPlayed(trick []engine.Play, id string) bool {
	for _, p := range trick {
		if p.PlayerID == id {
			return true
		}
	}
	return false
}
