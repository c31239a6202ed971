package game

import (
	"github.com/sirupsen/logrus"

	"github.com/arno-o/oh-hell/engine"
)

// Intent types.
const (
	IntentBid      = "bid"
	IntentPlayCard = "playCard"
)

// Intent is a sequence-numbered action request written by a non-host
// participant to its own pendingAction slot. The slot holds at most one
// intent; a newer submission overwrites an unconsumed older one, so a
// rapid double submission before the host reconciles delivers only the
// second action.
type Intent struct {
	Type string       `json:"type"`
	Bid  int          `json:"bid,omitempty"`
	Card *engine.Card `json:"card,omitempty"`
	Seq  int          `json:"seq"`
}

// queueIntent stamps the next local sequence number on in and writes it to
// this participant's mailbox.
func (s *Session) queueIntent(in Intent) {
	s.localSeq++
	in.Seq = s.localSeq
	s.doc.SetPendingIntent(s.st.MyID(), in)
}

// reconcileIntents applies at most one pending intent per player, exactly
// once per sequence number. A seq at or below the last applied one is a
// stale redelivery: the slot is cleared and nothing else happens. Fresh
// intents flow through the same mutation paths as host-local actions, so
// turn and bid guards apply identically; an intent whose guard rejects it
// is still consumed.
func (s *Session) reconcileIntents() {
	for _, p := range s.members.Participants() {
		in, ok := s.doc.PendingIntent(p.ID)
		if !ok {
			continue
		}

		if in.Seq <= s.lastApplied[p.ID] {
			s.doc.ClearPendingIntent(p.ID)
			continue
		}

		switch in.Type {
		case IntentBid:
			s.submitBidFor(p.ID, in.Bid)
		case IntentPlayCard:
			if in.Card != nil {
				s.playCardFor(p.ID, *in.Card)
			}
		default:
			s.log.WithFields(logrus.Fields{"player": p.ID, "type": in.Type}).Debug("unknown intent type dropped")
		}

		s.lastApplied[p.ID] = in.Seq
		s.doc.ClearPendingIntent(p.ID)
	}
}
