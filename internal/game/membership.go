package game

import (
	"fmt"
	"sort"
)

// turnOrderIDs derives the seating: host first, then the remaining ids in
// sorted order, so every participant computes the same table layout from
// the same membership view.
func (s *Session) turnOrderIDs() []string {
	hostID := s.st.MyID()
	var others []string
	for _, p := range s.members.Participants() {
		if p.ID != hostID {
			others = append(others, p.ID)
		}
	}
	sort.Strings(others)
	return append([]string{hostID}, others...)
}

// ensureHostID keeps the published hostId aligned with actual authority.
// After a host handoff the old id lingers in the document until the new
// host overwrites it here.
func (s *Session) ensureHostID() {
	if s.doc.HostID() != s.st.MyID() {
		s.doc.set(keyHostID, s.st.MyID())
	}
}

// checkMembership diffs the membership oracle against the last snapshot
// and emits join/leave events. When a seat empties the host backfills
// with bots up to the configured table size.
func (s *Session) checkMembership() {
	current := make(map[string]bool)
	left := false

	for _, p := range s.members.Participants() {
		current[p.ID] = true
		if !s.knownIDs[p.ID] {
			s.emit(EventPlayerJoined, fmt.Sprintf("%s joined", p.Name), p.ID)
		}
		s.knownNames[p.ID] = p.Name
	}

	for id := range s.knownIDs {
		if !current[id] {
			name := s.knownNames[id]
			if name == "" {
				name = "A player"
			}
			s.emit(EventPlayerLeft, fmt.Sprintf("%s left", name), id)
			left = true
		}
	}

	s.knownIDs = current

	if left && s.st.IsHost() {
		s.fillMissingBots()
	}
}

// fillMissingBots tops the table back up to MaxSeats with synthetic
// players.
func (s *Session) fillMissingBots() {
	missing := s.cfg.MaxSeats - len(s.members.Participants())
	for i := 0; i < missing; i++ {
		name := fmt.Sprintf("Bot %d", len(s.members.Participants())+1)
		p, err := s.members.AddBot(name)
		if err != nil {
			s.log.WithError(err).Warn("bot backfill failed")
			return
		}
		s.registerParticipant(p)
	}
}

// checkHostChange watches the published hostId and announces a handoff
// exactly once per transition. The first observed hostId only primes the
// latch; replication catch-up must not read as a handoff.
func (s *Session) checkHostChange() {
	hostID := s.doc.HostID()

	if !s.hostInitialized {
		s.lastHostID = hostID
		s.hostInitialized = hostID != ""
		return
	}

	if hostID != "" && s.lastHostID != "" && hostID != s.lastHostID {
		name := s.knownNames[hostID]
		if name == "" {
			name = "Unknown"
		}
		s.emit(EventHostChanged, fmt.Sprintf("Host left. New host is %s", name), hostID)
	}

	s.lastHostID = hostID
}

// checkRoundAlerts announces summary opening and round starts off the
// replicated state, so every participant sees them, not just the host.
func (s *Session) checkRoundAlerts() {
	round := s.doc.Round()
	summaryOpen := s.doc.RoundSummaryOpen()

	if summaryOpen && !s.lastSummaryOpen && round > 0 {
		s.emit(EventRoundOver, fmt.Sprintf("Round %d over", round), "")
	}
	if round > 0 && s.lastRound > 0 && round != s.lastRound {
		s.emit(EventRoundBegan, fmt.Sprintf("Round %d begins", round), "")
	}

	s.lastSummaryOpen = summaryOpen
	s.lastRound = round
}

func (s *Session) checkGameOver() {
	gameOver := s.doc.GameOver()
	if gameOver && !s.lastGameOver {
		s.emit(EventGameOver, "Game over", "")
	}
	s.lastGameOver = gameOver
}
