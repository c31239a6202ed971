package game

import "sort"

// SummaryRow is one player's line in the round summary.
type SummaryRow struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Bid        int    `json:"bid"`
	Tricks     int    `json:"tricks"`
	Points     int    `json:"points"`
	Total      int    `json:"total"`
}

// RoundSummary is the published end-of-round result set, sorted by round
// points, then by running total.
type RoundSummary struct {
	Round   int          `json:"round"`
	Results []SummaryRow `json:"results"`
}

// openRoundSummary scores the finished round and publishes the summary.
// Hitting the bid exactly is worth a 10 point bonus on top of one point
// per trick; scores accumulate across rounds.
func (s *Session) openRoundSummary() {
	if !s.st.IsHost() || s.doc.RoundSummaryOpen() {
		return
	}

	round := s.doc.Round()
	var results []SummaryRow
	for _, p := range s.members.Participants() {
		bid, _ := s.doc.Bid(p.ID)
		tricks := s.doc.TricksWon(p.ID)
		points := tricks
		if tricks == bid {
			points += 10
		}
		total := s.doc.Score(p.ID) + points
		s.doc.SetScore(p.ID, total)

		results = append(results, SummaryRow{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Bid:        bid,
			Tricks:     tricks,
			Points:     points,
			Total:      total,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Points != results[j].Points {
			return results[i].Points > results[j].Points
		}
		return results[i].Total > results[j].Total
	})

	s.doc.set(keyRoundSummary, RoundSummary{Round: round, Results: results})
	s.doc.set(keyRoundSummaryOpen, true)
	s.doc.bump(keyRoundSummaryVersion)
	s.log.WithField("round", round).Info("round summary published")
}

// ContinueAfterSummary closes the summary and either deals the next round
// or ends the game. Host only.
func (s *Session) ContinueAfterSummary() error {
	if !s.st.IsHost() {
		return ErrNotHost
	}
	if !s.doc.RoundSummaryOpen() {
		return nil
	}

	s.doc.set(keyRoundSummaryOpen, false)
	s.doc.set(keyRoundSummary, nil)
	s.doc.bump(keyRoundSummaryVersion)
	s.startNextRound()
	return nil
}
