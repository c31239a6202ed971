package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arno-o/oh-hell/engine"
	"github.com/arno-o/oh-hell/internal/config"
	"github.com/arno-o/oh-hell/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

// newSessionFor builds a session over a Memory view with a fake clock and
// a fixed seed.
func newSessionFor(client *store.MemoryClient, clk *fakeClock, events *[]Event) *Session {
	opts := []Option{WithClock(clk), WithSeed(7)}
	if events != nil {
		opts = append(opts, WithEvents(func(e Event) { *events = append(*events, e) }))
	}
	return NewSession(client, client, config.Default(), opts...)
}

// openBidding deals as host and advances past the deal grace window.
func openBidding(t *testing.T, host *Session, clk *fakeClock) {
	t.Helper()
	require.NoError(t, host.Deal())
	clk.Advance(config.Default().DealGraceDelay)
	host.Tick()
	require.True(t, host.doc.BiddingPhase(), "bidding should open after the grace delay")
}

// firstPlayable returns a legal card from hand against the current trick.
func firstPlayable(t *testing.T, hand []engine.Card, trick []engine.Play) engine.Card {
	t.Helper()
	for _, c := range hand {
		if engine.Playable(c, hand, trick) {
			return c
		}
	}
	t.Fatal("no playable card in hand")
	return engine.Card{}
}

func TestDealPublishesRoundState(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")
	carol := mem.Join("Carol")
	dave := mem.Join("Dave")

	host := newSessionFor(alice, clk, nil)
	observer := newSessionFor(bob, clk, nil)

	require.ErrorIs(t, observer.Deal(), ErrNotHost)
	require.NoError(t, host.Deal())

	d := host.doc
	assert.Equal(t, 1, d.DealID())
	assert.Equal(t, 1, d.Round())
	assert.Equal(t, 7, d.getInt(keyCardsPerPlayer))
	assert.NotEmpty(t, d.TrumpSuit())
	trump, ok := d.TrumpCard()
	require.True(t, ok)
	assert.Equal(t, d.TrumpSuit(), trump.Suit, "trump suit matches the indicator card")
	assert.True(t, trump.FaceUp, "trump indicator is revealed")

	order := d.TurnOrder()
	require.Len(t, order, 4)
	assert.Equal(t, alice.MyID(), order[0], "host leads the turn order")
	assert.Equal(t, order, d.BiddingOrder())
	assert.Equal(t, alice.MyID(), d.CurrentTurnPlayerID())
	assert.Equal(t, alice.MyID(), d.CurrentBidPlayerID())

	for _, c := range []*store.MemoryClient{alice, bob, carol, dave} {
		assert.Len(t, d.Hand(c.MyID()), 7)
		assert.Equal(t, 7, d.HandCount(c.MyID()))
		_, hasBid := d.Bid(c.MyID())
		assert.False(t, hasBid, "bids reset to null on deal")
		assert.Equal(t, 0, d.TricksWon(c.MyID()))
	}

	// Cards are conserved: 4x7 dealt plus the stock.
	assert.Len(t, host.round.Remaining(), 52-28)

	// Bidding stays closed through the grace window, then opens.
	assert.False(t, d.BiddingPhase())
	host.Tick()
	assert.False(t, d.BiddingPhase())
	clk.Advance(config.Default().DealGraceDelay)
	host.Tick()
	assert.True(t, d.BiddingPhase())

	require.ErrorIs(t, host.Deal(), ErrAlreadyDealt)
}

func TestBiddingRotationAndIntent(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")

	host := newSessionFor(alice, clk, nil)
	peer := newSessionFor(bob, clk, nil)

	openBidding(t, host, clk)

	host.SubmitBid(2)
	bid, ok := host.doc.Bid(alice.MyID())
	require.True(t, ok)
	assert.Equal(t, 2, bid)
	assert.Equal(t, bob.MyID(), host.doc.CurrentBidPlayerID(), "token passes to the next seat")

	// Bob's bid travels as an intent and lands on the host's next tick.
	peer.SubmitBid(3)
	_, ok = host.doc.Bid(bob.MyID())
	assert.False(t, ok, "bid must not apply before reconciliation")

	host.Tick()
	bid, ok = host.doc.Bid(bob.MyID())
	require.True(t, ok)
	assert.Equal(t, 3, bid)
	assert.False(t, host.doc.BiddingPhase(), "bidding closes after the last seat")
	assert.Empty(t, host.doc.CurrentBidPlayerID())

	_, pending := host.doc.PendingIntent(bob.MyID())
	assert.False(t, pending, "consumed intent slot is cleared")
}

func TestIntentIdempotence(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")

	host := newSessionFor(alice, clk, nil)
	newSessionFor(bob, clk, nil)

	openBidding(t, host, clk)
	host.SubmitBid(1)

	// Applying seq=3 once sets the bid.
	host.doc.SetPendingIntent(bob.MyID(), Intent{Type: IntentBid, Bid: 3, Seq: 3})
	host.Tick()
	bid, ok := host.doc.Bid(bob.MyID())
	require.True(t, ok)
	require.Equal(t, 3, bid)
	versionAfterFirst := host.doc.getInt(keyBidsVersion)

	// The same document value observed again is a no-op.
	host.doc.SetPendingIntent(bob.MyID(), Intent{Type: IntentBid, Bid: 3, Seq: 3})
	host.Tick()
	assert.Equal(t, versionAfterFirst, host.doc.getInt(keyBidsVersion), "duplicate seq must not re-apply")
	_, pending := host.doc.PendingIntent(bob.MyID())
	assert.False(t, pending, "duplicate intent is consumed")
}

func TestIntentOverwriteBeforeConsumption(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")

	host := newSessionFor(alice, clk, nil)
	peer := newSessionFor(bob, clk, nil)

	openBidding(t, host, clk)
	host.SubmitBid(1)

	// Two submissions before the host reconciles: the mailbox holds one
	// slot, so the second overwrites the first and only it applies.
	peer.SubmitBid(2)
	peer.SubmitBid(4)

	in, ok := host.doc.PendingIntent(bob.MyID())
	require.True(t, ok)
	assert.Equal(t, 2, in.Seq)
	assert.Equal(t, 4, in.Bid)

	host.Tick()
	bid, ok := host.doc.Bid(bob.MyID())
	require.True(t, ok)
	assert.Equal(t, 4, bid, "only the overwriting intent applies")
}

func TestOffTurnPlayIntentDropped(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")

	host := newSessionFor(alice, clk, nil)
	peer := newSessionFor(bob, clk, nil)

	openBidding(t, host, clk)
	host.SubmitBid(1)
	peer.SubmitBid(1)
	host.Tick()
	require.False(t, host.doc.BiddingPhase())
	require.Equal(t, alice.MyID(), host.doc.CurrentTurnPlayerID())

	// Bob plays while it is the host's turn.
	bobHand := host.doc.Hand(bob.MyID())
	peer.PlayCard(bobHand[0])
	host.Tick()

	assert.Empty(t, host.doc.TrickCards(), "off-turn play must not touch the trick")
	assert.Len(t, host.doc.Hand(bob.MyID()), 7, "off-turn play must not touch the hand")
	_, pending := host.doc.PendingIntent(bob.MyID())
	assert.False(t, pending, "dropped intent is still consumed")
}

func TestTrickResolutionAndInvariant(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")

	host := newSessionFor(alice, clk, nil)
	peer := newSessionFor(bob, clk, nil)

	openBidding(t, host, clk)
	host.SubmitBid(1)
	peer.SubmitBid(1)
	host.Tick()

	hostCard := firstPlayable(t, host.doc.Hand(alice.MyID()), nil)
	host.PlayCard(hostCard)
	require.Len(t, host.doc.TrickCards(), 1)
	assert.Equal(t, bob.MyID(), host.doc.CurrentTurnPlayerID())

	bobHand := host.doc.Hand(bob.MyID())
	peer.PlayCard(firstPlayable(t, bobHand, host.doc.TrickCards()))
	host.Tick()

	trick := host.doc.TrickCards()
	require.Len(t, trick, 2, "completed trick stays visible through the settle window")
	assert.LessOrEqual(t, len(trick), 2)

	winnerID := host.doc.getString(keyTrickWinnerID)
	require.NotEmpty(t, winnerID)
	assert.Equal(t, 1, host.doc.getInt(keyTrickWinVersion))
	assert.Equal(t, engine.DetermineTrickWinner(trick, host.doc.TrumpSuit()), winnerID)

	trickVersion := host.doc.getInt(keyTrickVersion)
	clk.Advance(config.Default().TrickSettleDelay)
	host.Tick()

	assert.Empty(t, host.doc.TrickCards(), "trick clears after the settle delay")
	assert.Equal(t, trickVersion+1, host.doc.getInt(keyTrickVersion))
	assert.Equal(t, 1, host.doc.TricksWon(winnerID))
	assert.Equal(t, winnerID, host.doc.CurrentTurnPlayerID(), "winner leads the next trick")
}

// TestFullRoundEndToEnd plays round 1 to completion at a four-seat table
// of the host plus three bots and checks the score accounting.
func TestFullRoundEndToEnd(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	for _, name := range []string{"Bot 2", "Bot 3", "Bot 4"} {
		_, err := alice.AddBot(name)
		require.NoError(t, err)
	}

	var events []Event
	host := newSessionFor(alice, clk, &events)
	hostID := alice.MyID()

	require.NoError(t, host.Deal())

	for i := 0; i < 5000 && !host.doc.RoundSummaryOpen(); i++ {
		clk.Advance(100 * time.Millisecond)

		if host.doc.BiddingPhase() && host.doc.CurrentBidPlayerID() == hostID {
			if _, ok := host.doc.Bid(hostID); !ok {
				host.SubmitBid(2)
			}
		}
		if !host.doc.BiddingPhase() && host.doc.CurrentTurnPlayerID() == hostID {
			hand := host.doc.Hand(hostID)
			trick := host.doc.TrickCards()
			if len(hand) > 0 && !alreadyPlayed(trick, hostID) && len(trick) < 4 {
				host.PlayCard(firstPlayable(t, hand, trick))
			}
		}

		host.Tick()
	}

	require.True(t, host.doc.RoundSummaryOpen(), "round did not finish")

	summary, ok := host.doc.RoundSummary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Round)
	require.Len(t, summary.Results, 4)

	totalTricks := 0
	for _, row := range summary.Results {
		totalTricks += row.Tricks
		want := row.Tricks
		if row.Tricks == row.Bid {
			want += 10
		}
		assert.Equal(t, want, row.Points, "points formula for %s", row.PlayerName)
		assert.Equal(t, row.Points, host.doc.Score(row.PlayerID), "score accumulates from zero in round 1")
		assert.Equal(t, 0, host.doc.HandCount(row.PlayerID))
	}
	assert.Equal(t, 7, totalTricks, "seven tricks in a seven-card round")

	host.Tick()
	assert.Contains(t, eventMessages(events), "Round 1 over")

	// Continuing deals round 2 with six cards.
	require.NoError(t, host.ContinueAfterSummary())
	assert.Equal(t, 2, host.doc.Round())
	assert.Equal(t, 6, host.doc.getInt(keyCardsPerPlayer))
	assert.Equal(t, 2, host.doc.DealID())
	assert.False(t, host.doc.RoundSummaryOpen())
	host.Tick()
	assert.Contains(t, eventMessages(events), "Round 2 begins")
}

func eventMessages(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Message)
	}
	return out
}

func TestHostChangeEventFiresOnce(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")

	var hostEvents, peerEvents []Event
	host := newSessionFor(alice, clk, &hostEvents)
	peer := newSessionFor(bob, clk, &peerEvents)

	host.Tick()
	peer.Tick()
	require.Equal(t, alice.MyID(), peer.doc.HostID())

	alice.Leave()
	require.True(t, bob.IsHost(), "surviving human is promoted")

	for i := 0; i < 5; i++ {
		clk.Advance(100 * time.Millisecond)
		peer.Tick()
	}

	assert.Equal(t, bob.MyID(), peer.doc.HostID(), "new host republishes hostId")

	changes := 0
	for _, e := range peerEvents {
		if e.Kind == EventHostChanged {
			changes++
			assert.Equal(t, "Host left. New host is Bob", e.Message)
		}
	}
	assert.Equal(t, 1, changes, "host change announced exactly once")
}

// TestPromotedHostContinuesAfterSummary covers the host leaving between
// rounds: the promoted host has no engine round of its own and must
// rebuild one from the document before dealing round 2.
func TestPromotedHostContinuesAfterSummary(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")

	host := newSessionFor(alice, clk, nil)
	peer := newSessionFor(bob, clk, nil)

	require.NoError(t, host.Deal())
	host.openRoundSummary()
	require.True(t, host.doc.RoundSummaryOpen())

	alice.Leave()
	require.True(t, bob.IsHost(), "surviving human is promoted")
	for i := 0; i < 3; i++ {
		clk.Advance(100 * time.Millisecond)
		peer.Tick()
	}

	require.NoError(t, peer.ContinueAfterSummary())
	assert.False(t, peer.doc.GameOver(), "handoff must not end the game")
	assert.Equal(t, 2, peer.doc.Round())
	assert.Equal(t, 6, peer.doc.getInt(keyCardsPerPlayer))
	assert.Equal(t, 2, peer.doc.DealID())
	assert.Equal(t, bob.MyID(), peer.doc.CurrentTurnPlayerID(), "new host anchors the turn order")
	assert.Len(t, peer.doc.Hand(bob.MyID()), 6)
}

// TestBotBidPacedByBidDelay pins the bot bid cadence: one bid delay for
// the token grant, one more for the bot's own deliberation.
func TestBotBidPacedByBidDelay(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	host := newSessionFor(alice, clk, nil)
	botP, err := alice.AddBot("Bot 2")
	require.NoError(t, err)

	openBidding(t, host, clk)
	host.SubmitBid(1)

	// The token grant lands one bid delay after the host's bid.
	clk.Advance(config.Default().BotBidDelay)
	host.Tick()
	require.Equal(t, botP.ID, host.doc.CurrentBidPlayerID())
	_, ok := host.doc.Bid(botP.ID)
	require.False(t, ok, "bot must not bid in the grant tick")

	// The bot's deliberation uses the same pacing, not the play delay.
	clk.Advance(config.Default().BotBidDelay)
	host.Tick()
	_, ok = host.doc.Bid(botP.ID)
	assert.True(t, ok, "bot bid lands one bid delay after the grant")
}

func TestMembershipEventsAndBotBackfill(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")

	var events []Event
	host := newSessionFor(alice, clk, &events)

	bob := mem.Join("Bob")
	host.Tick()
	assert.Contains(t, eventMessages(events), "Bob joined")

	bob.Leave()
	host.Tick()
	assert.Contains(t, eventMessages(events), "Bob left")

	// The empty seats refill with bots up to the table size.
	participants := alice.Participants()
	assert.Len(t, participants, config.Default().MaxSeats)
	bots := 0
	for _, p := range participants {
		if p.Bot {
			bots++
			assert.Equal(t, 0, host.doc.Score(p.ID))
		}
	}
	assert.Equal(t, config.Default().MaxSeats-1, bots)
}

func TestScoreInitializedAtJoin(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	bob := mem.Join("Bob")

	host := newSessionFor(alice, clk, nil)
	require.NotNil(t, host)

	assert.True(t, host.doc.HasScore(alice.MyID()))
	assert.True(t, host.doc.HasScore(bob.MyID()))
	assert.Equal(t, 0, host.doc.Score(bob.MyID()))

	// A score surviving from earlier play is not reset.
	host.doc.SetScore(bob.MyID(), 23)
	host.registerParticipant(store.Participant{ID: bob.MyID(), Name: "Bob"})
	assert.Equal(t, 23, host.doc.Score(bob.MyID()))
}

func TestGameOverAfterFinalRound(t *testing.T) {
	mem := store.NewMemory()
	clk := newFakeClock()
	alice := mem.Join("Alice")
	mem.Join("Bob")

	var events []Event
	host := newSessionFor(alice, clk, &events)
	require.NoError(t, host.Deal())

	for host.round.Number() < engine.MaxRounds {
		host.round.PrepareNextRound(engine.NewDeck())
	}
	host.startNextRound()

	assert.True(t, host.doc.GameOver())
	host.Tick()
	assert.Contains(t, eventMessages(events), "Game over")

	// Terminal: a second pass does not re-announce.
	host.Tick()
	count := 0
	for _, e := range events {
		if e.Kind == EventGameOver {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
