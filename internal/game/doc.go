package game

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/arno-o/oh-hell/engine"
	"github.com/arno-o/oh-hell/internal/store"
)

// Document key names. Every participant reads these; only the host writes
// them. Per-player fields live under players/<id>/.
const (
	keyDealID              = "dealId"
	keyRound               = "round"
	keyCardsPerPlayer      = "cardsPerPlayer"
	keyTrumpSuit           = "trumpSuit"
	keyTrumpCard           = "trumpCard"
	keyTurnOrder           = "turnOrder"
	keyTurnIndex           = "turnIndex"
	keyCurrentTurnPlayerID = "currentTurnPlayerId"
	keyBiddingOrder        = "biddingOrder"
	keyBiddingIndex        = "biddingIndex"
	keyCurrentBidPlayerID  = "currentBidPlayerId"
	keyBiddingPhase        = "biddingPhase"
	keyBidsVersion         = "bidsVersion"
	keyTrickCards          = "trickCards"
	keyTrickVersion        = "trickVersion"
	keyTrickWinnerID       = "trickWinnerId"
	keyTrickWinVersion     = "trickWinVersion"
	keyRoundSummary        = "roundSummary"
	keyRoundSummaryOpen    = "roundSummaryOpen"
	keyRoundSummaryVersion = "roundSummaryVersion"
	keyHostID              = "hostId"
	keyGameOver            = "gameOver"
)

func playerKey(id, field string) string {
	return "players/" + id + "/" + field
}

// doc wraps a Store with typed accessors over the replicated document.
// Getters return zero values on missing or garbled keys: transient reads
// during replication catch-up are expected and must not fail hard. Readers
// wanting a consistent multi-key view gate on the version counters.
type doc struct {
	st  store.Store
	log *logrus.Entry
}

func (d *doc) get(key string, out any) bool {
	raw, ok := d.st.Get(key)
	if !ok || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		d.log.WithError(err).WithField("key", key).Warn("garbled document value")
		return false
	}
	return true
}

func (d *doc) set(key string, value any) {
	if err := d.st.Set(key, value); err != nil {
		d.log.WithError(err).WithField("key", key).Error("document write failed")
	}
}

func (d *doc) getInt(key string) int {
	var n int
	d.get(key, &n)
	return n
}

func (d *doc) getString(key string) string {
	var s string
	d.get(key, &s)
	return s
}

func (d *doc) getBool(key string) bool {
	var b bool
	d.get(key, &b)
	return b
}

func (d *doc) getStrings(key string) []string {
	var out []string
	d.get(key, &out)
	return out
}

// bump increments a version counter.
func (d *doc) bump(key string) {
	d.set(key, d.getInt(key)+1)
}

func (d *doc) DealID() int        { return d.getInt(keyDealID) }
func (d *doc) Round() int         { return d.getInt(keyRound) }
func (d *doc) HostID() string     { return d.getString(keyHostID) }
func (d *doc) GameOver() bool     { return d.getBool(keyGameOver) }
func (d *doc) BiddingPhase() bool { return d.getBool(keyBiddingPhase) }

func (d *doc) TrumpSuit() engine.Suit {
	return engine.Suit(d.getString(keyTrumpSuit))
}

func (d *doc) TrumpCard() (engine.Card, bool) {
	var c engine.Card
	ok := d.get(keyTrumpCard, &c)
	return c, ok
}

func (d *doc) TurnOrder() []string    { return d.getStrings(keyTurnOrder) }
func (d *doc) TurnIndex() int         { return d.getInt(keyTurnIndex) }
func (d *doc) BiddingOrder() []string { return d.getStrings(keyBiddingOrder) }
func (d *doc) BiddingIndex() int      { return d.getInt(keyBiddingIndex) }

func (d *doc) CurrentTurnPlayerID() string { return d.getString(keyCurrentTurnPlayerID) }
func (d *doc) CurrentBidPlayerID() string  { return d.getString(keyCurrentBidPlayerID) }

func (d *doc) TrickCards() []engine.Play {
	var trick []engine.Play
	d.get(keyTrickCards, &trick)
	return trick
}

func (d *doc) Hand(id string) []engine.Card {
	var hand []engine.Card
	d.get(playerKey(id, "hand"), &hand)
	return hand
}

func (d *doc) SetHand(id string, hand []engine.Card) {
	if hand == nil {
		hand = []engine.Card{}
	}
	d.set(playerKey(id, "hand"), hand)
	d.set(playerKey(id, "handCount"), len(hand))
}

func (d *doc) HandCount(id string) int {
	return d.getInt(playerKey(id, "handCount"))
}

// Bid returns the player's bid and whether one has been placed this round.
func (d *doc) Bid(id string) (int, bool) {
	var bid int
	ok := d.get(playerKey(id, "bid"), &bid)
	return bid, ok
}

func (d *doc) SetBid(id string, bid int) {
	d.set(playerKey(id, "bid"), bid)
}

func (d *doc) ClearBid(id string) {
	d.set(playerKey(id, "bid"), nil)
}

func (d *doc) Score(id string) int {
	return d.getInt(playerKey(id, "score"))
}

func (d *doc) SetScore(id string, score int) {
	d.set(playerKey(id, "score"), score)
}

func (d *doc) HasScore(id string) bool {
	var n int
	return d.get(playerKey(id, "score"), &n)
}

func (d *doc) TricksWon(id string) int {
	return d.getInt(playerKey(id, "tricksWon"))
}

func (d *doc) SetTricksWon(id string, n int) {
	d.set(playerKey(id, "tricksWon"), n)
}

func (d *doc) PendingIntent(id string) (Intent, bool) {
	var in Intent
	ok := d.get(playerKey(id, "pendingAction"), &in)
	return in, ok
}

func (d *doc) SetPendingIntent(id string, in Intent) {
	d.set(playerKey(id, "pendingAction"), in)
}

func (d *doc) ClearPendingIntent(id string) {
	d.set(playerKey(id, "pendingAction"), nil)
}

func (d *doc) RoundSummary() (RoundSummary, bool) {
	var s RoundSummary
	ok := d.get(keyRoundSummary, &s)
	return s, ok
}

func (d *doc) RoundSummaryOpen() bool {
	return d.getBool(keyRoundSummaryOpen)
}
