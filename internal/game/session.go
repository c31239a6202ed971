// Package game runs one participant's view of an Oh Hell game over a
// replicated key-value document. A single host participant owns every
// authoritative write; everyone else reads the document and submits
// sequence-numbered intents. An external timer drives Tick at a fixed
// period; all waits are deferred callbacks on that timeline, never
// blocking calls.
package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arno-o/oh-hell/engine"
	"github.com/arno-o/oh-hell/internal/bot"
	"github.com/arno-o/oh-hell/internal/config"
	"github.com/arno-o/oh-hell/internal/store"
)

// ErrNotHost is returned by host-only operations invoked elsewhere.
var ErrNotHost = errors.New("game: not the host")

// ErrAlreadyDealt is returned by Deal once the first deal has happened;
// later rounds are dealt through ContinueAfterSummary.
var ErrAlreadyDealt = errors.New("game: already dealt")

// Clock abstracts time for the deferred-callback queue so tests can drive
// the timeline directly.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// EventKind names an observable game event.
type EventKind string

const (
	EventPlayerJoined EventKind = "playerJoined"
	EventPlayerLeft   EventKind = "playerLeft"
	EventHostChanged  EventKind = "hostChanged"
	EventRoundBegan   EventKind = "roundBegan"
	EventRoundOver    EventKind = "roundOver"
	EventGameOver     EventKind = "gameOver"
)

// Event is delivered to the embedding client for toasts and logs.
type Event struct {
	Kind     EventKind
	Message  string
	PlayerID string
}

// EventFunc receives events synchronously during Tick.
type EventFunc func(Event)

type deferredCall struct {
	at time.Time
	fn func()
}

// Session is one participant's handle on a running game. All methods must
// be called from the same goroutine as Tick; the session does no internal
// locking.
type Session struct {
	st      store.Store
	members store.Membership
	cfg     config.Config
	log     *logrus.Entry
	clock   Clock
	events  EventFunc
	rng     *rand.Rand

	doc   *doc
	round *engine.Round

	localSeq    int
	lastApplied map[string]int

	bots       map[string]*bot.Policy
	botBusy    map[string]bool
	botReadyAt map[string]time.Time

	deferred []deferredCall

	// alert latches, compared against the document each tick
	knownNames      map[string]string
	knownIDs        map[string]bool
	lastHostID      string
	hostInitialized bool
	lastRound       int
	lastSummaryOpen bool
	lastGameOver    bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger routes session logs through log.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Session) { s.log = log.WithField("player", s.st.MyID()) }
}

// WithClock substitutes the deferred-callback clock.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithEvents registers the event sink.
func WithEvents(fn EventFunc) Option {
	return func(s *Session) { s.events = fn }
}

// WithSeed fixes the shuffle and bot randomness for reproducible games.
func WithSeed(seed int64) Option {
	return func(s *Session) { s.rng = rand.New(rand.NewSource(seed)) }
}

// NewSession joins a game over the given store and membership oracle.
func NewSession(st store.Store, members store.Membership, cfg config.Config, opts ...Option) *Session {
	s := &Session{
		st:          st,
		members:     members,
		cfg:         cfg,
		log:         logrus.StandardLogger().WithField("player", st.MyID()),
		clock:       realClock{},
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		lastApplied: make(map[string]int),
		bots:        make(map[string]*bot.Policy),
		botBusy:     make(map[string]bool),
		botReadyAt:  make(map[string]time.Time),
		knownNames:  make(map[string]string),
		knownIDs:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.doc = &doc{st: st, log: s.log}

	for _, p := range members.Participants() {
		s.registerParticipant(p)
		s.knownIDs[p.ID] = true
	}
	members.OnJoin(func(p store.Participant) {
		s.registerParticipant(p)
	})

	s.lastHostID = s.doc.HostID()
	s.hostInitialized = s.lastHostID != ""
	s.lastRound = s.doc.Round()
	return s
}

// registerParticipant initializes host-side bookkeeping for a member.
// Scores persist across rounds, so only a missing score is set.
func (s *Session) registerParticipant(p store.Participant) {
	if s.st.IsHost() && !s.doc.HasScore(p.ID) {
		s.doc.SetScore(p.ID, 0)
	}
	if p.Bot {
		if _, ok := s.bots[p.ID]; !ok {
			s.bots[p.ID] = bot.NewPolicy(s.rng.Int63n(1_000_000))
		}
	}
}

// after schedules fn on the poll timeline. There is no cancellation: once
// scheduled, fn fires on the first Tick at or past the deadline.
func (s *Session) after(d time.Duration, fn func()) {
	s.deferred = append(s.deferred, deferredCall{at: s.clock.Now().Add(d), fn: fn})
}

// runDeferred fires every due callback. The due set is snapshotted first
// so a callback scheduling a new wait never runs it in the same drain.
func (s *Session) runDeferred() {
	now := s.clock.Now()
	var due []func()
	rest := s.deferred[:0]
	for _, c := range s.deferred {
		if !c.at.After(now) {
			due = append(due, c.fn)
		} else {
			rest = append(rest, c)
		}
	}
	s.deferred = rest
	for _, fn := range due {
		fn()
	}
}

// Tick advances the session. The embedding client calls it on a fixed
// period. Order is fixed: deferred callbacks, then (host only) intent
// reconciliation and bot policy, then membership and continuity checks.
// An intent applied this tick is visible to the bot step in the same
// tick, and is never un-applied.
func (s *Session) Tick() {
	s.runDeferred()

	if s.st.IsHost() {
		s.reconcileIntents()
		s.updateBots()
		s.ensureHostID()
	}

	s.checkMembership()
	s.checkHostChange()
	s.checkRoundAlerts()
	s.checkGameOver()
}

func (s *Session) emit(kind EventKind, msg, playerID string) {
	if s.events != nil {
		s.events(Event{Kind: kind, Message: msg, PlayerID: playerID})
	}
}

// SubmitBid places this participant's bid. The host applies it directly;
// everyone else files an intent. Illegal bids (not this player's bid
// turn, already bid, out of range) are silently dropped when the host
// reconciles them.
func (s *Session) SubmitBid(bid int) {
	if s.st.IsHost() {
		s.submitBidFor(s.st.MyID(), bid)
		return
	}
	s.queueIntent(Intent{Type: IntentBid, Bid: bid})
}

// PlayCard plays a card from this participant's hand, via intent when not
// host. Illegal plays are silently dropped at reconciliation.
func (s *Session) PlayCard(card engine.Card) {
	if s.st.IsHost() {
		s.playCardFor(s.st.MyID(), card)
		return
	}
	s.queueIntent(Intent{Type: IntentPlayCard, Card: &card})
}
