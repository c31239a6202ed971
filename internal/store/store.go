// Package store abstracts the replicated shared-state channel the game is
// played over: a string-keyed, last-write-wins document plus a membership
// oracle. The game core only ever talks to these interfaces, so the
// reconciliation and phase logic can be driven against the in-memory
// implementation in tests, and against Redis or a websocket relay in real
// deployments.
package store

import (
	"encoding/json"
	"errors"
)

// ErrClosed is returned by adapters once their transport has shut down.
var ErrClosed = errors.New("store: closed")

// Store is one participant's view of the replicated document.
//
// Writes are last-write-wins per key and become eventually visible to every
// participant; there is no cross-key atomicity, so readers must gate
// multi-key transitions on version counters rather than on the presence of
// any single field. Get never blocks: adapters backed by a network
// transport serve reads from a local cache.
type Store interface {
	// Get returns the raw JSON value stored at key, or ok=false when the
	// key has never been written.
	Get(key string) (json.RawMessage, bool)

	// Set marshals value to JSON and writes it to key.
	Set(key string, value any) error

	// MyID returns this participant's id.
	MyID() string

	// IsHost reports whether this participant currently holds host
	// authority. Exactly one participant is host at any time; the
	// transport decides promotion when the host departs.
	IsHost() bool
}

// Participant describes a member of the game, human or synthetic. Bot is
// resolved once, when the participant joins, and never re-derived from the
// name.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  bool   `json:"bot"`
}

// Membership is the who-is-here oracle of the transport.
type Membership interface {
	// Participants returns the current members in join order.
	Participants() []Participant

	// OnJoin registers fn to run whenever a participant joins.
	OnJoin(fn func(Participant))

	// AddBot asks the transport to admit a synthetic participant under
	// the given display name. Only the host may add bots.
	AddBot(name string) (Participant, error)
}
