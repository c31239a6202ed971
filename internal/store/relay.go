package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// relayFrame is the wire format spoken with a dumb fan-out relay. The
// relay itself holds no game knowledge: it assigns ids, remembers the
// latest value per key, tracks who is connected, and forwards every frame
// to every other connection.
type relayFrame struct {
	Type string `json:"type"`

	// set
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`

	// join / leave
	Participant *Participant `json:"participant,omitempty"`

	// welcome
	Self     string                     `json:"self,omitempty"`
	Host     string                     `json:"host,omitempty"`
	Snapshot map[string]json.RawMessage `json:"snapshot,omitempty"`
	Members  []Participant              `json:"members,omitempty"`
}

const (
	frameHello   = "hello"
	frameWelcome = "welcome"
	frameSet     = "set"
	frameJoin    = "join"
	frameLeave   = "leave"
	frameHost    = "host"
)

// Relay replicates the document over a websocket connection to a fan-out
// relay server. Reads are served from a cache kept current by the read
// loop; writes are framed and sent to the relay, which rebroadcasts them.
type Relay struct {
	conn *websocket.Conn
	log  *logrus.Entry

	mu      sync.Mutex
	cache   map[string]json.RawMessage
	members []Participant
	selfID  string
	hostID  string
	joinFns []func(Participant)
	err     error

	done chan struct{}
}

// DialRelay connects to the relay at url, introduces itself with name, and
// waits for the welcome frame carrying the assigned id, the current host,
// and a snapshot of the document.
func DialRelay(ctx context.Context, url, name string, log *logrus.Logger) (*Relay, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	r := &Relay{
		conn:  conn,
		log:   log.WithField("relay", url),
		cache: make(map[string]json.RawMessage),
		done:  make(chan struct{}),
	}

	hello := relayFrame{Type: frameHello, Participant: &Participant{Name: name}}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return nil, fmt.Errorf("send hello: %w", err)
	}

	var welcome relayFrame
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		conn.Close(websocket.StatusInternalError, "welcome failed")
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	if welcome.Type != frameWelcome {
		conn.Close(websocket.StatusProtocolError, "expected welcome")
		return nil, fmt.Errorf("unexpected frame %q before welcome", welcome.Type)
	}

	r.selfID = welcome.Self
	r.hostID = welcome.Host
	for k, v := range welcome.Snapshot {
		r.cache[k] = v
	}
	r.members = welcome.Members

	go r.readLoop()
	return r, nil
}

func (r *Relay) readLoop() {
	defer close(r.done)
	ctx := context.Background()
	for {
		var f relayFrame
		if err := wsjson.Read(ctx, r.conn, &f); err != nil {
			r.mu.Lock()
			if r.err == nil {
				r.err = ErrClosed
			}
			r.mu.Unlock()
			return
		}
		r.handle(f)
	}
}

func (r *Relay) handle(f relayFrame) {
	r.mu.Lock()
	var joined *Participant
	var fns []func(Participant)
	switch f.Type {
	case frameSet:
		r.cache[f.Key] = f.Value
	case frameJoin:
		if f.Participant != nil {
			r.members = append(r.members, *f.Participant)
			joined = f.Participant
			fns = append(fns, r.joinFns...)
		}
	case frameLeave:
		if f.Participant != nil {
			for i, p := range r.members {
				if p.ID == f.Participant.ID {
					r.members = append(r.members[:i], r.members[i+1:]...)
					break
				}
			}
		}
	case frameHost:
		r.hostID = f.Host
	default:
		r.log.WithField("type", f.Type).Warn("unknown relay frame")
	}
	r.mu.Unlock()

	if joined != nil {
		for _, fn := range fns {
			fn(*joined)
		}
	}
}

func (r *Relay) Get(key string) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache[key]
	return v, ok
}

func (r *Relay) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	r.mu.Lock()
	if r.err != nil {
		r.mu.Unlock()
		return r.err
	}
	r.cache[key] = raw
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, r.conn, relayFrame{Type: frameSet, Key: key, Value: raw})
}

func (r *Relay) MyID() string { return r.selfID }

func (r *Relay) IsHost() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID == r.selfID
}

func (r *Relay) Participants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Participant, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Relay) OnJoin(fn func(Participant)) {
	r.mu.Lock()
	r.joinFns = append(r.joinFns, fn)
	r.mu.Unlock()
}

// AddBot announces a synthetic participant. The relay treats the join
// frame like any other membership change and fans it out, so bots need no
// connection of their own; the host drives them.
func (r *Relay) AddBot(name string) (Participant, error) {
	if !r.IsHost() {
		return Participant{}, fmt.Errorf("add bot: %s is not host", r.selfID)
	}
	p := Participant{ID: uuid.NewString(), Name: name, Bot: true}

	r.mu.Lock()
	r.members = append(r.members, p)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, r.conn, relayFrame{Type: frameJoin, Participant: &p}); err != nil {
		return Participant{}, err
	}
	return p, nil
}

// Close tears down the connection and waits for the read loop to exit.
func (r *Relay) Close() error {
	err := r.conn.Close(websocket.StatusNormalClosure, "leaving")
	<-r.done
	return err
}
