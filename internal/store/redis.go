package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	hostClaimTTL      = 5 * time.Second
	hostHeartbeatTick = 2 * time.Second
)

// redisUpdate is the fan-out message published alongside every write so
// peers can refresh their local caches without polling the hash.
type redisUpdate struct {
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Join  *Participant    `json:"join,omitempty"`
	Leave string          `json:"leave,omitempty"`
}

// Redis replicates the document through a Redis hash with pub/sub
// invalidation. Each participant keeps a local cache of the hash so Get
// never touches the network; Set writes through and publishes the change.
//
// Host authority is a SetNX claim with a TTL: the holder refreshes it on a
// heartbeat, and when the holder disappears the claim expires and the
// remaining participants race to take it.
type Redis struct {
	rdb    *redis.Client
	log    *logrus.Entry
	gameID string
	self   Participant

	docKey     string
	membersKey string
	hostKey    string
	channel    string

	mu      sync.Mutex
	cache   map[string]json.RawMessage
	members []Participant
	host    bool
	joinFns []func(Participant)

	cancel context.CancelFunc
	done   chan struct{}
}

// JoinRedis admits a participant to the game identified by gameID and
// returns their replicated view. The returned adapter owns two background
// goroutines (pub/sub consumer and host heartbeat) until Close is called.
func JoinRedis(ctx context.Context, rdb *redis.Client, gameID string, self Participant, log *logrus.Logger) (*Redis, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Redis{
		rdb:        rdb,
		log:        log.WithField("game", gameID),
		gameID:     gameID,
		self:       self,
		docKey:     "ohhell:" + gameID + ":doc",
		membersKey: "ohhell:" + gameID + ":members",
		hostKey:    "ohhell:" + gameID + ":host",
		channel:    "ohhell:" + gameID + ":updates",
		cache:      make(map[string]json.RawMessage),
		done:       make(chan struct{}),
	}

	if err := r.warmCache(ctx); err != nil {
		return nil, err
	}
	if err := r.register(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	sub := rdb.Subscribe(runCtx, r.channel)
	go r.consume(runCtx, sub)
	go r.heartbeat(runCtx)
	return r, nil
}

func (r *Redis) warmCache(ctx context.Context) error {
	doc, err := r.rdb.HGetAll(ctx, r.docKey).Result()
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	for k, v := range doc {
		r.cache[k] = json.RawMessage(v)
	}

	raw, err := r.rdb.HGetAll(ctx, r.membersKey).Result()
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	for _, blob := range raw {
		var p Participant
		if err := json.Unmarshal([]byte(blob), &p); err != nil {
			r.log.WithError(err).Warn("skipping unreadable member entry")
			continue
		}
		r.members = append(r.members, p)
	}
	return nil
}

func (r *Redis) register(ctx context.Context) error {
	blob, err := json.Marshal(r.self)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.membersKey, r.self.ID, blob).Err(); err != nil {
		return fmt.Errorf("register member: %w", err)
	}
	r.publish(ctx, redisUpdate{Join: &r.self})

	ok, err := r.rdb.SetNX(ctx, r.hostKey, r.self.ID, hostClaimTTL).Result()
	if err != nil {
		return fmt.Errorf("claim host: %w", err)
	}
	r.mu.Lock()
	if !r.hasMember(r.self.ID) {
		r.members = append(r.members, r.self)
	}
	r.host = ok
	r.mu.Unlock()
	return nil
}

func (r *Redis) publish(ctx context.Context, u redisUpdate) {
	blob, err := json.Marshal(u)
	if err != nil {
		r.log.WithError(err).Error("marshal update")
		return
	}
	if err := r.rdb.Publish(ctx, r.channel, blob).Err(); err != nil {
		r.log.WithError(err).Warn("publish update")
	}
}

func (r *Redis) consume(ctx context.Context, sub *redis.PubSub) {
	defer close(r.done)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var u redisUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				r.log.WithError(err).Warn("unreadable update")
				continue
			}
			r.apply(u)
		}
	}
}

func (r *Redis) apply(u redisUpdate) {
	r.mu.Lock()
	var joined *Participant
	var fns []func(Participant)
	switch {
	case u.Join != nil:
		if u.Join.ID != r.self.ID && !r.hasMember(u.Join.ID) {
			r.members = append(r.members, *u.Join)
			joined = u.Join
			fns = append(fns, r.joinFns...)
		}
	case u.Leave != "":
		for i, p := range r.members {
			if p.ID == u.Leave {
				r.members = append(r.members[:i], r.members[i+1:]...)
				break
			}
		}
	case u.Key != "":
		r.cache[u.Key] = u.Value
	}
	r.mu.Unlock()

	if joined != nil {
		for _, fn := range fns {
			fn(*joined)
		}
	}
}

func (r *Redis) hasMember(id string) bool {
	for _, p := range r.members {
		if p.ID == id {
			return true
		}
	}
	return false
}

// heartbeat keeps the host claim alive while held and tries to take an
// expired claim while not.
func (r *Redis) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(hostHeartbeatTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if r.IsHost() {
			kept, err := r.rdb.Expire(ctx, r.hostKey, hostClaimTTL).Result()
			if err != nil || !kept {
				r.mu.Lock()
				r.host = false
				r.mu.Unlock()
			}
			continue
		}

		ok, err := r.rdb.SetNX(ctx, r.hostKey, r.self.ID, hostClaimTTL).Result()
		if err != nil {
			r.log.WithError(err).Warn("host claim attempt")
			continue
		}
		if ok {
			r.log.Info("took over as host")
			r.mu.Lock()
			r.host = true
			r.mu.Unlock()
		}
	}
}

func (r *Redis) Get(key string) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache[key]
	return v, ok
}

func (r *Redis) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	// Apply locally first so the writer reads its own write immediately,
	// then replicate.
	r.mu.Lock()
	r.cache[key] = raw
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.HSet(ctx, r.docKey, key, []byte(raw)).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	r.publish(ctx, redisUpdate{Key: key, Value: raw})
	return nil
}

func (r *Redis) MyID() string { return r.self.ID }

func (r *Redis) IsHost() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

func (r *Redis) Participants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Participant, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Redis) OnJoin(fn func(Participant)) {
	r.mu.Lock()
	r.joinFns = append(r.joinFns, fn)
	r.mu.Unlock()
}

func (r *Redis) AddBot(name string) (Participant, error) {
	if !r.IsHost() {
		return Participant{}, fmt.Errorf("add bot: %s is not host", r.self.ID)
	}
	p := Participant{ID: uuid.NewString(), Name: name, Bot: true}
	blob, err := json.Marshal(p)
	if err != nil {
		return Participant{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.HSet(ctx, r.membersKey, p.ID, blob).Err(); err != nil {
		return Participant{}, fmt.Errorf("register bot: %w", err)
	}
	r.mu.Lock()
	r.members = append(r.members, p)
	r.mu.Unlock()
	r.publish(ctx, redisUpdate{Join: &p})
	return p, nil
}

// Close releases the host claim if held, announces departure, and stops
// the background goroutines.
func (r *Redis) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if r.IsHost() {
		r.rdb.Del(ctx, r.hostKey)
	}
	r.rdb.HDel(ctx, r.membersKey, r.self.ID)
	r.publish(ctx, redisUpdate{Leave: r.self.ID})

	r.cancel()
	<-r.done
	return nil
}
