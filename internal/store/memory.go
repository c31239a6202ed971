package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process replicated document shared by every client it
// hands out. All views see a write as soon as Set returns, which makes it
// the backend of choice for tests and for running every seat inside one
// process.
type Memory struct {
	mu      sync.Mutex
	data    map[string]json.RawMessage
	members []Participant
	hostID  string
	joinFns []func(Participant)
}

// NewMemory returns an empty shared document with no participants.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]json.RawMessage)}
}

// Join admits a human participant and returns their view of the document.
// The first participant to join becomes host.
func (m *Memory) Join(name string) *MemoryClient {
	p := Participant{ID: uuid.NewString(), Name: name}
	m.admit(p)
	return &MemoryClient{mem: m, id: p.ID}
}

// Leave removes a participant. If the host leaves, the lexicographically
// smallest surviving human id is promoted; a bot is promoted only when no
// humans remain.
func (m *Memory) Leave(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.members {
		if p.ID == id {
			m.members = append(m.members[:i], m.members[i+1:]...)
			break
		}
	}
	if m.hostID != id {
		return
	}
	m.hostID = ""
	candidates := make([]Participant, len(m.members))
	copy(candidates, m.members)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Bot != candidates[j].Bot {
			return !candidates[i].Bot
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > 0 {
		m.hostID = candidates[0].ID
	}
}

// admit adds p and fires join callbacks. The callbacks run outside the
// lock: handlers read and write the document they were notified about.
func (m *Memory) admit(p Participant) {
	m.mu.Lock()
	m.members = append(m.members, p)
	if m.hostID == "" && !p.Bot {
		m.hostID = p.ID
	}
	fns := make([]func(Participant), len(m.joinFns))
	copy(fns, m.joinFns)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

// MemoryClient is one participant's handle on a Memory document. It
// implements both Store and Membership.
type MemoryClient struct {
	mem *Memory
	id  string
}

func (c *MemoryClient) Get(key string) (json.RawMessage, bool) {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	v, ok := c.mem.data[key]
	return v, ok
}

func (c *MemoryClient) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	c.mem.mu.Lock()
	c.mem.data[key] = raw
	c.mem.mu.Unlock()
	return nil
}

func (c *MemoryClient) MyID() string { return c.id }

func (c *MemoryClient) IsHost() bool {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	return c.mem.hostID == c.id
}

func (c *MemoryClient) Participants() []Participant {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	out := make([]Participant, len(c.mem.members))
	copy(out, c.mem.members)
	return out
}

func (c *MemoryClient) OnJoin(fn func(Participant)) {
	c.mem.mu.Lock()
	c.mem.joinFns = append(c.mem.joinFns, fn)
	c.mem.mu.Unlock()
}

func (c *MemoryClient) AddBot(name string) (Participant, error) {
	c.mem.mu.Lock()
	host := c.mem.hostID == c.id
	c.mem.mu.Unlock()
	if !host {
		return Participant{}, fmt.Errorf("add bot: %s is not host", c.id)
	}

	p := Participant{ID: uuid.NewString(), Name: name, Bot: true}
	c.mem.admit(p)
	return p, nil
}

// Leave removes this participant from the shared document.
func (c *MemoryClient) Leave() { c.mem.Leave(c.id) }
