package console

import (
	"sync"
	"time"

	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/grid"
)

// Client is the state of one browser or terminal that outlives a single request:
// its in-flight registry and its bound grids.
type Client struct {
	Guard *gateway.Guard
	Grids *grid.Registry

	mu       sync.Mutex
	lastSeen time.Time
}

func NewClient() *Client {
	return &Client{Guard: gateway.NewGuard(), Grids: grid.NewRegistry(), lastSeen: time.Now()}
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Client) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// Clients keeps one Client per client id.
type Clients struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*Client
}

// NewClients evicts clients idle for longer than ttl on Sweep.
func NewClients(ttl time.Duration) *Clients {
	return &Clients{ttl: ttl, now: time.Now, clients: map[string]*Client{}}
}

// Get returns the client for id, creating it on first use.
func (cs *Clients) Get(id string) *Client {
	now := cs.now()
	cs.mu.Lock()
	c, ok := cs.clients[id]
	if !ok {
		c = NewClient()
		cs.clients[id] = c
	}
	cs.mu.Unlock()
	c.touch(now)
	return c
}

func (cs *Clients) Drop(id string) {
	cs.mu.Lock()
	delete(cs.clients, id)
	cs.mu.Unlock()
}

// Sweep removes idle clients and reports how many were removed.
func (cs *Clients) Sweep() int {
	now := cs.now()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	n := 0
	for id, c := range cs.clients {
		if c.idleSince(now) > cs.ttl {
			delete(cs.clients, id)
			n++
		}
	}
	return n
}

func (cs *Clients) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.clients)
}
