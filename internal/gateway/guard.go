package gateway

import "sync"

// RequestKey names one logical operation of a client.
type RequestKey string

// Guard tracks the requests in flight for one client. At most one request per key is
// outstanding; Release always follows Acquire.
type Guard struct {
	mu      sync.Mutex
	pending map[RequestKey]struct{}
}

func NewGuard() *Guard {
	return &Guard{pending: make(map[RequestKey]struct{})}
}

// Acquire marks k pending. It returns false if k already is.
func (g *Guard) Acquire(k RequestKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pending[k]; ok {
		return false
	}
	g.pending[k] = struct{}{}
	return true
}

func (g *Guard) Release(k RequestKey) {
	g.mu.Lock()
	delete(g.pending, k)
	g.mu.Unlock()
}

func (g *Guard) Pending(k RequestKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[k]
	return ok
}

// Len is the number of requests in flight.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
