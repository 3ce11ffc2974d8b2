package notify

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Notifier sends notifications to the production group channel.
type Notifier interface {
	NotifyGroup(ctx context.Context, msg string)
}

// Noop is a no-op notifier.
type Noop struct{}

func (Noop) NotifyGroup(context.Context, string) {}

// StockAlerts relays each newly depleted stock once. A stock that recovers and
// depletes again is relayed again.
type StockAlerts struct {
	n Notifier

	mu     sync.Mutex
	active map[string]struct{}
}

func NewStockAlerts(n Notifier) *StockAlerts {
	if n == nil {
		n = Noop{}
	}
	return &StockAlerts{n: n, active: map[string]struct{}{}}
}

// Relay takes the complete current warning set and notifies the group about the
// warnings it has not seen since they were last cleared. It returns what was sent.
func (s *StockAlerts) Relay(ctx context.Context, warnings []string) []string {
	s.mu.Lock()
	current := make(map[string]struct{}, len(warnings))
	var fresh []string
	for _, w := range warnings {
		current[w] = struct{}{}
		if _, seen := s.active[w]; !seen {
			fresh = append(fresh, w)
		}
	}
	s.active = current
	s.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}
	sort.Strings(fresh)
	s.n.NotifyGroup(ctx, "⚠️ Stock alert\n"+strings.Join(fresh, "\n"))
	return fresh
}
