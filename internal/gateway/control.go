package gateway

import (
	"strings"
	"sync"
)

const (
	// BusyLabel is shown on a trigger control while its request is pending.
	BusyLabel = "Processing..."
	// DefaultLabel is restored on a trigger control when the call names none.
	DefaultLabel = "Save"
)

// Control is the UI element that started a request.
type Control interface {
	ID() string
	Label() string
	SetBusy(label string)
	Restore(label string)
}

// Button is a Control holding its own state, used by the web and terminal front ends.
type Button struct {
	id    string
	label string

	mu      sync.Mutex
	busy    bool
	current string
}

func NewButton(id, label string) *Button {
	return &Button{id: id, label: label, current: label}
}

func (b *Button) ID() string    { return b.id }
func (b *Button) Label() string { return b.label }

func (b *Button) SetBusy(label string) {
	b.mu.Lock()
	b.busy, b.current = true, label
	b.mu.Unlock()
}

func (b *Button) Restore(label string) {
	b.mu.Lock()
	b.busy, b.current = false, label
	b.mu.Unlock()
}

// Busy reports whether the button is disabled.
func (b *Button) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}

// Text is the label currently displayed.
func (b *Button) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// KeyFor derives the de-duplication key of a control: its id, else its label with runs
// of whitespace replaced by "_". Returns "" when neither is usable.
func KeyFor(c Control) RequestKey {
	if c == nil {
		return ""
	}
	if id := c.ID(); id != "" {
		return RequestKey(id)
	}
	return RequestKey(strings.Join(strings.Fields(c.Label()), "_"))
}
