// Package nav is the dashboard's panel state machine.
package nav

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"aircraftconsole/internal/location"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/roles"
)

// Loader fetches the data of a panel. Allow gates it on the current role; nil allows all.
type Loader struct {
	Name  string
	Allow func(roles.Identity) bool
	Load  func(ctx context.Context) error
}

// Loaders is the static panel registry.
type Loaders map[Panel][]Loader

// MenuItem is a visible sidebar entry.
type MenuItem struct {
	Panel  Panel
	Title  string
	Active bool
}

type Controller struct {
	loc      location.Location
	loaders  Loaders
	warnings Loader
	identity func() roles.Identity

	mu          sync.Mutex
	active      Panel
	hasActive   bool
	highlighted Panel
}

// NewController wires the registry. warnings runs on every dashboard activation.
func NewController(loc location.Location, loaders Loaders, warnings Loader, identity func() roles.Identity) *Controller {
	return &Controller{loc: loc, loaders: loaders, warnings: warnings, identity: identity}
}

// Start activates the panel named by the fragment, or the dashboard.
func (c *Controller) Start(ctx context.Context) error {
	p, ok := Parse(c.loc.Fragment())
	if !ok {
		p = Dashboard
	}
	return c.Activate(ctx, p)
}

// Activate shows p alone, highlights its menu entry, updates the fragment and runs
// the loaders the current role is allowed. Unknown panels fall back to the dashboard.
func (c *Controller) Activate(ctx context.Context, p Panel) error {
	if !p.Valid() {
		p = Dashboard
	}

	c.mu.Lock()
	c.active, c.hasActive = p, true
	c.highlighted = ""
	if inMenu(p) {
		c.highlighted = p
	}
	c.mu.Unlock()

	c.loc.SetFragment(p.Fragment())

	id := c.identity()
	log := logging.From(ctx)
	log.Debug("nav.activate", "panel", string(p), "role", id.Role.String())

	var errs []error
	if p == Dashboard && c.warnings.Load != nil {
		if err := c.run(ctx, c.warnings, id); err != nil {
			errs = append(errs, err)
		}
	}
	for _, l := range c.loaders[p] {
		if err := c.run(ctx, l, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) run(ctx context.Context, l Loader, id roles.Identity) error {
	if l.Allow != nil && !l.Allow(id) {
		return nil
	}
	if err := l.Load(ctx); err != nil {
		logging.From(ctx).Warn("nav.loader", "loader", l.Name, "error", err)
		return fmt.Errorf("%s: %w", l.Name, err)
	}
	return nil
}

// ActivateContent activates by content id; "" and unknown ids mean the dashboard.
func (c *Controller) ActivateContent(ctx context.Context, contentID string) error {
	p, ok := FromContentID(contentID)
	if !ok {
		p = Dashboard
	}
	return c.Activate(ctx, p)
}

func (c *Controller) HasActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasActive
}

// Active is the shown panel; the dashboard before any activation.
func (c *Controller) Active() Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasActive {
		return Dashboard
	}
	return c.active
}

// Shown reports whether p is the visible panel.
func (c *Controller) Shown(p Panel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasActive && c.active == p
}

// FirstVisible is the content id of the first menu entry id can see.
func (c *Controller) FirstVisible(id roles.Identity) string {
	for _, e := range Menu {
		if e.VisibleTo(id) {
			return e.Panel.ContentID()
		}
	}
	return Dashboard.ContentID()
}

// Menu returns the entries visible to id with the highlighted one marked.
func (c *Controller) Menu(id roles.Identity) []MenuItem {
	c.mu.Lock()
	hl := c.highlighted
	c.mu.Unlock()
	var out []MenuItem
	for _, e := range Menu {
		if !e.VisibleTo(id) {
			continue
		}
		out = append(out, MenuItem{Panel: e.Panel, Title: e.Panel.Title(), Active: e.Panel == hl})
	}
	return out
}
