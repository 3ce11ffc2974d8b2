package grid

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/roles"
)

// Fetcher issues list requests. *gateway.Gateway satisfies it.
type Fetcher interface {
	GetList(ctx context.Context, c gateway.Call) (*gateway.List, error)
}

// Env is what a load needs from the surrounding console.
type Env struct {
	Fetch    Fetcher
	Identity roles.Identity
}

// Page is the result of the latest load of a grid.
type Page struct {
	Rows            []Row
	Draw            int
	RecordsTotal    int
	RecordsFiltered int
	// Alert is the inline error of a failed load.
	Alert string
}

// Pages is the number of pages at the current length.
func (p *Page) Pages(s State) int {
	if s.Length <= 0 || p.RecordsFiltered == 0 {
		return 1
	}
	return (p.RecordsFiltered + s.Length - 1) / s.Length
}

// Grid is one bound table. It lives as long as its client.
type Grid struct {
	def *Definition

	mu    sync.Mutex
	state State
	page  *Page
	loads int
}

func newGrid(d *Definition) *Grid {
	return &Grid{def: d, state: d.InitialState()}
}

func (g *Grid) Definition() *Definition { return g.def }

func (g *Grid) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.clone()
}

// Update mutates the state under the grid's lock. It does not reload.
func (g *Grid) Update(fn func(*State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.state)
}

// Page is the latest result, nil before the first load.
func (g *Grid) Page() *Page {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page
}

// Loads counts completed loads.
func (g *Grid) Loads() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loads
}

// Load fetches the current page. Responses apply in completion order.
func (g *Grid) Load(ctx context.Context, env Env) error {
	g.mu.Lock()
	g.state.Draw++
	params := Params(g.def, g.state, env.Identity)
	g.mu.Unlock()

	list, err := env.Fetch.GetList(ctx, gateway.Call{
		Endpoint: g.def.Endpoint,
		Method:   http.MethodGet,
		Payload:  params,
		Quiet:    true,
	})
	page := &Page{}
	if err == nil {
		var recs []map[string]any
		recs, err = list.Records()
		if err == nil {
			page.Rows = make([]Row, len(recs))
			for i, r := range recs {
				page.Rows[i] = Row(r)
			}
			page.Draw = list.Draw
			page.RecordsTotal = list.RecordsTotal
			page.RecordsFiltered = list.RecordsFiltered
		}
	}
	if err != nil {
		page.Alert = g.loadAlert(err)
		logging.From(ctx).Warn("grid.load_failed", "grid", g.def.Name, "error", err)
	}

	g.mu.Lock()
	g.page = page
	g.loads++
	g.mu.Unlock()
	return err
}

func (g *Grid) loadAlert(err error) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case gateway.KindDetail, gateway.KindForbidden, gateway.KindUnreachable:
			return apiErr.Message
		}
	}
	return g.def.LoadError
}

// Registry binds at most one grid per definition name.
type Registry struct {
	mu      sync.Mutex
	grids   map[string]*Grid
	presets map[string][]func(*State)
}

func NewRegistry() *Registry {
	return &Registry{grids: map[string]*Grid{}, presets: map[string][]func(*State){}}
}

// Preset queues a state change applied before the next Ensure of name.
func (r *Registry) Preset(name string, fn func(*State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.grids[name]; ok {
		g.Update(fn)
		return
	}
	r.presets[name] = append(r.presets[name], fn)
}

// Ensure binds d on first use and loads it; later calls reload the bound grid
// keeping its page.
func (r *Registry) Ensure(ctx context.Context, env Env, d *Definition) (*Grid, error) {
	r.mu.Lock()
	g, ok := r.grids[d.Name]
	if !ok {
		g = newGrid(d)
		for _, fn := range r.presets[d.Name] {
			fn(&g.state)
		}
		delete(r.presets, d.Name)
		r.grids[d.Name] = g
	}
	r.mu.Unlock()
	return g, g.Load(ctx, env)
}

// Get returns the bound grid for name.
func (r *Registry) Get(name string) (*Grid, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grids[name]
	return g, ok
}

// ReloadIfBound reloads name when it has been bound. Unbound grids are left alone.
func (r *Registry) ReloadIfBound(ctx context.Context, env Env, name string) error {
	g, ok := r.Get(name)
	if !ok {
		return nil
	}
	return g.Load(ctx, env)
}

// Reset drops every bound grid.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grids = map[string]*Grid{}
	r.presets = map[string][]func(*State){}
}
