// Package console wires the components of one client together: session store,
// gateway, role resolver, navigation, grids and actions.
package console

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"aircraftconsole/internal/actions"
	"aircraftconsole/internal/config"
	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/grid"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/nav"
	"aircraftconsole/internal/notify"
	"aircraftconsole/internal/roles"
	"aircraftconsole/internal/session"
)

type Options struct {
	Config     *config.Config
	Storage    session.Storage
	Location   location.Location
	Client     *Client
	HTTPClient *http.Client
	Confirm    actions.Confirmer
	Indicator  gateway.Indicator
	// Alerter receives unhandled request failures. Nil collects them in Alerts.
	Alerter gateway.Alerter
	// StockAlerts relays new dashboard stock warnings. Optional.
	StockAlerts *notify.StockAlerts
}

type Console struct {
	Store    *session.Store
	Gateway  *gateway.Gateway
	Grids    *grid.Registry
	Nav      *nav.Controller
	Resolver *roles.Resolver
	Actions  *actions.Handlers
	Location location.Location

	stockAlerts *notify.StockAlerts

	mu       sync.Mutex
	alerts   []string
	lookups  Lookups
	warnings Warnings
}

// New loads the client's session and builds its components.
func New(ctx context.Context, o Options) (*Console, error) {
	if o.Client == nil {
		o.Client = NewClient()
	}
	store := session.NewStore(o.Storage)
	if _, err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	c := &Console{
		Store:       store,
		Grids:       o.Client.Grids,
		Location:    o.Location,
		stockAlerts: o.StockAlerts,
	}
	alerter := o.Alerter
	if alerter == nil {
		alerter = c
	}
	cfg := o.Config
	c.Gateway = gateway.New(gateway.Options{
		BaseURL:      cfg.API.BaseURL,
		LoginPageURL: cfg.Console.LoginPageURL,
		Timeout:      cfg.API.Timeout,
		HTTPClient:   o.HTTPClient,
		Session:      store,
		Location:     o.Location,
		Guard:        o.Client.Guard,
		Indicator:    o.Indicator,
		Alerter:      alerter,
	})
	c.Nav = nav.NewController(o.Location, c.loaders(), nav.Loader{
		Name: "stock-warnings",
		Load: c.loadWarnings,
	}, c.Identity)
	c.Resolver = &roles.Resolver{
		Store:       store,
		Gateway:     c.Gateway,
		Location:    o.Location,
		Nav:         c.Nav,
		LoginURL:    cfg.Console.LoginPageURL,
		UserMeURL:   cfg.API.UserMeURL,
		PublicPaths: cfg.Console.PublicPaths,
	}
	c.Actions = &actions.Handlers{
		Gateway:  c.Gateway,
		Store:    store,
		Grids:    c.Grids,
		Location: o.Location,
		Confirm:  o.Confirm,
		URLs: actions.URLs{
			APILogin:    cfg.API.LoginURL,
			APIUserMe:   cfg.API.UserMeURL,
			APIRegister: cfg.API.RegisterURL,
			LoginPage:   cfg.Console.LoginPageURL,
			Dashboard:   cfg.Console.DashboardURL,
		},
		Identity: c.Identity,
	}

	// Grids belong to a logged-in user; drop them when the token goes away.
	store.Subscribe(func(s session.Session) {
		if !s.HasToken() {
			c.Grids.Reset()
		}
	})
	return c, nil
}

// Identity is the role of the stored profile.
func (c *Console) Identity() roles.Identity {
	return roles.Resolve(c.Store.Current().CurrentUser)
}

// Env is the grid load environment of the current user.
func (c *Console) Env() grid.Env {
	return grid.Env{Fetch: c.Gateway, Identity: c.Identity()}
}

// Open resolves the user and, when they stay on the page, activates the panel the
// location names.
func (c *Console) Open(ctx context.Context) (roles.View, error) {
	view, err := c.Resolver.Apply(ctx)
	if err != nil {
		return view, err
	}
	if _, redirected := c.Location.Redirected(); redirected || view.Anonymous {
		return view, nil
	}
	if !c.Nav.HasActive() {
		if err := c.Nav.Start(ctx); err != nil {
			return view, err
		}
	}
	return view, nil
}

// Alert collects an unhandled request failure for the page.
func (c *Console) Alert(ctx context.Context, msg string) {
	logging.From(ctx).Info("console.alert", "message", msg)
	c.mu.Lock()
	c.alerts = append(c.alerts, msg)
	c.mu.Unlock()
}

// Alerts returns the collected alerts.
func (c *Console) Alerts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.alerts...)
}

func (c *Console) ensure(d *grid.Definition) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.Grids.Ensure(ctx, c.Env(), d)
		return err
	}
}

func (c *Console) loaders() nav.Loaders {
	admin := roles.Identity.IsAdmin
	assembler := roles.Identity.IsAssembler
	producer := roles.Identity.IsProducer
	fleet := roles.Identity.CanSeeFleet

	return nav.Loaders{
		nav.WorkOrders: {
			{Name: "work-orders", Allow: admin, Load: c.ensure(grid.WorkOrders)},
			{Name: "aircraft-models", Allow: admin, Load: c.LoadModels},
			{Name: "assembly-teams", Allow: admin, Load: c.LoadAssemblyTeams},
		},
		nav.StockLevels: {
			{Name: "part-stock", Load: c.ensure(grid.PartStock)},
			{Name: "aircraft-stock", Allow: fleet, Load: c.ensure(grid.AircraftStock)},
		},
		nav.Aircraft: {
			{Name: "aircraft-models", Allow: fleet, Load: c.LoadModels},
			{Name: "assembly-teams", Allow: admin, Load: c.LoadAssemblyTeams},
			{Name: "aircraft", Allow: fleet, Load: c.ensure(grid.Aircraft)},
		},
		nav.Parts: {
			{Name: "part-types", Allow: fleet, Load: c.LoadPartTypes},
			{Name: "aircraft-models", Allow: fleet, Load: c.LoadModels},
			{Name: "parts", Allow: fleet, Load: c.ensure(grid.Parts)},
		},
		nav.AssignedWorkOrders: {
			{Name: "assigned-work-orders", Allow: assembler, Load: c.ensure(grid.AssignedWorkOrders)},
		},
		nav.AssembleAircraft: {
			{Name: "aircraft-models", Allow: assembler, Load: c.LoadModels},
			{Name: "open-work-orders", Allow: assembler, Load: c.LoadOpenWorkOrders},
		},
		nav.ProducePart: {
			{Name: "aircraft-models", Allow: producer, Load: c.LoadModels},
		},
		nav.MyTeamParts: {
			{Name: "aircraft-models", Allow: producer, Load: c.LoadModels},
			{Name: "my-team-parts", Allow: producer, Load: c.ensure(grid.MyTeamParts)},
		},
		nav.Personnel: {
			{Name: "personnel", Allow: admin, Load: c.ensure(grid.Personnel)},
			{Name: "teams", Allow: admin, Load: c.LoadTeams},
		},
		nav.Teams: {
			{Name: "teams", Allow: admin, Load: c.ensure(grid.Teams)},
		},
	}
}
