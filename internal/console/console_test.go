package console

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aircraftconsole/internal/config"
	"aircraftconsole/internal/grid"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/nav"
	"aircraftconsole/internal/notify"
	"aircraftconsole/internal/session"
)

const (
	adminMe     = `{"id":1,"username":"root","is_staff":true,"is_superuser":true,"personnel_profile":null}`
	assemblerMe = `{"id":2,"username":"asm","is_staff":false,"is_superuser":false,"personnel_profile":{"user":2,"team":4,"team_name":"Line A","team_type":"ASSEMBLY_TEAM","team_type_display":"Assembly Team"}}`
	producerMe  = `{"id":3,"username":"wing","is_staff":false,"is_superuser":false,"personnel_profile":{"user":3,"team":5,"team_name":"Wings","team_type":"WING_TEAM","team_type_display":"Wing Team"}}`
)

const partStock = `{"draw":1,"recordsTotal":2,"recordsFiltered":2,"data":[
	{"aircraft_model_name":"TB2","part_type_category_display":"Wing","warning_zero_stock":true},
	{"aircraft_model_name":"AKINCI","part_type_category_display":"Tail","warning_zero_stock":false}]}`

type api struct {
	mux *http.ServeMux

	mu   sync.Mutex
	hits map[string]int
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	if st := r.URL.Query().Get("stock_type"); st != "" {
		key += "?stock_type=" + st
	}
	a.mu.Lock()
	a.hits[key]++
	a.mu.Unlock()
	a.mux.ServeHTTP(w, r)
}

func (a *api) count(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[key]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type fixture struct {
	api    *api
	cfg    *config.Config
	loc    *location.Memory
	client *Client
	stored *session.Memory
}

func newFixture(t *testing.T, me, fragment string) *fixture {
	t.Helper()
	a := &api{mux: http.NewServeMux(), hits: map[string]int{}}
	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Defaults()
	cfg.API.BaseURL = srv.URL + "/api/v1/app/"
	cfg.API.LoginURL = srv.URL + "/api/token/"
	cfg.API.UserMeURL = srv.URL + "/api/user/me/"
	cfg.API.Timeout = 2 * time.Second
	cfg.Console.LoginPageURL = "/app/login/"
	cfg.Console.DashboardURL = "/app/dashboard/"

	stored := session.NewMemory()
	if me != "" {
		ctx := context.Background()
		require.NoError(t, stored.SetItem(ctx, session.KeyAuthToken, "t0k"))
		require.NoError(t, stored.SetItem(ctx, session.KeyCurrentUser, me))
	}
	a.mux.HandleFunc("GET /api/v1/app/inventory/stock-levels/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, partStock)
	})
	a.mux.HandleFunc("GET /api/v1/app/aircraft-models/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"id":1,"name":"TB2","name_display":"TB2"}]}`)
	})
	return &fixture{
		api:    a,
		cfg:    cfg,
		loc:    location.NewMemory("/app/dashboard/", "", fragment),
		client: NewClient(),
		stored: stored,
	}
}

func (f *fixture) open(t *testing.T, alerts *notify.StockAlerts) *Console {
	t.Helper()
	c, err := New(context.Background(), Options{
		Config:      f.cfg,
		Storage:     f.stored,
		Location:    f.loc,
		Client:      f.client,
		StockAlerts: alerts,
	})
	require.NoError(t, err)
	return c
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) NotifyGroup(_ context.Context, msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func TestOpen_DashboardLoadsWarningsAndRelaysOnce(t *testing.T) {
	f := newFixture(t, adminMe, "")
	rec := &recorder{}
	alerts := notify.NewStockAlerts(rec)

	c := f.open(t, alerts)
	view, err := c.Open(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Identity.IsAdmin())
	assert.Equal(t, nav.Dashboard, c.Nav.Active())

	w := c.Warnings()
	assert.True(t, w.Loaded)
	assert.False(t, w.Failed)
	assert.Equal(t, []string{"TB2: Wing stock depleted."}, w.Lines)
	assert.False(t, w.AllClear())

	c2 := f.open(t, alerts)
	_, err = c2.Open(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.msgs, 1)
}

func TestOpen_WarningsFailure(t *testing.T) {
	f := newFixture(t, producerMe, "")
	f.api.mux = http.NewServeMux()
	f.api.mux.HandleFunc("GET /api/v1/app/inventory/stock-levels/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `oops`)
	})

	c := f.open(t, nil)
	_, err := c.Open(context.Background())
	require.Error(t, err)
	w := c.Warnings()
	assert.True(t, w.Failed)
	assert.False(t, w.AllClear())
	assert.Empty(t, c.Alerts(), "quiet warnings fetch does not raise a page alert")
}

func TestOpen_AllClear(t *testing.T) {
	f := newFixture(t, adminMe, "")
	f.api.mux = http.NewServeMux()
	f.api.mux.HandleFunc("GET /api/v1/app/inventory/stock-levels/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[]}`)
	})
	c := f.open(t, nil)
	_, err := c.Open(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Warnings().AllClear())
}

func TestOpen_StockLevelsGatedByRole(t *testing.T) {
	t.Run("assembler sees both grids", func(t *testing.T) {
		f := newFixture(t, assemblerMe, "stock-levels")
		c := f.open(t, nil)
		_, err := c.Open(context.Background())
		require.NoError(t, err)

		assert.Equal(t, nav.StockLevels, c.Nav.Active())
		assert.Equal(t, 1, f.api.count("GET /api/v1/app/inventory/stock-levels/?stock_type=parts"))
		assert.Equal(t, 1, f.api.count("GET /api/v1/app/inventory/stock-levels/?stock_type=aircrafts"))
		_, bound := c.Grids.Get(grid.AircraftStock.Name)
		assert.True(t, bound)
		assert.Len(t, c.ShownGrids(), 2)
	})
	t.Run("producer sees part stock only", func(t *testing.T) {
		f := newFixture(t, producerMe, "stock-levels")
		c := f.open(t, nil)
		_, err := c.Open(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, f.api.count("GET /api/v1/app/inventory/stock-levels/?stock_type=parts"))
		assert.Zero(t, f.api.count("GET /api/v1/app/inventory/stock-levels/?stock_type=aircrafts"))
		_, bound := c.Grids.Get(grid.AircraftStock.Name)
		assert.False(t, bound)
		shown := c.ShownGrids()
		require.Len(t, shown, 1)
		assert.Equal(t, grid.PartStock.Name, shown[0].Definition().Name)
	})
}

func TestOpen_AnonymousRedirectsWithoutLoading(t *testing.T) {
	f := newFixture(t, "", "teams")
	c := f.open(t, nil)
	view, err := c.Open(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Anonymous)

	target, ok := f.loc.Redirected()
	require.True(t, ok)
	assert.Equal(t, "/app/login/?next=%2Fapp%2Fdashboard%2F", target)
	assert.False(t, c.Nav.HasActive())
}

func TestAssembleLookups(t *testing.T) {
	f := newFixture(t, assemblerMe, "assemble-aircraft")
	f.api.mux.HandleFunc("GET /api/v1/app/work-orders/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, OpenStatuses, r.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, `{"data":[{"id":7,"aircraft_model_name":"TB2","quantity":3,"status":"ASSIGNED","status_display":"Assigned"}]}`)
	})
	c := f.open(t, nil)
	_, err := c.Open(context.Background())
	require.NoError(t, err)

	l := c.Lookups()
	require.Len(t, l.Models, 1)
	assert.Equal(t, "TB2", l.Models[0].Label())
	require.Len(t, l.OpenWorkOrders, 1)
	assert.Equal(t, "#7 - TB2 (3 pcs) - Status: Assigned", l.OpenWorkOrders[0].OptionLabel())
}

func TestLookupFailureAlerts(t *testing.T) {
	f := newFixture(t, adminMe, "teams")
	f.api.mux.HandleFunc("GET /api/v1/app/teams/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[]}`)
	})
	c := f.open(t, nil)
	_, err := c.Open(context.Background())
	require.NoError(t, err)

	f.api.mux.HandleFunc("GET /api/v1/app/part-types/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"detail":"Not allowed."}`)
	})
	require.NoError(t, c.LoadPartTypes(context.Background()))
	assert.Equal(t, []string{"Not allowed."}, c.Alerts())
	assert.Empty(t, c.Lookups().PartTypes)
}

func TestDetailFetches(t *testing.T) {
	f := newFixture(t, adminMe, "")
	f.api.mux.HandleFunc("GET /api/v1/app/personnel/9/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"user":9,"user_username":"ayse","user_email":"a@example.com","team":null}`)
	})
	f.api.mux.HandleFunc("GET /api/v1/app/teams/4/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":4,"name":"Line A","team_type":"ASSEMBLY_TEAM","team_type_display":"Assembly Team"}`)
	})
	c := f.open(t, nil)
	ctx := context.Background()

	p, err := c.Personnel(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, "ayse", p.UserUsername)
	assert.Nil(t, p.Team)

	team, err := c.Team(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Line A (Assembly Team)", team.OptionLabel())

	_, err = c.WorkOrder(ctx, 404)
	assert.Error(t, err)
}

func TestClearingTokenResetsGrids(t *testing.T) {
	f := newFixture(t, adminMe, "stock-levels")
	c := f.open(t, nil)
	_, err := c.Open(context.Background())
	require.NoError(t, err)
	_, bound := c.Grids.Get(grid.PartStock.Name)
	require.True(t, bound)

	require.NoError(t, c.Store.Clear(context.Background()))
	_, bound = c.Grids.Get(grid.PartStock.Name)
	assert.False(t, bound)
}

func TestClientsSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cs := NewClients(time.Hour)
	cs.now = func() time.Time { return now }

	a := cs.Get("a")
	assert.Same(t, a, cs.Get("a"))
	now = now.Add(30 * time.Minute)
	cs.Get("b")
	now = now.Add(45 * time.Minute)

	assert.Equal(t, 1, cs.Sweep())
	assert.Equal(t, 1, cs.Len())
	assert.NotSame(t, a, cs.Get("a"))

	cs.Drop("b")
	assert.Equal(t, 1, cs.Len())
}
