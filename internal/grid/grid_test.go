package grid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/roles"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls []gateway.Call
	body  string
	err   error
}

func (f *fakeFetcher) GetList(_ context.Context, c gateway.Call) (*gateway.List, error) {
	f.calls = append(f.calls, c)
	if f.err != nil {
		return nil, f.err
	}
	return gateway.ParseList([]byte(f.body))
}

func (f *fakeFetcher) lastQuery(t *testing.T) url.Values {
	t.Helper()
	require.NotEmpty(t, f.calls)
	q, ok := f.calls[len(f.calls)-1].Payload.(url.Values)
	require.True(t, ok)
	return q
}

var (
	admin     = roles.Identity{Role: roles.Admin}
	assembler = roles.Identity{Role: roles.Assembler, TeamID: 4, HasTeam: true}
	producer  = roles.Identity{Role: roles.Producer, TeamID: 2, HasTeam: true}
)

func TestParams_WorkOrdersDefault(t *testing.T) {
	s := WorkOrders.InitialState()
	s.Draw = 1
	q := Params(WorkOrders, s, admin)
	assert.Equal(t, url.Values{
		"length":   {"10"},
		"start":    {"0"},
		"draw":     {"1"},
		"ordering": {"-id"},
	}, q)
}

func TestParams_AllLengthPerEntity(t *testing.T) {
	cases := map[*Definition]string{
		WorkOrders:         "999999",
		Parts:              "99999",
		Aircraft:           "99999",
		AssignedWorkOrders: "99999",
		MyTeamParts:        "10000",
		PartStock:          "-1",
		Teams:              "-1",
	}
	for d, want := range cases {
		s := d.InitialState()
		s.Length = -1
		assert.Equal(t, want, Params(d, s, admin).Get("length"), d.Name)
	}
}

func TestParams_OrderingFieldMap(t *testing.T) {
	s := WorkOrders.InitialState()
	s.Order = Order{Column: 3, Desc: true}
	assert.Equal(t, "-status", Params(WorkOrders, s, admin).Get("ordering"))

	s.Order = Order{Column: 2}
	assert.Equal(t, "quantity", Params(WorkOrders, s, admin).Get("ordering"))

	s = Parts.InitialState()
	s.Order = Order{Column: 8}
	_, has := Params(Parts, s, admin)["ordering"]
	assert.False(t, has, "not sortable column")

	s.Order = Order{Column: 9}
	_, has = Params(Parts, s, admin)["ordering"]
	assert.False(t, has, "actions column")

	s = Teams.InitialState()
	assert.Equal(t, "name", Params(Teams, s, admin).Get("ordering"))
}

func TestParams_FiltersOnlyWhenSet(t *testing.T) {
	s := Aircraft.InitialState()
	s.SetFilter("status", "ACTIVE")
	s.SetFilter("aircraft_model", "")
	s.SetFilter("assembled_by_team", "4")
	s.SetSearch("TB2")

	q := Params(Aircraft, s, admin)
	assert.Equal(t, "ACTIVE", q.Get("status"))
	assert.Equal(t, "4", q.Get("assembled_by_team"))
	assert.Equal(t, "TB2", q.Get("search"))
	_, has := q["aircraft_model"]
	assert.False(t, has)

	q = Params(Aircraft, s, assembler)
	_, has = q["assembled_by_team"]
	assert.False(t, has, "team filter is admin only")
}

func TestParams_StockCarriesType(t *testing.T) {
	s := PartStock.InitialState()
	s.SetSearch("ignored")
	q := Params(PartStock, s, producer)
	assert.Equal(t, StockParts, q.Get("stock_type"))
	assert.Equal(t, "-1", q.Get("length"))
	assert.Equal(t, "aircraft_model_name", q.Get("ordering"))
	assert.Empty(t, q.Get("search"))
}

func TestStateResetsPageOnFilterAndSearch(t *testing.T) {
	s := Parts.InitialState()
	s.SetPage(3)
	assert.Equal(t, 30, s.Start)
	assert.Equal(t, 3, s.Page())

	s.SetFilter("status", "USED")
	assert.Zero(t, s.Start)

	s.SetPage(2)
	s.SetFilter("status", "USED")
	assert.Equal(t, 20, s.Start, "unchanged filter keeps page")

	s.SetSearch("x")
	assert.Zero(t, s.Start)
}

const partsPage = `{"draw":1,"recordsTotal":42,"recordsFiltered":12,"data":[
{"id":7,"serial_number":"W-7","status":"AVAILABLE","status_display":"Available","production_date":"2025-03-04T10:11:12Z"},
{"id":8,"serial_number":"W-8","status":"USED","status_display":"Used","production_date":null}]}`

func TestRegistry_EnsureBindsOnceAndKeepsPage(t *testing.T) {
	f := &fakeFetcher{body: partsPage}
	env := Env{Fetch: f, Identity: admin}
	reg := NewRegistry()
	ctx := context.Background()

	g, err := reg.Ensure(ctx, env, Parts)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, f.calls[0].Method)
	assert.True(t, f.calls[0].Quiet)
	assert.Equal(t, "parts/", f.calls[0].Endpoint)

	page := g.Page()
	require.NotNil(t, page)
	assert.Len(t, page.Rows, 2)
	assert.Equal(t, 12, page.RecordsFiltered)
	assert.Equal(t, 2, page.Pages(g.State()))

	g.Update(func(s *State) { s.SetPage(1) })
	again, err := reg.Ensure(ctx, env, Parts)
	require.NoError(t, err)
	assert.Same(t, g, again)
	assert.Equal(t, "10", f.lastQuery(t).Get("start"))
	assert.Equal(t, "2", f.lastQuery(t).Get("draw"))
	assert.Equal(t, 2, g.Loads())
}

func TestRegistry_PresetAppliesBeforeFirstLoad(t *testing.T) {
	f := &fakeFetcher{body: `[]`}
	env := Env{Fetch: f, Identity: admin}
	reg := NewRegistry()

	reg.Preset(WorkOrders.Name, func(s *State) { s.SetFilter("status", "PENDING") })
	_, err := reg.Ensure(context.Background(), env, WorkOrders)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", f.lastQuery(t).Get("status"))
}

func TestRegistry_ReloadIfBound(t *testing.T) {
	f := &fakeFetcher{body: `[]`}
	env := Env{Fetch: f, Identity: admin}
	reg := NewRegistry()
	ctx := context.Background()

	require.NoError(t, reg.ReloadIfBound(ctx, env, Teams.Name))
	assert.Empty(t, f.calls)

	_, err := reg.Ensure(ctx, env, Teams)
	require.NoError(t, err)
	require.NoError(t, reg.ReloadIfBound(ctx, env, Teams.Name))
	assert.Len(t, f.calls, 2)

	reg.Reset()
	_, ok := reg.Get(Teams.Name)
	assert.False(t, ok)
}

func TestLoad_FailureSetsAlert(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()

	f := &fakeFetcher{err: gateway.Classify(http.StatusForbidden, "Forbidden", []byte(`{"detail":"No access."}`))}
	g, err := reg.Ensure(ctx, Env{Fetch: f, Identity: producer}, Aircraft)
	require.Error(t, err)
	assert.Equal(t, "No access.", g.Page().Alert)

	f = &fakeFetcher{err: gateway.Classify(http.StatusInternalServerError, "Internal Server Error", []byte("boom"))}
	g, err = reg.Ensure(ctx, Env{Fetch: f, Identity: producer}, Teams)
	require.Error(t, err)
	assert.Equal(t, Teams.LoadError, g.Page().Alert)

	f = &fakeFetcher{body: `{"unexpected":true}`}
	_, err = reg.Ensure(ctx, Env{Fetch: f, Identity: producer}, Personnel)
	assert.ErrorIs(t, err, gateway.ErrUnexpectedShape)
}

func TestBadges(t *testing.T) {
	assert.Equal(t, Warning, WorkOrderBadge("PENDING"))
	assert.Equal(t, Danger, WorkOrderBadge("CANCELLED"))
	assert.Equal(t, Light, WorkOrderBadge("ARCHIVED"))
	assert.Equal(t, Light, AssignedOrderBadge("COMPLETED"))
	assert.Equal(t, Dark, PartBadge("RECYCLED"))
	assert.Equal(t, Secondary, AircraftBadge("RECYCLED"))
	assert.Equal(t, Info, AircraftBadge("READY_FOR_DELIVERY"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "04.03.2025", FormatDate("2025-03-04T10:11:12Z"))
	assert.Equal(t, "04.03.2025", FormatDate("2025-03-04T23:30:00.123456+03:00"))
	assert.Equal(t, "31.12.2024", FormatDate("2024-12-31"))
	assert.Equal(t, "-", FormatDate(""))
	assert.Equal(t, "soon", FormatDate("soon"))
}

func row(t *testing.T, js string) Row {
	t.Helper()
	l, err := gateway.ParseList([]byte("[" + js + "]"))
	require.NoError(t, err)
	recs, err := l.Records()
	require.NoError(t, err)
	return Row(recs[0])
}

func kinds(acts []Action) []ActionKind {
	var out []ActionKind
	for _, a := range acts {
		out = append(out, a.Kind)
	}
	return out
}

func TestRowActions(t *testing.T) {
	pending := row(t, `{"id":5,"status":"PENDING"}`)
	done := row(t, `{"id":6,"status":"COMPLETED"}`)
	assert.Equal(t, []ActionKind{ActEdit, ActCancel}, kinds(RowActions(WorkOrders, pending, admin)))
	assert.Equal(t, []ActionKind{ActEdit}, kinds(RowActions(WorkOrders, done, admin)))
	assert.Empty(t, RowActions(WorkOrders, pending, assembler))

	avail := row(t, `{"id":7,"status":"AVAILABLE"}`)
	used := row(t, `{"id":8,"status":"USED"}`)
	assert.Equal(t, []ActionKind{ActRecycle}, kinds(RowActions(Parts, avail, assembler)))
	assert.Empty(t, RowActions(Parts, avail, producer))
	assert.Empty(t, RowActions(Parts, used, admin))
	assert.Equal(t, []ActionKind{ActRecycle}, kinds(RowActions(MyTeamParts, avail, producer)))

	own := row(t, `{"id":9,"status":"ACTIVE","assembled_by_team":4}`)
	other := row(t, `{"id":10,"status":"ACTIVE","assembled_by_team":5}`)
	recycled := row(t, `{"id":11,"status":"RECYCLED","assembled_by_team":4}`)
	assert.Equal(t, []ActionKind{ActRecycle}, kinds(RowActions(Aircraft, own, assembler)))
	assert.Empty(t, RowActions(Aircraft, other, assembler))
	assert.Empty(t, RowActions(Aircraft, recycled, admin))
	assert.Equal(t, "10", RowActions(Aircraft, other, admin)[0].ID)

	person := row(t, `{"user":12,"user_username":"ayse"}`)
	acts := RowActions(Personnel, person, admin)
	assert.Equal(t, []ActionKind{ActAssignTeam, ActDelete}, kinds(acts))
	assert.Equal(t, "12", acts[0].ID)
}

func TestRender(t *testing.T) {
	r := row(t, `{"id":9,"serial_number":"A-9","aircraft_model_name":"TB2","status":"ACTIVE","status_display":"Active",
"assembled_by_team_name":null,"assembly_date":"2025-01-02T08:00:00Z","work_order":3,"work_order_id_display":"#3","assembled_by_team":4}`)
	cells := Render(Aircraft, r, assembler)
	require.Len(t, cells, len(Aircraft.Columns))
	assert.Equal(t, "A-9", cells[1].Text)
	assert.Equal(t, "Active", cells[3].Text)
	assert.Equal(t, Success, cells[3].Variant)
	assert.Equal(t, "-", cells[4].Text)
	assert.Equal(t, "02.01.2025", cells[5].Text)
	assert.Equal(t, "3", cells[6].Text)
	assert.Len(t, cells[7].Actions, 1)

	blank := row(t, `{"id":1,"status":"ODD"}`)
	cells = Render(WorkOrders, blank, producer)
	assert.Equal(t, UnknownStatus, cells[3].Text)
	assert.Equal(t, Light, cells[3].Variant)
	assert.Equal(t, "-", cells[7].Text)
}

func TestStockWarnings(t *testing.T) {
	var rows []Row
	require.NoError(t, json.Unmarshal([]byte(`[
{"aircraft_model_name":"TB2","part_type_category_display":"Wing","warning_zero_stock":true},
{"aircraft_model_name":"TB3","part_type_category_display":"Tail","warning_zero_stock":false},
{"aircraft_model_name":"AKINCI","part_type_category_display":"Avionics","warning_zero_stock":true}]`), &rows))
	assert.Equal(t, []string{
		"TB2: Wing stock depleted.",
		"AKINCI: Avionics stock depleted.",
	}, StockWarnings(rows))
	assert.Empty(t, StockWarnings(nil))
}

func TestByName(t *testing.T) {
	d, ok := ByName("my-team-parts")
	require.True(t, ok)
	assert.Same(t, MyTeamParts, d)
	_, ok = ByName("nope")
	assert.False(t, ok)
}
