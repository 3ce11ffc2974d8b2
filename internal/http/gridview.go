package http

import (
	"fmt"
	"net/url"
	"strconv"

	"aircraftconsole/internal/console"
	"aircraftconsole/internal/grid"
	"aircraftconsole/internal/roles"
	"aircraftconsole/internal/web"
)

// Grid query parameters are prefixed with the grid name: "<grid>.page" (1-based),
// "<grid>.q", "<grid>.sort", "<grid>.dir", "<grid>.len" and "<grid>.f.<param>".
func gridKey(d *grid.Definition, k string) string { return d.Name + "." + k }

// presetGrids queues the grid state changes named in q.
func presetGrids(reg *grid.Registry, q url.Values) {
	for _, d := range grid.All {
		if fn := stateFromQuery(d, q); fn != nil {
			reg.Preset(d.Name, fn)
		}
	}
}

func stateFromQuery(d *grid.Definition, q url.Values) func(*grid.State) {
	var steps []func(*grid.State)
	if v := q.Get(gridKey(d, "len")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			steps = append(steps, func(s *grid.State) { s.SetLength(n) })
		}
	}
	for _, f := range d.Filters {
		key := gridKey(d, "f."+f.Param)
		if q.Has(key) {
			param, val := f.Param, q.Get(key)
			steps = append(steps, func(s *grid.State) { s.SetFilter(param, val) })
		}
	}
	if key := gridKey(d, "q"); q.Has(key) && !d.NoSearch {
		val := q.Get(key)
		steps = append(steps, func(s *grid.State) { s.SetSearch(val) })
	}
	if v := q.Get(gridKey(d, "sort")); v != "" {
		if col, err := strconv.Atoi(v); err == nil {
			desc := q.Get(gridKey(d, "dir")) == "desc"
			steps = append(steps, func(s *grid.State) {
				s.Order = grid.Order{Column: col, Desc: desc}
				s.Start = 0
			})
		}
	}
	if v := q.Get(gridKey(d, "page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			steps = append(steps, func(s *grid.State) { s.SetPage(n - 1) })
		}
	}
	if len(steps) == 0 {
		return nil
	}
	return func(s *grid.State) {
		for _, step := range steps {
			step(s)
		}
	}
}

type option struct {
	Value string
	Label string
}

type columnView struct {
	Title    string
	SortHref string
	Sorted   bool
	Desc     bool
}

type actionView struct {
	Label string
	Kind  string
	// Href is a link for GET actions and the form target for POST ones.
	Href  string
	Post  bool
	Panel string
}

type cellView struct {
	grid.Cell
	Buttons []actionView
}

type filterView struct {
	Name    string
	Label   string
	Value   string
	Options []option
}

type gridView struct {
	Name     string
	Title    string
	Language string
	Columns  []columnView
	Rows     [][]cellView
	Alert    string
	Loaded   bool

	SearchName string
	Search     string
	NoSearch   bool
	Filters    []filterView

	Info     string
	Page     int
	Pages    int
	PrevHref string
	NextHref string
}

var statusOptions = map[string][]option{
	grid.WorkOrders.Name: {
		{"PENDING", "Pending"}, {"ASSIGNED", "Assigned"}, {"IN_PROGRESS", "In progress"},
		{"COMPLETED", "Completed"}, {"CANCELLED", "Cancelled"},
	},
	grid.Parts.Name: {
		{"AVAILABLE", "Available"}, {"USED", "Used"}, {"RECYCLED", "Recycled"},
	},
	grid.MyTeamParts.Name: {
		{"AVAILABLE", "Available"}, {"USED", "Used"}, {"RECYCLED", "Recycled"},
	},
	grid.Aircraft.Name: {
		{"ACTIVE", "Active"}, {"READY_FOR_DELIVERY", "Ready for delivery"}, {"DELIVERED", "Delivered"},
		{"DECOMMISSIONED", "Decommissioned"}, {"RECYCLED", "Recycled"},
	},
}

func filterOptions(d *grid.Definition, param string, lk console.Lookups) []option {
	var out []option
	switch param {
	case "status":
		return statusOptions[d.Name]
	case "aircraft_model", "aircraft_model_compatibility":
		for _, m := range lk.Models {
			out = append(out, option{strconv.Itoa(m.ID), m.Label()})
		}
	case "part_type":
		for _, t := range lk.PartTypes {
			out = append(out, option{strconv.Itoa(t.ID), t.CategoryDisplay})
		}
	case "assembled_by_team":
		for _, t := range lk.AssemblyTeams {
			out = append(out, option{strconv.Itoa(t.ID), t.Name})
		}
	}
	return out
}

// buildGridView shapes a bound grid for the page at self.
func buildGridView(g *grid.Grid, id roles.Identity, lk console.Lookups, self, actionsBase, language string) gridView {
	d := g.Definition()
	st := g.State()
	v := gridView{
		Name:       d.Name,
		Title:      d.Title,
		Language:   language,
		SearchName: gridKey(d, "q"),
		Search:     st.Search,
		NoSearch:   d.NoSearch,
	}

	for i, c := range d.Columns {
		cv := columnView{Title: c.Title}
		if _, ok := d.Ordering(grid.Order{Column: i}); ok {
			cv.Sorted = st.Order.Column == i
			cv.Desc = cv.Sorted && st.Order.Desc
			dir := "asc"
			if cv.Sorted && !st.Order.Desc {
				dir = "desc"
			}
			cv.SortHref = self + "?" + url.Values{
				gridKey(d, "sort"): {strconv.Itoa(i)},
				gridKey(d, "dir"):  {dir},
			}.Encode()
		}
		v.Columns = append(v.Columns, cv)
	}

	for _, f := range d.VisibleFilters(id) {
		v.Filters = append(v.Filters, filterView{
			Name:    gridKey(d, "f."+f.Param),
			Label:   f.Label,
			Value:   st.Filters[f.Param],
			Options: filterOptions(d, f.Param, lk),
		})
	}

	page := g.Page()
	if page == nil {
		return v
	}
	v.Loaded = true
	v.Alert = page.Alert
	for _, row := range page.Rows {
		cells := grid.Render(d, row, id)
		out := make([]cellView, len(cells))
		for i, c := range cells {
			out[i] = cellView{Cell: c}
			for _, a := range c.Actions {
				out[i].Buttons = append(out[i].Buttons, actionTarget(d, a, self, actionsBase))
			}
		}
		v.Rows = append(v.Rows, out)
	}

	v.Page = st.Page() + 1
	v.Pages = page.Pages(st)
	if v.Page > 1 {
		v.PrevHref = self + "?" + url.Values{gridKey(d, "page"): {strconv.Itoa(v.Page - 1)}}.Encode()
	}
	if v.Page < v.Pages {
		v.NextHref = self + "?" + url.Values{gridKey(d, "page"): {strconv.Itoa(v.Page + 1)}}.Encode()
	}
	v.Info = pageInfo(st, page)
	return v
}

func pageInfo(st grid.State, p *grid.Page) string {
	if p.RecordsFiltered == 0 {
		return "No entries"
	}
	first := st.Start + 1
	last := st.Start + len(p.Rows)
	info := fmt.Sprintf("Showing %d to %d of %d entries", first, last, p.RecordsFiltered)
	if p.RecordsFiltered != p.RecordsTotal {
		info += fmt.Sprintf(" (filtered from %d total)", p.RecordsTotal)
	}
	return info
}

// actionTarget maps a row action to its link or form post.
func actionTarget(d *grid.Definition, a grid.Action, self, base string) actionView {
	av := actionView{Label: web.ActionLabel(a.Kind), Kind: string(a.Kind), Panel: d.Name}
	switch a.Kind {
	case grid.ActEdit, grid.ActAssignTeam:
		av.Href = self + "?" + url.Values{"edit": {a.ID}}.Encode()
	case grid.ActCancel:
		av.Href, av.Post = base+"work-orders/"+a.ID+"/cancel", true
	case grid.ActRecycle:
		target := "parts/"
		if d == grid.Aircraft {
			target = "aircraft/"
		}
		av.Href, av.Post = base+target+a.ID+"/recycle", true
	case grid.ActDelete:
		av.Href, av.Post = base+d.Name+"/"+a.ID+"/delete", true
	}
	return av
}
