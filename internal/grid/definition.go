// Package grid holds the server-paginated data panels: their query state, the
// per-entity definitions and the pure helpers that shape rows for display.
package grid

import (
	"aircraftconsole/internal/roles"
)

// NotSortable as a FieldMap value disables ordering by that column.
const NotSortable = ""

type ColumnKind int

const (
	Text ColumnKind = iota
	// Badge renders the display text coloured by Column.Badge applied to the row's status.
	Badge
	Date
	// Flag renders the stock warning marker.
	Flag
	// Actions holds the row action buttons and is never sortable.
	Actions
)

type Column struct {
	Data  string
	Title string
	Kind  ColumnKind
	// Default is shown for missing values.
	Default string
	// Source overrides Data as the field read for display.
	Source string
	Badge  func(status string) Variant
	// Unsortable columns are skipped for ordering.
	Unsortable bool
}

// Filter is a query parameter taken from a filter control.
type Filter struct {
	Param string
	Label string
	// Allow hides the filter from roles that may not use it; nil allows all.
	Allow func(roles.Identity) bool
}

// Definition describes one grid.
type Definition struct {
	// Name is the grid's stable selector.
	Name     string
	Title    string
	Endpoint string
	// BaseQuery is sent on every load.
	BaseQuery    map[string][]string
	Columns      []Column
	FieldMap     map[string]string
	AllLength    int
	PageLength   int
	DefaultOrder Order
	Filters      []Filter
	NoSearch     bool
	// LoadError is shown when the API gives no usable message.
	LoadError string
	// Actions returns the row actions id may run on row.
	Actions func(row Row, id roles.Identity) []Action
}

// Ordering is the ordering parameter for o, or false when none is sent.
func (d *Definition) Ordering(o Order) (string, bool) {
	if o.Column < 0 || o.Column >= len(d.Columns) {
		return "", false
	}
	c := d.Columns[o.Column]
	if c.Unsortable || c.Kind == Actions || c.Data == "" {
		return "", false
	}
	field := c.Data
	if mapped, ok := d.FieldMap[field]; ok {
		if mapped == NotSortable {
			return "", false
		}
		field = mapped
	}
	if o.Desc {
		return "-" + field, true
	}
	return field, true
}

// InitialState is the state of a freshly bound grid.
func (d *Definition) InitialState() State {
	length := d.PageLength
	if length == 0 {
		length = 10
	}
	return State{Length: length, Order: d.DefaultOrder, Filters: map[string]string{}}
}

// VisibleFilters lists the filters id may use.
func (d *Definition) VisibleFilters(id roles.Identity) []Filter {
	var out []Filter
	for _, f := range d.Filters {
		if f.Allow == nil || f.Allow(id) {
			out = append(out, f)
		}
	}
	return out
}
