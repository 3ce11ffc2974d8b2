package grid

import (
	"net/url"
	"strconv"

	"aircraftconsole/internal/roles"
)

// Order sorts by the column at index Column.
type Order struct {
	Column int
	Desc   bool
}

// State is the client-side paging, search, sort and filter state of one grid.
type State struct {
	Start   int
	Length  int
	Draw    int
	Search  string
	Order   Order
	Filters map[string]string
}

func (s *State) SetSearch(q string) {
	if s.Search != q {
		s.Search = q
		s.Start = 0
	}
}

// SetFilter sets or clears one filter value and returns to the first page.
func (s *State) SetFilter(param, value string) {
	if s.Filters == nil {
		s.Filters = map[string]string{}
	}
	if s.Filters[param] == value {
		return
	}
	if value == "" {
		delete(s.Filters, param)
	} else {
		s.Filters[param] = value
	}
	s.Start = 0
}

// SetPage moves to the zero-based page n. Showing all rows has a single page.
func (s *State) SetPage(n int) {
	if n < 0 || s.Length <= 0 {
		n = 0
	}
	s.Start = n * s.Length
}

// Page is the zero-based index of the current page.
func (s State) Page() int {
	if s.Length <= 0 {
		return 0
	}
	return s.Start / s.Length
}

func (s *State) SetLength(n int) {
	if n == 0 || n < -1 {
		return
	}
	s.Length = n
	s.Start = 0
}

func (s State) clone() State {
	c := s
	c.Filters = make(map[string]string, len(s.Filters))
	for k, v := range s.Filters {
		c.Filters[k] = v
	}
	return c
}

// Params translates s into the list query the API expects.
func Params(d *Definition, s State, id roles.Identity) url.Values {
	v := url.Values{}
	for k, vals := range d.BaseQuery {
		v[k] = append([]string(nil), vals...)
	}

	length := s.Length
	if length == -1 && d.AllLength != 0 {
		length = d.AllLength
	}
	v.Set("length", strconv.Itoa(length))
	v.Set("start", strconv.Itoa(s.Start))
	v.Set("draw", strconv.Itoa(s.Draw))

	if s.Search != "" && !d.NoSearch {
		v.Set("search", s.Search)
	}
	if ord, ok := d.Ordering(s.Order); ok {
		v.Set("ordering", ord)
	}
	for _, f := range d.Filters {
		if f.Allow != nil && !f.Allow(id) {
			continue
		}
		if val := s.Filters[f.Param]; val != "" {
			v.Set(f.Param, val)
		}
	}
	return v
}
