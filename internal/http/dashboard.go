package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aircraftconsole/internal/console"
	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/nav"
	"aircraftconsole/internal/roles"
	"aircraftconsole/internal/web"
)

type DashboardHandler struct {
	S *Server
}

// formView is the create/edit form of the panel, shown inline.
type formView struct {
	Open      bool
	ID        string
	WorkOrder *console.WorkOrder
	Personnel *console.Personnel
	Team      *console.Team
	Error     string
}

// Model is the aircraft model of the edited work order, or 0.
func (f formView) Model() int {
	if f.WorkOrder == nil {
		return 0
	}
	return f.WorkOrder.AircraftModel
}

// AssignedTeam is the edited work order's team, or 0.
func (f formView) AssignedTeam() int {
	if f.WorkOrder == nil || f.WorkOrder.AssignedTeam == nil {
		return 0
	}
	return *f.WorkOrder.AssignedTeam
}

func (f formView) TargetDate() string {
	if f.WorkOrder == nil || f.WorkOrder.TargetDate == nil {
		return ""
	}
	return *f.WorkOrder.TargetDate
}

// PersonnelTeam is the edited personnel record's team, or 0.
func (f formView) PersonnelTeam() int {
	if f.Personnel == nil || f.Personnel.Team == nil {
		return 0
	}
	return *f.Personnel.Team
}

type dashboardContent struct {
	Panel    string
	Title    string
	Self     string
	Actions  string
	Identity roles.Identity
	Alerts   []string

	Warnings        console.Warnings
	AllClearText    string
	WarnFailedText  string
	Lookups         console.Lookups
	Grids           []gridView
	Form            formView
	TeamTypes       []struct{ Key, Label string }
	GridLanguageURL string
}

func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	panel := strings.Trim(r.PathValue("panel"), "/")
	loc := location.NewMemory(r.URL.Path, r.URL.RawQuery, panel)

	c, ctx, err := h.S.openConsole(w, r, loc, nil)
	if err != nil {
		slog.Error("dashboard.open_console", "err", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	q := r.URL.Query()
	presetGrids(c.Grids, q)

	view, err := c.Open(ctx)
	if err != nil {
		logging.From(ctx).Warn("dashboard.open", "err", err)
	}
	if followRedirect(w, r, loc) {
		return
	}

	active := c.Nav.Active()
	self := h.S.dashboardPath() + active.Fragment()
	// Unknown panels fall back to the dashboard; the address follows.
	if c.Nav.HasActive() && active.Fragment() != panel {
		target := self
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	lk := c.Lookups()
	content := dashboardContent{
		Panel:           active.Fragment(),
		Title:           active.Title(),
		Self:            self,
		Actions:         ActionsPrefix,
		Identity:        view.Identity,
		Alerts:          c.Alerts(),
		Warnings:        c.Warnings(),
		AllClearText:    console.MsgStockAllClear,
		WarnFailedText:  console.MsgStockWarningsFailed,
		Lookups:         lk,
		TeamTypes:       roles.TeamTypes,
		GridLanguageURL: h.S.Config.Console.GridLanguageURL,
	}
	for _, g := range c.ShownGrids() {
		content.Grids = append(content.Grids, buildGridView(g, view.Identity, lk, self, ActionsPrefix, content.GridLanguageURL))
	}
	content.Form = h.form(ctx, c, active, view.Identity, q)

	render(w, h.S.TPL, "dashboard", web.Page[dashboardContent]{
		Header:  h.S.loadHeader(c, view),
		Flash:   flashFrom(r),
		Content: content,
	})
}

// form prefills the panel's inline form from the new and edit query parameters.
func (h *DashboardHandler) form(ctx context.Context, c *console.Console, p nav.Panel, id roles.Identity, q url.Values) formView {
	if !id.IsAdmin() {
		return formView{}
	}
	editID := q.Get("edit")
	f := formView{Open: q.Has("new") || editID != "", ID: editID}
	if editID == "" {
		return f
	}
	var err error
	switch p {
	case nav.WorkOrders:
		var n int
		if n, err = strconv.Atoi(editID); err == nil {
			f.WorkOrder, err = c.WorkOrder(ctx, n)
		}
	case nav.Personnel:
		f.Personnel, err = c.Personnel(ctx, editID)
	case nav.Teams:
		var n int
		if n, err = strconv.Atoi(editID); err == nil {
			f.Team, err = c.Team(ctx, n)
		}
	default:
		return formView{}
	}
	if err != nil {
		logging.From(ctx).Warn("dashboard.form_load", "panel", string(p), "id", editID, "err", err)
		f.Error = loadErrorText(err)
	}
	return f
}

func loadErrorText(err error) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Could not load the record."
}
