package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"aircraftconsole/internal/console"
	"aircraftconsole/internal/roles"
	"aircraftconsole/internal/web"
)

func (s *Server) dashboardPath() string {
	return routePath(s.Config.Console.DashboardURL)
}

// loadHeader builds the shared header of a console page for the resolved user.
func (s *Server) loadHeader(c *console.Console, view roles.View) web.HeaderData {
	header := web.HeaderData{}
	if view.Anonymous || c == nil {
		return header
	}
	id := view.Identity
	header.LoggedIn = true
	header.Username = id.Username
	header.RoleLabel = id.Label
	header.Region = string(id.Region())
	for _, m := range c.Nav.Menu(id) {
		header.Menu = append(header.Menu, web.MenuLink{
			Href:   s.dashboardPath() + m.Panel.Fragment(),
			Title:  m.Title,
			Active: m.Active,
		})
	}
	return header
}

func flashFrom(r *http.Request) web.Flash {
	q := r.URL.Query()
	return web.Flash{
		Notice:  q.Get("notice"),
		Error:   q.Get("error"),
		Missing: q["missing"],
	}
}

// render writes a full page or a 500 when the template fails.
func render[T any](w http.ResponseWriter, tpl *web.Renderer, name string, page web.Page[T]) {
	var buf bytes.Buffer
	if err := tpl.Render(&buf, name, page); err != nil {
		slog.Error("could not render", "page", name, "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
