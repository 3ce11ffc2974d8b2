package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"aircraftconsole/internal/grid"

	"github.com/Masterminds/sprig/v3"
)

//go:embed tpl/*.tmpl tpl/partials/*.tmpl tpl/pages/*.tmpl
var tplFS embed.FS

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page up front so a broken template fails at startup.
func NewRenderer() (*Renderer, error) {
	pageFiles, err := fs.Glob(tplFS, "tpl/pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, p := range pageFiles {
		name := strings.TrimSuffix(path.Base(p), ".tmpl")
		t := template.New("root").Funcs(sprig.FuncMap()).Funcs(funcs)
		if _, err := t.ParseFS(tplFS, "tpl/base.tmpl", "tpl/partials/*.tmpl", p); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, name, data)
}

var funcs = template.FuncMap{
	"badgeClass":  BadgeClass,
	"actionLabel": ActionLabel,
	"formatDate":  grid.FormatDate,
	"cellKind":    CellKind,
}

var cellKinds = map[grid.ColumnKind]string{
	grid.Text:    "text",
	grid.Badge:   "badge",
	grid.Date:    "date",
	grid.Flag:    "flag",
	grid.Actions: "actions",
}

// CellKind names a column kind for the grid partial.
func CellKind(k grid.ColumnKind) string { return cellKinds[k] }

// BadgeClass is the CSS class list of a status badge.
func BadgeClass(v grid.Variant) string {
	switch v {
	case grid.Warning, grid.Light:
		return "badge bg-" + string(v) + " text-dark"
	case "":
		return "badge bg-light text-dark"
	default:
		return "badge bg-" + string(v)
	}
}

var actionLabels = map[grid.ActionKind]string{
	grid.ActEdit:       "Edit",
	grid.ActCancel:     "Cancel",
	grid.ActRecycle:    "Recycle",
	grid.ActDelete:     "Delete",
	grid.ActAssignTeam: "Assign team",
}

func ActionLabel(k grid.ActionKind) string {
	if l, ok := actionLabels[k]; ok {
		return l
	}
	return string(k)
}
