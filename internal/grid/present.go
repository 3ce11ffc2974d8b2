package grid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"aircraftconsole/internal/roles"
)

// Row is one decoded record. Numbers are json.Number.
type Row map[string]any

// String renders the value at key as text; "" when missing or null.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int reads a numeric or numeric-string value at key.
func (r Row) Int(key string) (int, bool) {
	s := r.String(key)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func (r Row) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Variant is a badge colour.
type Variant string

const (
	Light     Variant = "light"
	Warning   Variant = "warning"
	Primary   Variant = "primary"
	Info      Variant = "info"
	Success   Variant = "success"
	Danger    Variant = "danger"
	Secondary Variant = "secondary"
	Dark      Variant = "dark"
)

// UnknownStatus is the badge text when a row has no display status.
const UnknownStatus = "Unknown"

var (
	workOrderBadges = map[string]Variant{
		"PENDING":     Warning,
		"ASSIGNED":    Primary,
		"IN_PROGRESS": Info,
		"COMPLETED":   Success,
		"CANCELLED":   Danger,
	}
	assignedBadges = map[string]Variant{
		"PENDING":     Warning,
		"ASSIGNED":    Primary,
		"IN_PROGRESS": Info,
	}
	partBadges = map[string]Variant{
		"AVAILABLE":     Success,
		"USED":          Secondary,
		"IN_PRODUCTION": Info,
		"DEFECTIVE":     Danger,
		"RECYCLED":      Dark,
	}
	aircraftBadges = map[string]Variant{
		"ACTIVE":             Success,
		"READY_FOR_DELIVERY": Info,
		"DELIVERED":          Primary,
		"DECOMMISSIONED":     Warning,
		"RECYCLED":           Secondary,
	}
)

func lookup(m map[string]Variant, status string) Variant {
	if v, ok := m[status]; ok {
		return v
	}
	return Light
}

func WorkOrderBadge(status string) Variant     { return lookup(workOrderBadges, status) }
func AssignedOrderBadge(status string) Variant { return lookup(assignedBadges, status) }
func PartBadge(status string) Variant          { return lookup(partBadges, status) }
func AircraftBadge(status string) Variant      { return lookup(aircraftBadges, status) }

// DateLayout is the day.month.year display form.
const DateLayout = "02.01.2006"

var dateInputs = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"}

// FormatDate renders an API timestamp or date as DateLayout in the value's own offset.
// Empty values render as "-"; unparseable values are returned unchanged.
func FormatDate(s string) string {
	if s == "" {
		return "-"
	}
	for _, layout := range dateInputs {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return s
}

// ActionKind names a row button.
type ActionKind string

const (
	ActEdit    ActionKind = "edit"
	ActCancel  ActionKind = "cancel"
	ActRecycle ActionKind = "recycle"
	ActDelete  ActionKind = "delete"
	// ActAssignTeam edits the team of a personnel record.
	ActAssignTeam ActionKind = "assign-team"
)

type Action struct {
	Kind ActionKind
	ID   string
}

func workOrderActions(row Row, id roles.Identity) []Action {
	if !id.IsAdmin() {
		return nil
	}
	acts := []Action{{Kind: ActEdit, ID: row.String("id")}}
	switch row.String("status") {
	case "CANCELLED", "COMPLETED":
	default:
		acts = append(acts, Action{Kind: ActCancel, ID: row.String("id")})
	}
	return acts
}

func partRecyclable(row Row) bool {
	s := row.String("status")
	return s != "RECYCLED" && s != "USED"
}

func partActions(row Row, id roles.Identity) []Action {
	if id.CanSeeFleet() && partRecyclable(row) {
		return []Action{{Kind: ActRecycle, ID: row.String("id")}}
	}
	return nil
}

func myTeamPartActions(row Row, _ roles.Identity) []Action {
	if partRecyclable(row) {
		return []Action{{Kind: ActRecycle, ID: row.String("id")}}
	}
	return nil
}

func aircraftActions(row Row, id roles.Identity) []Action {
	team, known := row.Int("assembled_by_team")
	if row.String("status") == "RECYCLED" || !id.CanRecycleAircraft(team, known) {
		return nil
	}
	return []Action{{Kind: ActRecycle, ID: row.String("id")}}
}

func personnelActions(row Row, _ roles.Identity) []Action {
	uid := row.String("user")
	return []Action{{Kind: ActAssignTeam, ID: uid}, {Kind: ActDelete, ID: uid}}
}

func teamActions(row Row, _ roles.Identity) []Action {
	tid := row.String("id")
	return []Action{{Kind: ActEdit, ID: tid}, {Kind: ActDelete, ID: tid}}
}

// RowActions returns the buttons id may use on row of grid d.
func RowActions(d *Definition, row Row, id roles.Identity) []Action {
	if d.Actions == nil {
		return nil
	}
	return d.Actions(row, id)
}

// Cell is one rendered table cell.
type Cell struct {
	Text    string
	Variant Variant
	Kind    ColumnKind
	Actions []Action
}

// Render shapes row for display under the columns of d.
func Render(d *Definition, row Row, id roles.Identity) []Cell {
	cells := make([]Cell, 0, len(d.Columns))
	for _, c := range d.Columns {
		field := c.Data
		if c.Source != "" {
			field = c.Source
		}
		cell := Cell{Kind: c.Kind}
		switch c.Kind {
		case Actions:
			cell.Actions = RowActions(d, row, id)
			if len(cell.Actions) == 0 {
				cell.Text = "-"
			}
		case Badge:
			cell.Text = row.String(field)
			if cell.Text == "" {
				cell.Text = UnknownStatus
			}
			cell.Variant = Light
			if c.Badge != nil {
				cell.Variant = c.Badge(row.String("status"))
			}
		case Date:
			cell.Text = FormatDate(row.String(field))
		case Flag:
			if row.Bool(field) {
				cell.Text, cell.Variant = "Out of stock", Danger
			} else {
				cell.Text, cell.Variant = "Sufficient", Success
			}
		default:
			cell.Text = row.String(field)
			if cell.Text == "" {
				cell.Text = c.Default
			}
		}
		cells = append(cells, cell)
	}
	return cells
}

// StockWarnings lists a line for every depleted part stock row.
func StockWarnings(rows []Row) []string {
	var out []string
	for _, r := range rows {
		if !r.Bool("warning_zero_stock") {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s stock depleted.",
			strings.TrimSpace(r.String("aircraft_model_name")),
			strings.TrimSpace(r.String("part_type_category_display"))))
	}
	return out
}
