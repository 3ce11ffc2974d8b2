package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"aircraftconsole/internal/actions"
	"aircraftconsole/internal/console"
	"aircraftconsole/internal/grid"
	"aircraftconsole/internal/roles"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#74C7EC"))
	headStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A8593"))
)

var variantColors = map[grid.Variant]lipgloss.Color{
	grid.Success:   "#1E7A3C",
	grid.Danger:    "#B3261E",
	grid.Warning:   "#F2B705",
	grid.Info:      "#4AA3C9",
	grid.Primary:   "#1F5FA8",
	grid.Secondary: "#7A8593",
	grid.Dark:      "#585B70",
	grid.Light:     "#C9D3DE",
}

func printIdentity(id roles.Identity) {
	line := fmt.Sprintf("%s (%s)", id.Username, id.Label)
	if id.HasTeam {
		line += fmt.Sprintf(" · team #%d %s", id.TeamID, id.TeamType)
	}
	fmt.Println(dimStyle.Render(line))
}

// printPanel writes the active panel: its warnings, lookups and grids.
func printPanel(w io.Writer, c *console.Console, id roles.Identity) {
	fmt.Fprintln(w, titleStyle.Render(c.Nav.Active().Title()))
	for _, a := range c.Alerts() {
		color.New(color.FgYellow).Fprintln(w, a)
	}

	if c.Nav.Active().Fragment() == "" {
		printWarnings(w, c.Warnings())
	}
	printLookups(w, c.Lookups())
	for _, g := range c.ShownGrids() {
		printGrid(w, g, id)
	}
}

func printWarnings(w io.Writer, ws console.Warnings) {
	switch {
	case ws.Failed:
		color.New(color.FgRed).Fprintln(w, console.MsgStockWarningsFailed)
	case ws.AllClear():
		color.New(color.FgGreen).Fprintln(w, console.MsgStockAllClear)
	default:
		for _, l := range ws.Lines {
			color.New(color.FgRed).Fprintln(w, "! "+l)
		}
	}
}

func printLookups(w io.Writer, lk console.Lookups) {
	if len(lk.Models) > 0 {
		fmt.Fprintln(w, dimStyle.Render("Aircraft models:"))
		for _, m := range lk.Models {
			fmt.Fprintf(w, "  %d  %s\n", m.ID, m.Label())
		}
	}
	if len(lk.OpenWorkOrders) > 0 {
		fmt.Fprintln(w, dimStyle.Render("Open work orders:"))
		for _, o := range lk.OpenWorkOrders {
			fmt.Fprintf(w, "  %d  %s\n", o.ID, o.OptionLabel())
		}
	}
	if len(lk.AssemblyTeams) > 0 {
		fmt.Fprintln(w, dimStyle.Render("Assembly teams:"))
		for _, t := range lk.AssemblyTeams {
			fmt.Fprintf(w, "  %d  %s\n", t.ID, t.Name)
		}
	}
	if len(lk.Teams) > 0 {
		fmt.Fprintln(w, dimStyle.Render("Teams:"))
		for _, t := range lk.Teams {
			fmt.Fprintf(w, "  %d  %s\n", t.ID, t.OptionLabel())
		}
	}
}

func printGrid(w io.Writer, g *grid.Grid, id roles.Identity) {
	d := g.Definition()
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(d.Title))

	page := g.Page()
	if page == nil {
		return
	}
	if page.Alert != "" {
		color.New(color.FgRed).Fprintln(w, page.Alert)
		return
	}

	headers := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		headers[i] = c.Title
	}
	rows := make([][]string, 0, len(page.Rows))
	variants := make([][]grid.Variant, 0, len(page.Rows))
	for _, r := range page.Rows {
		cells := grid.Render(d, r, id)
		line := make([]string, len(cells))
		vs := make([]grid.Variant, len(cells))
		for i, c := range cells {
			line[i] = cellText(c)
			if c.Kind == grid.Badge || c.Kind == grid.Flag {
				vs[i] = c.Variant
			}
		}
		rows = append(rows, line)
		variants = append(variants, vs)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			if row >= 0 && row < len(variants) && col < len(variants[row]) {
				if fg, ok := variantColors[variants[row][col]]; ok {
					return cellStyle.Foreground(fg)
				}
			}
			return cellStyle
		})
	fmt.Fprintln(w, t)

	st := g.State()
	info := "No entries"
	if page.RecordsFiltered > 0 {
		info = fmt.Sprintf("Showing %d to %d of %d entries · page %d of %d",
			st.Start+1, st.Start+len(page.Rows), page.RecordsFiltered, st.Page()+1, page.Pages(st))
	}
	fmt.Fprintln(w, dimStyle.Render(info))
}

// cellText is what a terminal shows for c. Row actions become "verb #id".
func cellText(c grid.Cell) string {
	if c.Kind != grid.Actions {
		return c.Text
	}
	parts := make([]string, 0, len(c.Actions))
	for _, a := range c.Actions {
		parts = append(parts, fmt.Sprintf("%s #%s", a.Kind, a.ID))
	}
	return strings.Join(parts, ", ")
}

// printOutcome reports an action's result and returns the exit code.
func printOutcome(c *console.Console, out actions.Outcome) int {
	for _, a := range c.Alerts() {
		color.New(color.FgYellow).Fprintln(os.Stderr, a)
	}
	switch {
	case out.Err != "":
		color.New(color.FgRed).Fprintln(os.Stderr, out.Err)
		for _, m := range out.MissingParts {
			fmt.Fprintln(os.Stderr, "  - "+m)
		}
		return 1
	case out.Aborted:
		color.Yellow("Nothing done.")
		return 1
	case out.Notice != "":
		color.Green("%s", out.Notice)
	}
	return 0
}
