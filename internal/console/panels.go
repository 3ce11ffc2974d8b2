package console

import (
	"aircraftconsole/internal/grid"
	"aircraftconsole/internal/nav"
)

var panelGrids = map[nav.Panel][]*grid.Definition{
	nav.WorkOrders:         {grid.WorkOrders},
	nav.StockLevels:        {grid.PartStock, grid.AircraftStock},
	nav.Aircraft:           {grid.Aircraft},
	nav.Parts:              {grid.Parts},
	nav.AssignedWorkOrders: {grid.AssignedWorkOrders},
	nav.MyTeamParts:        {grid.MyTeamParts},
	nav.Personnel:          {grid.Personnel},
	nav.Teams:              {grid.Teams},
}

// PanelGrids lists the grids p shows, in display order.
func PanelGrids(p nav.Panel) []*grid.Definition { return panelGrids[p] }

// ShownGrids are the grids of the active panel that have been bound.
func (c *Console) ShownGrids() []*grid.Grid {
	var out []*grid.Grid
	for _, d := range PanelGrids(c.Nav.Active()) {
		if g, ok := c.Grids.Get(d.Name); ok {
			out = append(out, g)
		}
	}
	return out
}
