package nav

import (
	"strings"

	"aircraftconsole/internal/roles"
)

// Panel identifies one content panel of the dashboard.
type Panel string

const (
	Dashboard          Panel = "dashboard"
	WorkOrders         Panel = "work-orders"
	StockLevels        Panel = "stock-levels"
	Aircraft           Panel = "aircraft"
	Parts              Panel = "parts"
	AssignedWorkOrders Panel = "assigned-work-orders"
	AssembleAircraft   Panel = "assemble-aircraft"
	ProducePart        Panel = "produce-part"
	MyTeamParts        Panel = "my-team-parts"
	Personnel          Panel = "personnel"
	Teams              Panel = "teams"
)

// Panels lists every panel.
var Panels = []Panel{
	Dashboard, WorkOrders, StockLevels, Aircraft, Parts, AssignedWorkOrders,
	AssembleAircraft, ProducePart, MyTeamParts, Personnel, Teams,
}

const contentSuffix = "-content"

var titles = map[Panel]string{
	Dashboard:          "Dashboard",
	WorkOrders:         "Work orders",
	StockLevels:        "Stock levels",
	Aircraft:           "Aircraft",
	Parts:              "Parts",
	AssignedWorkOrders: "Assigned work orders",
	AssembleAircraft:   "Assemble aircraft",
	ProducePart:        "Produce part",
	MyTeamParts:        "My team's parts",
	Personnel:          "Personnel",
	Teams:              "Teams",
}

func (p Panel) Title() string { return titles[p] }

// ContentID is the id of the panel's content element.
func (p Panel) ContentID() string { return string(p) + contentSuffix }

// Fragment is the URL fragment addressing p. The dashboard has none.
func (p Panel) Fragment() string {
	if p == Dashboard {
		return ""
	}
	return string(p)
}

func (p Panel) Valid() bool {
	_, ok := titles[p]
	return ok
}

// Parse maps a fragment to its panel.
func Parse(fragment string) (Panel, bool) {
	p := Panel(strings.TrimPrefix(fragment, "#"))
	return p, p.Valid()
}

// FromContentID maps a content id to its panel.
func FromContentID(id string) (Panel, bool) {
	if !strings.HasSuffix(id, contentSuffix) {
		return "", false
	}
	return Parse(strings.TrimSuffix(id, contentSuffix))
}

// MenuEntry is one sidebar link. An entry with no regions is common to every role.
type MenuEntry struct {
	Panel   Panel
	Regions []roles.Region
}

func (e MenuEntry) VisibleTo(id roles.Identity) bool {
	if len(e.Regions) == 0 {
		return true
	}
	r := id.Region()
	for _, want := range e.Regions {
		if want == r {
			return true
		}
	}
	return false
}

// Menu is the sidebar in display order.
var Menu = []MenuEntry{
	{Panel: Dashboard},
	{Panel: StockLevels},
	{Panel: WorkOrders, Regions: []roles.Region{roles.RegionAdmin}},
	{Panel: AssignedWorkOrders, Regions: []roles.Region{roles.RegionAssembler}},
	{Panel: AssembleAircraft, Regions: []roles.Region{roles.RegionAssembler}},
	{Panel: ProducePart, Regions: []roles.Region{roles.RegionProducer}},
	{Panel: MyTeamParts, Regions: []roles.Region{roles.RegionProducer}},
	{Panel: Parts, Regions: []roles.Region{roles.RegionAdmin, roles.RegionAssembler}},
	{Panel: Aircraft, Regions: []roles.Region{roles.RegionAdmin, roles.RegionAssembler}},
	{Panel: Personnel, Regions: []roles.Region{roles.RegionAdmin}},
	{Panel: Teams, Regions: []roles.Region{roles.RegionAdmin}},
}

func inMenu(p Panel) bool {
	for _, e := range Menu {
		if e.Panel == p {
			return true
		}
	}
	return false
}
