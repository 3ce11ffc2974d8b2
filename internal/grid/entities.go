package grid

import "aircraftconsole/internal/roles"

// Stock type query values.
const (
	StockParts    = "parts"
	StockAircraft = "aircrafts"
)

func adminOnly(id roles.Identity) bool { return id.IsAdmin() }

var WorkOrders = &Definition{
	Name:     "work-orders",
	Title:    "Work orders",
	Endpoint: "work-orders/",
	Columns: []Column{
		{Data: "id", Title: "ID"},
		{Data: "aircraft_model_name", Title: "Aircraft model", Default: "-"},
		{Data: "quantity", Title: "Quantity"},
		{Data: "status_display", Title: "Status", Kind: Badge, Badge: WorkOrderBadge},
		{Data: "assigned_to_assembly_team_name", Title: "Assigned team", Default: "-"},
		{Data: "created_by_username", Title: "Created by", Default: "-"},
		{Data: "created_at", Title: "Created", Kind: Date},
		{Title: "Actions", Kind: Actions},
	},
	FieldMap: map[string]string{
		"aircraft_model_name":            "aircraft_model__name",
		"status_display":                 "status",
		"assigned_to_assembly_team_name": "assigned_to_assembly_team__name",
		"created_by_username":            "created_by__username",
	},
	AllLength:    999999,
	DefaultOrder: Order{Column: 0, Desc: true},
	Filters:      []Filter{{Param: "status", Label: "Status"}},
	LoadError:    "Could not load work orders.",
	Actions:      workOrderActions,
}

var AssignedWorkOrders = &Definition{
	Name:     "assigned-work-orders",
	Title:    "Assigned work orders",
	Endpoint: "work-orders/",
	Columns: []Column{
		{Data: "id", Title: "ID"},
		{Data: "aircraft_model_name", Title: "Aircraft model", Default: "-"},
		{Data: "quantity", Title: "Quantity"},
		{Data: "status_display", Title: "Status", Kind: Badge, Badge: AssignedOrderBadge},
		{Data: "assigned_to_assembly_team_name", Title: "Assigned team", Default: "Unassigned"},
		{Data: "created_at", Title: "Created", Kind: Date},
		{Data: "target_completion_date", Title: "Target date", Kind: Date},
	},
	FieldMap: map[string]string{
		"aircraft_model_name":            "aircraft_model__name",
		"status_display":                 "status",
		"assigned_to_assembly_team_name": "assigned_to_assembly_team__name",
	},
	AllLength:    99999,
	DefaultOrder: Order{Column: 0, Desc: true},
	LoadError:    "Could not load assigned work orders.",
}

var Parts = &Definition{
	Name:     "parts",
	Title:    "Parts",
	Endpoint: "parts/",
	Columns: []Column{
		{Data: "id", Title: "ID"},
		{Data: "serial_number", Title: "Serial number"},
		{Data: "part_type_display", Title: "Part type", Default: "-"},
		{Data: "aircraft_model_compatibility_name", Title: "Compatible model", Default: "-"},
		{Data: "status_display", Title: "Status", Kind: Badge, Badge: PartBadge},
		{Data: "produced_by_team_name", Title: "Produced by team", Default: "-"},
		{Data: "created_by_personnel_username", Title: "Produced by", Default: "-"},
		{Data: "production_date", Title: "Produced", Kind: Date},
		{Data: "installed_aircraft_info", Title: "Installed in", Default: "-"},
		{Title: "Actions", Kind: Actions},
	},
	FieldMap: map[string]string{
		"part_type_display":                 "part_type__category",
		"aircraft_model_compatibility_name": "aircraft_model_compatibility__name",
		"produced_by_team_name":             "produced_by_team__name",
		"created_by_personnel_username":     "created_by_personnel__user__username",
		"status_display":                    "status",
		"installed_aircraft_info":           NotSortable,
	},
	AllLength:    99999,
	DefaultOrder: Order{Column: 0, Desc: true},
	Filters: []Filter{
		{Param: "status", Label: "Status"},
		{Param: "part_type", Label: "Part type"},
		{Param: "aircraft_model_compatibility", Label: "Aircraft model"},
	},
	LoadError: "Could not load parts.",
	Actions:   partActions,
}

var MyTeamParts = &Definition{
	Name:     "my-team-parts",
	Title:    "My team's parts",
	Endpoint: "parts/",
	Columns: []Column{
		{Data: "id", Title: "ID"},
		{Data: "serial_number", Title: "Serial number"},
		{Data: "aircraft_model_compatibility_name", Title: "Compatible model", Default: "-"},
		{Data: "status_display", Title: "Status", Kind: Badge, Badge: PartBadge},
		{Data: "production_date", Title: "Produced", Kind: Date},
		{Data: "installed_aircraft_info", Title: "Installed in", Default: "-"},
		{Title: "Actions", Kind: Actions},
	},
	FieldMap: map[string]string{
		"aircraft_model_compatibility_name": "aircraft_model_compatibility__name",
		"status_display":                    "status",
	},
	AllLength:    10000,
	DefaultOrder: Order{Column: 0, Desc: true},
	Filters: []Filter{
		{Param: "status", Label: "Status"},
		{Param: "aircraft_model_compatibility", Label: "Aircraft model"},
	},
	LoadError: "Could not load your team's parts.",
	Actions:   myTeamPartActions,
}

var Aircraft = &Definition{
	Name:     "aircraft",
	Title:    "Aircraft",
	Endpoint: "aircraft/",
	Columns: []Column{
		{Data: "id", Title: "ID"},
		{Data: "serial_number", Title: "Serial number"},
		{Data: "aircraft_model_name", Title: "Aircraft model", Default: "-"},
		{Data: "status_display", Title: "Status", Kind: Badge, Badge: AircraftBadge},
		{Data: "assembled_by_team_name", Title: "Assembly team", Default: "-"},
		{Data: "assembly_date", Title: "Assembled", Kind: Date},
		{Data: "work_order_id_display", Source: "work_order", Title: "Work order", Default: "-"},
		{Title: "Actions", Kind: Actions},
	},
	FieldMap: map[string]string{
		"aircraft_model_name":    "aircraft_model__name",
		"status_display":         "status",
		"assembled_by_team_name": "assembled_by_team__name",
		"work_order_id_display":  "work_order__id",
	},
	AllLength:    99999,
	DefaultOrder: Order{Column: 0, Desc: true},
	Filters: []Filter{
		{Param: "status", Label: "Status"},
		{Param: "aircraft_model", Label: "Aircraft model"},
		{Param: "assembled_by_team", Label: "Assembly team", Allow: adminOnly},
	},
	LoadError: "Could not load aircraft.",
	Actions:   aircraftActions,
}

var PartStock = &Definition{
	Name:      "part-stock",
	Title:     "Part stock",
	Endpoint:  "inventory/stock-levels/",
	BaseQuery: map[string][]string{"stock_type": {StockParts}},
	Columns: []Column{
		{Data: "aircraft_model_name", Title: "Aircraft model"},
		{Data: "part_type_category_display", Title: "Part type"},
		{Data: "AVAILABLE", Title: "Available"},
		{Data: "USED", Title: "Used"},
		{Data: "RECYCLED", Title: "Recycled"},
		{Data: "warning_zero_stock", Title: "Warning", Kind: Flag},
	},
	AllLength:    -1,
	PageLength:   -1,
	DefaultOrder: Order{Column: 0},
	NoSearch:     true,
	LoadError:    "Could not load part stock.",
}

var AircraftStock = &Definition{
	Name:      "aircraft-stock",
	Title:     "Aircraft stock",
	Endpoint:  "inventory/stock-levels/",
	BaseQuery: map[string][]string{"stock_type": {StockAircraft}},
	Columns: []Column{
		{Data: "aircraft_model_name", Title: "Aircraft model"},
		{Data: "AVAILABLE", Title: "Ready (active)"},
		{Data: "SOLD", Title: "Sold"},
		{Data: "MAINTENANCE", Title: "In maintenance"},
		{Data: "RECYCLED", Title: "Recycled"},
	},
	AllLength:    -1,
	PageLength:   -1,
	DefaultOrder: Order{Column: 0},
	NoSearch:     true,
	LoadError:    "Could not load aircraft stock.",
}

var Personnel = &Definition{
	Name:     "personnel",
	Title:    "Personnel",
	Endpoint: "personnel/",
	Columns: []Column{
		{Data: "user", Title: "User ID"},
		{Data: "user_username", Title: "Username", Default: "-"},
		{Data: "user_email", Title: "Email", Default: "-"},
		{Data: "team_name", Title: "Team", Default: "Unassigned"},
		{Title: "Actions", Kind: Actions},
	},
	DefaultOrder: Order{Column: 1},
	LoadError:    "Could not load personnel.",
	Actions:      personnelActions,
}

var Teams = &Definition{
	Name:     "teams",
	Title:    "Teams",
	Endpoint: "teams/",
	Columns: []Column{
		{Data: "id", Title: "ID"},
		{Data: "name", Title: "Team name"},
		{Data: "team_type_display", Title: "Team type"},
		{Data: "personnel_count", Title: "Personnel", Default: "0", Unsortable: true},
		{Title: "Actions", Kind: Actions},
	},
	DefaultOrder: Order{Column: 1},
	LoadError:    "Could not load teams.",
	Actions:      teamActions,
}

// All lists every grid definition.
var All = []*Definition{
	WorkOrders, AssignedWorkOrders, Parts, MyTeamParts, Aircraft,
	PartStock, AircraftStock, Personnel, Teams,
}

// ByName finds a definition by its selector.
func ByName(name string) (*Definition, bool) {
	for _, d := range All {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
