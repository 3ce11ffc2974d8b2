package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/roles"
)

// Lookup endpoints.
const (
	ModelsEndpoint     = "aircraft-models/"
	PartTypesEndpoint  = "part-types/"
	TeamsEndpoint      = "teams/"
	WorkOrdersEndpoint = "work-orders/"
	PersonnelEndpoint  = "personnel/"
)

// OpenStatuses are the work order statuses an aircraft can be assembled against.
const OpenStatuses = "PENDING,ASSIGNED,IN_PROGRESS"

type AircraftModel struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	NameDisplay string `json:"name_display"`
	ImageURL    string `json:"image_url"`
}

// Label prefers the display name.
func (m AircraftModel) Label() string {
	if m.NameDisplay != "" {
		return m.NameDisplay
	}
	return m.Name
}

type PartType struct {
	ID              int    `json:"id"`
	Category        string `json:"category"`
	CategoryDisplay string `json:"category_display"`
}

type Team struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	TeamType           string `json:"team_type"`
	TeamTypeDisplay    string `json:"team_type_display"`
	CanPerformAssembly bool   `json:"can_perform_assembly"`
	PersonnelCount     int    `json:"personnel_count"`
}

func (t Team) OptionLabel() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.TeamTypeDisplay)
}

type WorkOrder struct {
	ID                int     `json:"id"`
	AircraftModel     int     `json:"aircraft_model"`
	AircraftModelName string  `json:"aircraft_model_name"`
	Quantity          int     `json:"quantity"`
	Status            string  `json:"status"`
	StatusDisplay     string  `json:"status_display"`
	AssignedTeam      *int    `json:"assigned_to_assembly_team"`
	AssignedTeamName  string  `json:"assigned_to_assembly_team_name"`
	TargetDate        *string `json:"target_completion_date"`
	Notes             string  `json:"notes"`
	CreatedByUsername string  `json:"created_by_username"`
}

func (w WorkOrder) OptionLabel() string {
	return fmt.Sprintf("#%d - %s (%d pcs) - Status: %s", w.ID, w.AircraftModelName, w.Quantity, w.StatusDisplay)
}

// Personnel is one personnel record, keyed by its user id.
type Personnel struct {
	User            int    `json:"user"`
	UserUsername    string `json:"user_username"`
	UserEmail       string `json:"user_email"`
	Team            *int   `json:"team"`
	TeamName        string `json:"team_name"`
	TeamType        string `json:"team_type"`
	TeamTypeDisplay string `json:"team_type_display"`
}

// Lookups are the option lists the open panel's forms and filters draw from.
type Lookups struct {
	Models         []AircraftModel
	AssemblyTeams  []Team
	PartTypes      []PartType
	OpenWorkOrders []WorkOrder
	Teams          []Team
}

// Lookups returns what has been loaded so far.
func (c *Console) Lookups() Lookups {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}

// fetchList loads a lookup list. Failures go to the alerter and leave out empty.
func fetchList[T any](ctx context.Context, c *Console, call gateway.Call) ([]T, error) {
	call.Method = http.MethodGet
	var (
		out []T
		err error
	)
	c.Gateway.Request(ctx, call, func(body json.RawMessage) {
		var l *gateway.List
		if l, err = gateway.ParseList(body); err != nil {
			return
		}
		out, err = gateway.DecodeRows[T](l)
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", call.Endpoint, err)
	}
	return out, nil
}

func (c *Console) LoadModels(ctx context.Context) error {
	models, err := fetchList[AircraftModel](ctx, c, gateway.Call{Endpoint: ModelsEndpoint})
	c.mu.Lock()
	c.lookups.Models = models
	c.mu.Unlock()
	return err
}

func (c *Console) LoadAssemblyTeams(ctx context.Context) error {
	teams, err := fetchList[Team](ctx, c, gateway.Call{
		Endpoint: TeamsEndpoint,
		Payload:  map[string]string{"team_type": roles.AssemblyTeam},
	})
	c.mu.Lock()
	c.lookups.AssemblyTeams = teams
	c.mu.Unlock()
	return err
}

func (c *Console) LoadPartTypes(ctx context.Context) error {
	types, err := fetchList[PartType](ctx, c, gateway.Call{Endpoint: PartTypesEndpoint})
	c.mu.Lock()
	c.lookups.PartTypes = types
	c.mu.Unlock()
	return err
}

// LoadOpenWorkOrders fills the work orders an assembly can be booked against.
func (c *Console) LoadOpenWorkOrders(ctx context.Context) error {
	orders, err := fetchList[WorkOrder](ctx, c, gateway.Call{
		Endpoint: WorkOrdersEndpoint,
		Payload:  map[string]string{"status": OpenStatuses},
	})
	c.mu.Lock()
	c.lookups.OpenWorkOrders = orders
	c.mu.Unlock()
	return err
}

// LoadTeams fills every team, used by the personnel team selector.
func (c *Console) LoadTeams(ctx context.Context) error {
	teams, err := fetchList[Team](ctx, c, gateway.Call{
		Endpoint: TeamsEndpoint,
		Payload:  map[string]any{"length": -1},
	})
	c.mu.Lock()
	c.lookups.Teams = teams
	c.mu.Unlock()
	return err
}

func (c *Console) detail(ctx context.Context, endpoint string, v any) error {
	body, err := c.Gateway.Do(ctx, gateway.Call{Endpoint: endpoint, Method: http.MethodGet})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// WorkOrder loads one work order for the edit form.
func (c *Console) WorkOrder(ctx context.Context, id int) (*WorkOrder, error) {
	var w WorkOrder
	if err := c.detail(ctx, WorkOrdersEndpoint+strconv.Itoa(id)+"/", &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Personnel loads one personnel record by user id.
func (c *Console) Personnel(ctx context.Context, userID string) (*Personnel, error) {
	var p Personnel
	if err := c.detail(ctx, PersonnelEndpoint+userID+"/", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Console) Team(ctx context.Context, id int) (*Team, error) {
	var t Team
	if err := c.detail(ctx, TeamsEndpoint+strconv.Itoa(id)+"/", &t); err != nil {
		return nil, err
	}
	return &t, nil
}
