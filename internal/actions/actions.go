// Package actions implements the console's mutating flows: read a form, validate it,
// confirm destructive steps, call the API and refresh the affected grids.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"aircraftconsole/internal/gateway"
	"aircraftconsole/internal/grid"
	"aircraftconsole/internal/location"
	"aircraftconsole/internal/logging"
	"aircraftconsole/internal/roles"
	"aircraftconsole/internal/session"
)

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Outcome is what a flow leaves for the front end to show.
type Outcome struct {
	Notice string
	// Err is the inline error. Empty on success.
	Err          string
	MissingParts []string
	CloseModal   bool
	// Aborted is set when a confirmation was declined or the trigger was already busy.
	Aborted  bool
	Redirect string
	// Serial is the serial number of an assembled aircraft or produced part.
	Serial string
}

func (o Outcome) OK() bool { return o.Err == "" && !o.Aborted }

// URLs are the endpoints the session flows use.
type URLs struct {
	APILogin    string
	APIUserMe   string
	APIRegister string
	LoginPage   string
	Dashboard   string
}

// Fixed messages.
const (
	MsgLoginFailed      = "Login failed. Please check your details."
	MsgBadCredentials   = "Username or password is incorrect."
	MsgSessionLost      = "Could not load session information or token invalid. Please log in again."
	MsgRegistered       = "Registration successful! Please log in."
	MsgRegisterFailed   = "An error occurred during registration."
	MsgAssemblyFailed   = "An error occurred during assembly."
	MsgProduceServerErr = "A server error occurred (serial number conflict or an unexpected problem). Please try again later or contact your system administrator."
)

// Trigger ids of the submit controls.
const (
	TriggerLogin     = "login-button"
	TriggerRegister  = "register-button"
	TriggerWorkOrder = "save-work-order"
	TriggerAssemble  = "assemble-aircraft-submit"
	TriggerProduce   = "produce-part-submit"
	TriggerPersonnel = "save-personnel"
	TriggerTeam      = "save-team"
)

type Handlers struct {
	Gateway  *gateway.Gateway
	Store    *session.Store
	Grids    *grid.Registry
	Location location.Location
	Confirm  Confirmer
	URLs     URLs
	// Identity returns the current role for grid reloads.
	Identity func() roles.Identity
}

func (h *Handlers) env() grid.Env {
	id := roles.Resolve(h.Store.Current().CurrentUser)
	if h.Identity != nil {
		id = h.Identity()
	}
	return grid.Env{Fetch: h.Gateway, Identity: id}
}

func (h *Handlers) reload(ctx context.Context, names ...string) {
	env := h.env()
	for _, n := range names {
		if err := h.Grids.ReloadIfBound(ctx, env, n); err != nil {
			logging.From(ctx).Warn("actions.reload", "grid", n, "error", err)
		}
	}
}

func (h *Handlers) confirmed(ctx context.Context, prompt string) bool {
	if h.Confirm == nil {
		return false
	}
	return h.Confirm.Confirm(ctx, prompt)
}

// call runs c through the gateway's callback form and reports the outcome.
func (h *Handlers) call(ctx context.Context, c gateway.Call) (body json.RawMessage, apiErr *gateway.APIError, ran bool) {
	h.Gateway.Request(ctx, c,
		func(b json.RawMessage) { body, ran = b, true },
		func(_ string, e *gateway.APIError) { apiErr, ran = e, true },
	)
	return body, apiErr, ran
}

func button(id, label string) *gateway.Button { return gateway.NewButton(id, label) }

// Login exchanges credentials for a token, loads the profile and redirects to next
// or the dashboard.
func (h *Handlers) Login(ctx context.Context, f LoginForm) Outcome {
	if msg := check(f); msg != "" {
		return Outcome{Err: msg}
	}
	body, apiErr, ran := h.call(ctx, gateway.Call{
		Endpoint: h.URLs.APILogin,
		Method:   http.MethodPost,
		Payload:  map[string]string{"username": f.Username, "password": f.Password},
		Trigger:  button(TriggerLogin, "Log in"),
		Label:    "Log in",
	})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: loginError(apiErr)}
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" {
		return Outcome{Err: MsgLoginFailed}
	}
	if err := h.Store.Save(ctx, session.Session{AuthToken: resp.Token}); err != nil {
		logging.From(ctx).Error("actions.login_save", "error", err)
		return Outcome{Err: MsgLoginFailed}
	}

	u, err := roles.FetchProfile(ctx, h.Gateway, h.URLs.APIUserMe)
	if err == nil {
		err = h.Store.Save(ctx, session.Session{AuthToken: resp.Token, CurrentUser: u})
	}
	if err != nil {
		logging.From(ctx).Warn("actions.login_profile", "error", err)
		if cerr := h.Store.Clear(ctx); cerr != nil {
			logging.From(ctx).Error("actions.login_clear", "error", cerr)
		}
		return Outcome{Err: MsgSessionLost}
	}

	target := h.URLs.Dashboard
	if next := location.Next(h.Location); next != "" {
		target = next
	}
	logging.From(ctx).Info("actions.login", "user", u.Username)
	return Outcome{Redirect: target}
}

func loginError(e *gateway.APIError) string {
	var body struct {
		NonField []string `json:"non_field_errors"`
	}
	if e.JSON() && e.Decode(&body) == nil && len(body.NonField) > 0 {
		return strings.Join(body.NonField, ", ")
	}
	if e.Status == http.StatusBadRequest {
		return MsgBadCredentials
	}
	return MsgLoginFailed
}

// Logout clears the session and returns to the login page.
func (h *Handlers) Logout(ctx context.Context) Outcome {
	if err := h.Store.Clear(ctx); err != nil {
		logging.From(ctx).Error("actions.logout", "error", err)
	}
	h.Grids.Reset()
	return Outcome{Redirect: h.URLs.LoginPage}
}

// Register creates an account. Field errors are listed one per line.
func (h *Handlers) Register(ctx context.Context, f RegisterForm) Outcome {
	body, apiErr, ran := h.call(ctx, gateway.Call{
		Endpoint: h.URLs.APIRegister,
		Method:   http.MethodPost,
		Payload: map[string]string{
			"username":  f.Username,
			"email":     f.Email,
			"password":  f.Password,
			"password2": f.Password2,
		},
		Trigger: button(TriggerRegister, "Register"),
		Label:   "Register",
	})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		if apiErr.Kind == gateway.KindField {
			return Outcome{Err: gateway.FormatFields(apiErr.Fields, "\n")}
		}
		if apiErr.JSON() {
			return Outcome{Err: apiErr.Message}
		}
		return Outcome{Err: MsgRegisterFailed}
	}
	var resp struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Message == "" {
		resp.Message = MsgRegistered
	}
	return Outcome{Notice: resp.Message, Redirect: h.URLs.LoginPage}
}

// SaveWorkOrder creates or updates a work order.
func (h *Handlers) SaveWorkOrder(ctx context.Context, f WorkOrderForm) Outcome {
	if msg := check(f); msg != "" {
		return Outcome{Err: msg}
	}
	c := gateway.Call{
		Endpoint: "work-orders/",
		Method:   http.MethodPost,
		Payload:  f.body(),
		Trigger:  button(TriggerWorkOrder, "Save"),
	}
	notice := "Work order created."
	if f.ID != "" {
		c.Endpoint, c.Method = "work-orders/"+f.ID+"/", http.MethodPut
		notice = "Work order updated."
	}
	_, apiErr, ran := h.call(ctx, c)
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: apiErr.Message}
	}
	h.reload(ctx, grid.WorkOrders.Name)
	return Outcome{Notice: notice, CloseModal: true}
}

// CancelWorkOrder retires a work order after confirmation.
func (h *Handlers) CancelWorkOrder(ctx context.Context, id string) Outcome {
	if !h.confirmed(ctx, fmt.Sprintf("Work order #%s will be cancelled (this cannot be undone). Are you sure?", id)) {
		return Outcome{Aborted: true}
	}
	_, apiErr, ran := h.call(ctx, gateway.Call{Endpoint: "work-orders/" + id + "/", Method: http.MethodDelete})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: apiErr.Message}
	}
	h.reload(ctx, grid.WorkOrders.Name)
	return Outcome{Notice: fmt.Sprintf("Work order #%s cancelled.", id)}
}

// Assemble builds an aircraft from stock, optionally against a work order.
func (h *Handlers) Assemble(ctx context.Context, f AssembleForm) Outcome {
	if msg := check(f); msg != "" {
		return Outcome{Err: msg}
	}
	body, apiErr, ran := h.call(ctx, gateway.Call{
		Endpoint: "assembly/assemble-aircraft/",
		Method:   http.MethodPost,
		Payload: struct {
			AircraftModelID int  `json:"aircraft_model_id"`
			WorkOrderID     *int `json:"work_order_id"`
		}{f.AircraftModel, f.WorkOrder},
		Trigger: button(TriggerAssemble, "Assemble"),
		Label:   "Assemble",
	})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return assemblyError(apiErr)
	}
	var resp struct {
		SerialNumber string `json:"serial_number"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		logging.From(ctx).Warn("actions.assemble_decode", "error", err)
	}
	h.reload(ctx, grid.PartStock.Name, grid.AircraftStock.Name, grid.Aircraft.Name)
	return Outcome{
		Notice: "Aircraft assembled! Serial number: " + resp.SerialNumber,
		Serial: resp.SerialNumber,
	}
}

func assemblyError(e *gateway.APIError) Outcome {
	var body struct {
		Error        string   `json:"error"`
		MissingParts []string `json:"missing_parts"`
	}
	if e.JSON() && e.Decode(&body) == nil && body.Error != "" && body.MissingParts != nil {
		return Outcome{Err: body.Error, MissingParts: body.MissingParts}
	}
	if e.Message == "" {
		return Outcome{Err: MsgAssemblyFailed}
	}
	return Outcome{Err: e.Message}
}

// Produce creates one part of the caller's team type for a model.
func (h *Handlers) Produce(ctx context.Context, f ProduceForm) Outcome {
	if msg := check(f); msg != "" {
		return Outcome{Err: msg}
	}
	body, apiErr, ran := h.call(ctx, gateway.Call{
		Endpoint: "parts/",
		Method:   http.MethodPost,
		Payload:  map[string]int{"aircraft_model_compatibility": f.AircraftModel},
		Trigger:  button(TriggerProduce, "Produce"),
		Label:    "Produce",
	})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		if apiErr.Status == http.StatusInternalServerError {
			return Outcome{Err: MsgProduceServerErr}
		}
		return Outcome{Err: apiErr.Message}
	}
	var resp struct {
		SerialNumber string `json:"serial_number"`
		PartType     string `json:"part_type_display"`
		Model        string `json:"aircraft_model_compatibility_name"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		logging.From(ctx).Warn("actions.produce_decode", "error", err)
	}
	h.reload(ctx, grid.PartStock.Name, grid.MyTeamParts.Name)
	return Outcome{
		Notice: fmt.Sprintf("Part produced! Serial number: %s (%s for %s)", resp.SerialNumber, resp.PartType, resp.Model),
		Serial: resp.SerialNumber,
	}
}

// RecyclePart retires a part after confirmation.
func (h *Handlers) RecyclePart(ctx context.Context, id string) Outcome {
	if !h.confirmed(ctx, fmt.Sprintf("Part #%s will be recycled (deleted). Are you sure?", id)) {
		return Outcome{Aborted: true}
	}
	_, apiErr, ran := h.call(ctx, gateway.Call{Endpoint: "parts/" + id + "/", Method: http.MethodDelete})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: "Error while recycling part: " + apiErr.Message}
	}
	h.reload(ctx, grid.Parts.Name, grid.MyTeamParts.Name)
	return Outcome{Notice: "Part recycled."}
}

// RecycleAircraft retires an aircraft after confirmation.
func (h *Handlers) RecycleAircraft(ctx context.Context, id string) Outcome {
	if !h.confirmed(ctx, fmt.Sprintf("Aircraft #%s will be recycled (deleted). Are you sure?", id)) {
		return Outcome{Aborted: true}
	}
	_, apiErr, ran := h.call(ctx, gateway.Call{Endpoint: "aircraft/" + id + "/", Method: http.MethodDelete})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: "Error while recycling aircraft: " + apiErr.Message}
	}
	h.reload(ctx, grid.Aircraft.Name)
	return Outcome{Notice: "Aircraft recycled."}
}

// SavePersonnel changes the team of one personnel record.
func (h *Handlers) SavePersonnel(ctx context.Context, f PersonnelForm) Outcome {
	if msg := check(f); msg != "" {
		return Outcome{Err: msg}
	}
	_, apiErr, ran := h.call(ctx, gateway.Call{
		Endpoint: "personnel/" + f.UserID + "/",
		Method:   http.MethodPatch,
		Payload:  map[string]*int{"team": f.Team},
		Trigger:  button(TriggerPersonnel, "Save"),
	})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: apiErr.Message}
	}
	h.reload(ctx, grid.Personnel.Name)
	return Outcome{Notice: "Personnel team updated.", CloseModal: true}
}

// DeletePersonnel removes a personnel record and its user account after confirmation.
func (h *Handlers) DeletePersonnel(ctx context.Context, userID string) Outcome {
	prompt := fmt.Sprintf("Personnel (user ID: %s) and the linked user account will be deleted. This cannot be undone. Are you sure?", userID)
	if !h.confirmed(ctx, prompt) {
		return Outcome{Aborted: true}
	}
	_, apiErr, ran := h.call(ctx, gateway.Call{Endpoint: "personnel/" + userID + "/", Method: http.MethodDelete})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: "Error while deleting personnel: " + apiErr.Message}
	}
	h.reload(ctx, grid.Personnel.Name)
	return Outcome{Notice: "Personnel deleted."}
}

// SaveTeam creates or updates a team.
func (h *Handlers) SaveTeam(ctx context.Context, f TeamForm) Outcome {
	if msg := check(f); msg != "" {
		return Outcome{Err: msg}
	}
	c := gateway.Call{
		Endpoint: "teams/",
		Method:   http.MethodPost,
		Payload:  map[string]string{"name": f.Name, "team_type": f.TeamType},
		Trigger:  button(TriggerTeam, "Save"),
	}
	notice := "Team created."
	if f.ID != "" {
		c.Endpoint, c.Method = "teams/"+f.ID+"/", http.MethodPut
		notice = "Team updated."
	}
	_, apiErr, ran := h.call(ctx, c)
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: apiErr.Message}
	}
	h.reload(ctx, grid.Teams.Name)
	return Outcome{Notice: notice, CloseModal: true}
}

// DeleteTeam removes a team after confirmation. Its members are left without a team.
func (h *Handlers) DeleteTeam(ctx context.Context, id string) Outcome {
	prompt := fmt.Sprintf("Team #%s will be deleted. This cannot be undone. Are you sure? (Its personnel will be left without a team.)", id)
	if !h.confirmed(ctx, prompt) {
		return Outcome{Aborted: true}
	}
	_, apiErr, ran := h.call(ctx, gateway.Call{Endpoint: "teams/" + id + "/", Method: http.MethodDelete})
	if !ran {
		return Outcome{Aborted: true}
	}
	if apiErr != nil {
		return Outcome{Err: "Error while deleting team: " + apiErr.Message}
	}
	h.reload(ctx, grid.Teams.Name)
	return Outcome{Notice: "Team deleted."}
}
