package actions

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps "Struct.Field" to the inline message shown when it fails.
var fieldMessages = map[string]string{
	"LoginForm.Username":          "Please enter your username and password.",
	"LoginForm.Password":          "Please enter your username and password.",
	"WorkOrderForm.AircraftModel": "Please select an aircraft model.",
	"WorkOrderForm.Quantity":      "Please enter a valid quantity.",
	"AssembleForm.AircraftModel":  "Please select an aircraft model.",
	"ProduceForm.AircraftModel":   "Please select a compatible aircraft model.",
	"PersonnelForm.UserID":        "No personnel record to save.",
	"TeamForm.Name":               "Please enter a team name.",
	"TeamForm.TeamType":           "Please select a team type.",
}

// check returns the message of the first failing field, or "".
func check(form any) string {
	err := validate.Struct(form)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	first := verrs[0]
	if msg, ok := fieldMessages[first.StructNamespace()]; ok {
		return msg
	}
	return first.Error()
}

type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type RegisterForm struct {
	Username  string
	Email     string
	Password  string
	Password2 string
}

// WorkOrderForm creates a work order when ID is empty and updates it otherwise.
type WorkOrderForm struct {
	ID            string
	AircraftModel int `validate:"gt=0"`
	Quantity      int `validate:"gt=0"`
	AssignedTeam  *int
	// TargetDate is YYYY-MM-DD or empty.
	TargetDate string
	Notes      string
}

type AssembleForm struct {
	AircraftModel int `validate:"gt=0"`
	WorkOrder     *int
}

type ProduceForm struct {
	AircraftModel int `validate:"gt=0"`
}

// PersonnelForm assigns a team to a personnel record; a nil Team unassigns.
type PersonnelForm struct {
	UserID string `validate:"required"`
	Team   *int
}

// TeamForm creates a team when ID is empty and updates it otherwise.
type TeamForm struct {
	ID       string
	Name     string `validate:"required"`
	TeamType string `validate:"required,oneof=WING_TEAM FUSELAGE_TEAM TAIL_TEAM AVIONICS_TEAM ASSEMBLY_TEAM"`
}

type workOrderBody struct {
	AircraftModel int     `json:"aircraft_model"`
	Quantity      int     `json:"quantity"`
	AssignedTeam  *int    `json:"assigned_to_assembly_team"`
	TargetDate    *string `json:"target_completion_date"`
	Notes         string  `json:"notes"`
}

func (f WorkOrderForm) body() workOrderBody {
	b := workOrderBody{
		AircraftModel: f.AircraftModel,
		Quantity:      f.Quantity,
		AssignedTeam:  f.AssignedTeam,
		Notes:         f.Notes,
	}
	if f.TargetDate != "" {
		d := f.TargetDate
		b.TargetDate = &d
	}
	return b
}
