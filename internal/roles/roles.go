// Package roles derives what a console user may see from their profile.
package roles

import (
	"slices"

	"aircraftconsole/internal/session"
)

type Role int

const (
	Personnel Role = iota
	Admin
	Assembler
	Producer
)

func (r Role) String() string {
	switch r {
	case Admin:
		return "admin"
	case Assembler:
		return "assembler"
	case Producer:
		return "producer"
	default:
		return "personnel"
	}
}

// Team type keys used by the API.
const (
	AssemblyTeam = "ASSEMBLY_TEAM"
	WingTeam     = "WING_TEAM"
	FuselageTeam = "FUSELAGE_TEAM"
	TailTeam     = "TAIL_TEAM"
	AvionicsTeam = "AVIONICS_TEAM"
)

// ProductionTeams are the team types that produce parts.
var ProductionTeams = []string{WingTeam, FuselageTeam, TailTeam, AvionicsTeam}

// TeamTypes lists every team type with its display label, in menu order.
var TeamTypes = []struct{ Key, Label string }{
	{WingTeam, "Wing Team"},
	{FuselageTeam, "Fuselage Team"},
	{TailTeam, "Tail Team"},
	{AvionicsTeam, "Avionics Team"},
	{AssemblyTeam, "Assembly Team"},
}

// Region is a role-gated part of the UI.
type Region string

const (
	RegionAdmin     Region = "admin"
	RegionAssembler Region = "assembler"
	RegionProducer  Region = "producer"
)

const (
	LabelAdmin     = "Admin"
	LabelPersonnel = "Personnel"
)

// Identity is the resolved role of one user.
type Identity struct {
	Role     Role
	Label    string
	Username string
	TeamType string
	TeamID   int
	HasTeam  bool
}

// Resolve is a pure function of the profile. A nil profile resolves to Personnel.
func Resolve(u *session.UserProfile) Identity {
	id := Identity{Role: Personnel, Label: LabelPersonnel}
	if u == nil {
		return id
	}
	id.Username = u.Username
	if u.Personnel != nil {
		id.TeamType = u.Personnel.TeamType
		id.TeamID, id.HasTeam = u.Personnel.TeamRef()
	}

	switch {
	case u.IsSuperuser || u.IsStaff:
		id.Role, id.Label = Admin, LabelAdmin
	case id.TeamType != "":
		id.Label = u.Personnel.TeamTypeDisplay
		if id.Label == "" {
			id.Label = id.TeamType
		}
		switch {
		case id.TeamType == AssemblyTeam:
			id.Role = Assembler
		case slices.Contains(ProductionTeams, id.TeamType):
			id.Role = Producer
		}
	}
	return id
}

func (i Identity) IsAdmin() bool     { return i.Role == Admin }
func (i Identity) IsAssembler() bool { return i.Role == Assembler }
func (i Identity) IsProducer() bool  { return i.Role == Producer }

// CanSeeFleet covers the aircraft and all-parts listings and aircraft stock.
func (i Identity) CanSeeFleet() bool { return i.IsAdmin() || i.IsAssembler() }

// Region is the extra UI region revealed for the role, or "".
func (i Identity) Region() Region {
	switch i.Role {
	case Admin:
		return RegionAdmin
	case Assembler:
		return RegionAssembler
	case Producer:
		return RegionProducer
	default:
		return ""
	}
}

// CanRecycleAircraft reports whether the user may recycle an aircraft assembled by team.
func (i Identity) CanRecycleAircraft(assembledBy int, known bool) bool {
	if i.IsAdmin() {
		return true
	}
	return i.IsAssembler() && i.HasTeam && known && i.TeamID == assembledBy
}
