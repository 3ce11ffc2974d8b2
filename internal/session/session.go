package session

import (
	"encoding/json"
)

// Fixed storage keys. Nothing else is persisted for a client.
const (
	KeyAuthToken   = "authToken"
	KeyCurrentUser = "currentUser"
)

// PersonnelProfile is the team membership attached to a user by the API.
type PersonnelProfile struct {
	User            int    `json:"user,omitempty"`
	Team            *int   `json:"team"`
	TeamID          *int   `json:"team_id,omitempty"`
	TeamName        string `json:"team_name,omitempty"`
	TeamType        string `json:"team_type,omitempty"`
	TeamTypeDisplay string `json:"team_type_display,omitempty"`
}

// TeamRef returns the member's team id. Older payloads carry it as team_id.
func (p *PersonnelProfile) TeamRef() (int, bool) {
	if p == nil {
		return 0, false
	}
	if p.TeamID != nil {
		return *p.TeamID, true
	}
	if p.Team != nil {
		return *p.Team, true
	}
	return 0, false
}

// UserProfile is an immutable snapshot of the user-me response. The exact bytes received
// are retained so a persisted profile reloads byte-for-byte.
type UserProfile struct {
	ID          int               `json:"id"`
	Username    string            `json:"username"`
	Email       string            `json:"email,omitempty"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	IsStaff     bool              `json:"is_staff"`
	IsSuperuser bool              `json:"is_superuser"`
	Personnel   *PersonnelProfile `json:"personnel_profile"`

	raw json.RawMessage
}

// ParseProfile decodes a user-me body.
func ParseProfile(b []byte) (*UserProfile, error) {
	var u UserProfile
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (u *UserProfile) UnmarshalJSON(b []byte) error {
	type plain UserProfile
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*u = UserProfile(p)
	u.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (u UserProfile) MarshalJSON() ([]byte, error) {
	if len(u.raw) > 0 {
		return u.raw, nil
	}
	type plain UserProfile
	return json.Marshal(plain(u))
}

// Bytes returns the profile as persisted: the received bytes when known.
func (u *UserProfile) Bytes() ([]byte, error) {
	if len(u.raw) > 0 {
		return append([]byte(nil), u.raw...), nil
	}
	type plain UserProfile
	return json.Marshal(plain(*u))
}

// TeamType is the member's team type key, or "".
func (u *UserProfile) TeamType() string {
	if u == nil || u.Personnel == nil {
		return ""
	}
	return u.Personnel.TeamType
}

// Session is the authentication state of one client.
type Session struct {
	AuthToken   string
	CurrentUser *UserProfile
}

func (s Session) HasToken() bool   { return s.AuthToken != "" }
func (s Session) HasProfile() bool { return s.CurrentUser != nil }
