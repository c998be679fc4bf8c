package domain

type ctxKey string

const (
	RequesterCtxKey ctxKey = "ef-requester"
)

// Role is the value of a Profile.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleSampler    Role = "sampler"
	RoleViewer     Role = "viewer"
)

// WriterRoles receive a FormPermission when a form is created or duplicated.
var WriterRoles = []Role{RoleSupervisor, RoleSampler}

// IsElevated reports whether the role reads every session of a form.
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleViewer
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleSampler, RoleViewer:
		return true
	default:
		return false
	}
}

type DefaultProfile struct {
	Label       string
	Value       Role
	Description string
}

var DefaultProfiles = []DefaultProfile{
	{Label: "Admin", Value: RoleAdmin, Description: "Administrator profile"},
	{Label: "Supervisor", Value: RoleSupervisor, Description: "Supervisor profile"},
	{Label: "Sampler", Value: RoleSampler, Description: "Sampler profile"},
	{Label: "Viewer", Value: RoleViewer, Description: "Viewer profile"},
}
