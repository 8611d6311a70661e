package models

// Role is one of the three fixed participant roles
type Role string

// The roles that take part in the approval workflow
const (
	RoleProjectManager    Role = "ProjectManager"
	RoleRemodelManager    Role = "RemodelManager"
	RoleRegionalExecutive Role = "RegionalExecutive"
)

// Roles lists every known role
var Roles = []Role{RoleProjectManager, RoleRemodelManager, RoleRegionalExecutive}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User holds the structure for the user collection in mongo
type User struct {
	ID      string      `json:"_id" bson:"_id,omitempty"`
	Details UserDetails `json:"user" bson:"user"`
}

// UserDetails holds the structure for the inner user structure as defined in the user collection in mongo
type UserDetails struct {
	Username  string      `json:"username" bson:"username"`
	Password  string      `json:"-" bson:"password"`
	Role      Role        `json:"role" bson:"role"`
	CreatedAt interface{} `json:"createdAt" bson:"createdAt"`
}

// Identity is a verified participant: who they are and what role they act as
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// CreateUserRequest is the registration payload
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"required,oneof=ProjectManager RemodelManager RegionalExecutive"`
}

// TokenResponse is returned by the token endpoint
type TokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
