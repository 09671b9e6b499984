package model

// Role of a portal user; each role has its own dashboard.
type Role string

const (
	RoleTeacher        Role = "teacher"
	RoleStudent        Role = "student"
	RoleParent         Role = "parent"
	RoleAdmin          Role = "admin"
	RoleSuperAdmin     Role = "superadmin"
	RoleSupportTeacher Role = "support-teacher"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleParent, RoleAdmin, RoleSuperAdmin, RoleSupportTeacher:
		return true
	}
	return false
}

type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// LoginRequest is sent to the school API to obtain a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token and the authenticated user.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
