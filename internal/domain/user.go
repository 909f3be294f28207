package domain

import "time"

// Role enumerates what a user may do in the reimbursement workflow.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleManager
}

// Profile holds the mutable, optional account details.
type Profile struct {
	Name      *string
	Address   *string
	AvatarRef *string
}

// User is the identity record for employees and managers.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
