package user

import "time"

// Role determines what a user may do and which reconciliation jobs target
// them. Graduates are the tracked population; admins receive escalations.
type Role string

const (
	RoleGraduate Role = "graduate"
	RoleAdmin    Role = "admin"
)

// User is the account attendance records hang off. Identity management
// itself (registration, verification flows) lives outside this service; we
// only read users and verify credentials at login.
type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	Role            Role
	IsEmailVerified bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
