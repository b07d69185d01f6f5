package user

import "context"

// Repository defines read access to users. The attendance core never mutates
// users.
type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	// ListActiveGraduates returns the users the reconciliation jobs sweep:
	// active, email-verified graduates.
	ListActiveGraduates(ctx context.Context) ([]User, error)

	// ListAdmins returns the users that receive escalation notices.
	ListAdmins(ctx context.Context) ([]User, error)
}
