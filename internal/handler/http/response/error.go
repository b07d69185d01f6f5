package response

import (
	"errors"
	"net/http"

	"github.com/gradbridge/presence-backend-go/internal/domain/attendance"
	"github.com/gradbridge/presence-backend-go/internal/domain/auth"
	"github.com/gradbridge/presence-backend-go/internal/domain/user"
	"github.com/gradbridge/presence-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses. Guard violations carry
// the precise reason back to the client; unexpected errors collapse to a 500
// without leaking internals.
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrEmailNotVerified):
		Forbidden(w, "Email not verified")
	case errors.Is(err, auth.ErrAccountInactive):
		Forbidden(w, "Account is deactivated")
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")

	// State machine guard violations
	case errors.Is(err, attendance.ErrNotWorkday),
		errors.Is(err, attendance.ErrOutsideBusinessHours),
		errors.Is(err, attendance.ErrNotClockedIn),
		errors.Is(err, attendance.ErrNotOnBreak),
		errors.Is(err, attendance.ErrNoActiveSession):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrAlreadyMarkedAbsent):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrAlreadyClockedIn),
		errors.Is(err, attendance.ErrBreakAlreadyTaken):
		Conflict(w, err.Error())

	// Store errors
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrDuplicateRecord),
		errors.Is(err, attendance.ErrStateConflict):
		Conflict(w, "Attendance record changed, please retry")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
