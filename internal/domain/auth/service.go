package auth

import "context"

// Service verifies credentials and issues access tokens. Account lifecycle
// (registration, verification) is managed elsewhere; this service only reads.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
}
