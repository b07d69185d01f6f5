package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/gradbridge/presence-backend-go/internal/domain/auth"
	"github.com/gradbridge/presence-backend-go/internal/handler/http/response"
)

// AuthRequired rejects requests whose token failed verification or is not an
// access token. SSE tokens carry type "sse" and are only good for the stream
// endpoint, which does its own check.
func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if tokenType, ok := claims["type"].(string); !ok || tokenType != "access" {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
