package middleware

import (
	"context"
	"net/http"
	"strings"

	"huddle-api/pkg/jwtutil"
	"huddle-api/pkg/response"
)

type contextKey string

const ContextUserID contextKey = "user_id"

type Auth struct {
	jwt *jwtutil.Manager
}

func NewAuth(jwt *jwtutil.Manager) *Auth {
	return &Auth{jwt: jwt}
}

// Require rejects requests without a valid Bearer token and puts the user id
// on the request context.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Error(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		claims, err := a.jwt.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextUserID, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID pulls the authenticated user id off the context.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextUserID).(int64)
	return id, ok
}
