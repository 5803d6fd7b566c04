package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/duetrack/deadline-api/internal/token"
)

type ctxKey string

const (
	userIDKey   ctxKey = "user_id"
	usernameKey ctxKey = "username"
)

// JWT rejects requests without a valid bearer token and stores the caller's
// identity in the request context. Verification trusts the signature and
// expiry alone; it never consults the users table.
func JWT(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := token.FromAuthHeader(r.Header.Get("Authorization"))
			if err != nil {
				unauthorized(w, err)
				return
			}

			claims, err := token.Verify(secret, raw)
			if err != nil {
				unauthorized(w, err)
				return
			}

			ctx := WithUser(r.Context(), claims.UserID, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := "invalid token"
	switch err {
	case token.ErrMissing:
		msg = "missing authorization header"
	case token.ErrExpired:
		msg = "token has expired"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// WithUser returns a context carrying the given caller identity, the same
// shape the JWT middleware installs.
func WithUser(ctx context.Context, userID int, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

// GetUserID returns the authenticated caller's user id from the context.
func GetUserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok
}

// GetUsername returns the authenticated caller's username from the context.
func GetUsername(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameKey).(string)
	return name, ok
}
