// Package middleware provides the bearer-token gate for protected routes.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

// subjectKey is the context key holding the authenticated subject.
const subjectKey contextKey = "subject"

// TokenValidator verifies a bearer token and resolves the authenticated
// subject.
type TokenValidator interface {
	ValidateSubject(token string) (uuid.UUID, error)
}

// RequireAuth wraps a handler so that requests without a valid Bearer
// token are rejected with 401. On success the subject is stored on the
// request context for Subject to read.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			subject, err := tokens.ValidateSubject(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header value. The
// scheme comparison is case-insensitive.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Subject returns the authenticated subject stored by RequireAuth.
func Subject(r *http.Request) (uuid.UUID, error) {
	subject, ok := r.Context().Value(subjectKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("no authenticated subject in request context")
	}
	return subject, nil
}
