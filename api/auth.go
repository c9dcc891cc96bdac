/*
auth.go - JWT authentication and role gate

PURPOSE:
  The write side of the API is restricted to the System Administrator
  role. Requests carry a bearer token (HS256) whose claims name the actor
  and their role; the middleware verifies the signature, stashes both in
  the request context, and RequireRole gates the purge endpoints.

  The role check here is the UI-layer enforcement; the ledger engine
  independently re-verifies through the PurgeAuthorization capability, so
  a handler bug cannot skip the check.
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stockroom/supply-engine/ledger"
)

type contextKey string

const (
	ctxActor contextKey = "actor"
	ctxRole  contextKey = "role"
)

// Claims is the token payload: standard registered claims plus the role the
// authorization collaborator assigned to the actor.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies bearer tokens.
type Auth struct {
	Secret []byte
}

func NewAuth(secret []byte) *Auth {
	return &Auth{Secret: secret}
}

// Authenticate parses and verifies the bearer token, rejecting the request
// when it is absent, malformed or signed with the wrong key.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.Secret, nil
		})
		if err != nil || !parsed.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxActor, claims.Subject)
		ctx = context.WithValue(ctx, ctxRole, ledger.Role(claims.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose token carries a
// different role.
func (a *Auth) RequireRole(role ledger.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFrom(r.Context()) != role {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorFrom returns the authenticated actor, or "" when unauthenticated.
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(ctxActor).(string)
	return actor
}

// RoleFrom returns the authenticated role, or "" when unauthenticated.
func RoleFrom(ctx context.Context) ledger.Role {
	role, _ := ctx.Value(ctxRole).(ledger.Role)
	return role
}
