package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// LegacyActor labels callers authenticated with ADMIN_API_KEY.
const LegacyActor = "admin-key"

// Principal is an authenticated caller.
type Principal struct {
	Role  Role
	Actor string
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by RequireAuth.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ActorFrom returns the caller's label, or false for unauthenticated requests.
func ActorFrom(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	if !ok || p.Actor == "" {
		return "", false
	}
	return p.Actor, true
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, message string)

// Authenticator checks bearer tokens against the legacy admin key and the
// configured bcrypt key list.
type Authenticator struct {
	keys       []KeyEntry
	legacyKey  string
	writeError ErrorWriter
}

// NewAuthenticator creates an Authenticator. A nil writeError falls back to
// http.Error.
func NewAuthenticator(keys []KeyEntry, legacyAdminKey string, writeError ErrorWriter) *Authenticator {
	if writeError == nil {
		writeError = func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return &Authenticator{keys: keys, legacyKey: legacyAdminKey, writeError: writeError}
}

// Authenticate resolves an Authorization header value to a Principal.
func (a *Authenticator) Authenticate(header string) (Principal, error) {
	token := BearerToken(header)
	if token == "" {
		return Principal{}, ErrMissingToken
	}
	if a.legacyKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.legacyKey)) == 1 {
		return Principal{Role: RoleAdmin, Actor: LegacyActor}, nil
	}
	// bcrypt hashes are salted, so every entry has to be tried
	for i, k := range a.keys {
		if bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(token)) == nil {
			return Principal{Role: k.Role, Actor: string(k.Role) + "-key-" + strconv.Itoa(i)}, nil
		}
	}
	return Principal{}, ErrInvalidToken
}

// RequireAuth rejects requests whose token does not cover role.
func (a *Authenticator) RequireAuth(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				a.writeError(w, r, http.StatusUnauthorized, err.Error())
				return
			}
			if !p.Role.Covers(role) {
				a.writeError(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// BearerToken strips an optional "Bearer " scheme from header.
func BearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
