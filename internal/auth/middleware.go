package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

// AuthorizationHeader is the header carrying the bearer token.
const AuthorizationHeader = "Authorization"

type contextKey string

// IdentityContextKey is the context key under which the Identity is stored.
const IdentityContextKey contextKey = "auth.identity"

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Claims *Claims
}

// Verifier validates session tokens.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// Authenticate attaches an Identity to the request context when a valid
// bearer token is present. Requests without a valid token pass through
// anonymously; RequireAuth rejects them on protected routes.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				if !errors.Is(err, ErrMissingToken) {
					hlog.FromRequest(r).Debug().Err(err).Str("path", r.URL.Path).Msg("ignoring malformed authorization header")
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected")
				next.ServeHTTP(w, r)
				return
			}

			id := &Identity{UserID: claims.UserID(), Claims: claims}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth rejects requests without an Identity with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeAuthError(w, ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(AuthorizationHeader))
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthorizationHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidAuthorizationHeader
	}
	return token, nil
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

// IdentityFrom retrieves the Identity from a request context.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(*Identity)
	return id, ok && id != nil
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UserID
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="reelhub"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
