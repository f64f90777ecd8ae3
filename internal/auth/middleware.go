package auth

import (
	"context"
	"net/http"
	"net/url"

	"classmaster/internal/models"
	"classmaster/internal/qerrors"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
)

type contextKey string

const claimsContextKey contextKey = "currentClaims"

// RoleLookup resolves the stored role for an email.
type RoleLookup interface {
	GetRole(ctx context.Context, email string) (models.Role, error)
}

// EmailSource extracts the email a request acts on.
type EmailSource func(r *http.Request) string

// URLParamEmail reads an email from a path parameter. chi returns the segment still escaped when the
// client percent-encoded it, so it is unescaped here; a malformed escape yields "".
func URLParamEmail(name string) EmailSource {
	return func(r *http.Request) string {
		email, err := url.PathUnescape(chi.URLParam(r, name))
		if err != nil {
			return ""
		}
		return email
	}
}

func QueryEmail(name string) EmailSource {
	return func(r *http.Request) string {
		return r.URL.Query().Get(name)
	}
}

// RequireAuth rejects requests without a valid bearer token. The verified claims are added to the
// request context, and can be accessed via GetClaimsFromRequest.
func RequireAuth(verifier *Verifier) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.Verify(r.Header.Get("Authorization"))
			if err != nil {
				reject(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects callers whose stored role is not one of roles. It must be composed after
// RequireAuth.
func RequireRole(lookup RoleLookup, roles ...models.Role) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := GetClaimsFromRequest(r)
			if err != nil {
				reject(w, err)
				return
			}

			role, err := lookup.GetRole(r.Context(), claims.Email)
			if qerrors.IsNotFound(err) {
				reject(w, qerrors.ForbiddenError)
				return
			}
			if err != nil {
				glog.Errorf("role lookup for %s failed: %v\n", claims.Email, err)
				reject(w, err)
				return
			}

			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			reject(w, qerrors.ForbiddenError)
		})
	}
}

// RequireSelf rejects callers acting on an email other than their own, regardless of role. It must
// be composed after RequireAuth.
func RequireSelf(source EmailSource) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := GetClaimsFromRequest(r)
			if err != nil {
				reject(w, err)
				return
			}

			if err := Authorize(claims, source(r)); err != nil {
				reject(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authorize checks that claims belong to email.
func Authorize(claims *Claims, email string) error {
	if claims == nil {
		return qerrors.UnauthenticatedError
	}
	if email = models.NormalizeEmail(email); email == "" || email != claims.Email {
		return qerrors.ForbiddenError
	}
	return nil
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// GetClaimsFromRequest returns the verified claims if they exist within the request context. Only
// works with routes that implement the RequireAuth middleware.
func GetClaimsFromRequest(r *http.Request) (*Claims, error) {
	claims, ok := r.Context().Value(claimsContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, qerrors.UnauthenticatedError
	}

	return claims, nil
}

// Helpers

func reject(w http.ResponseWriter, err error) {
	status := qerrors.HTTPStatus(err)
	switch status {
	case http.StatusUnauthorized:
		http.Error(w, "unauthorized access", status)
	case http.StatusForbidden:
		http.Error(w, "forbidden access", status)
	default:
		http.Error(w, http.StatusText(status), status)
	}
}
