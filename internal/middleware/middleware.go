package middleware

import (
	"context"
	"net/http"

	"classmaster/internal/models"
	"classmaster/internal/qerrors"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
)

type contextKey string

const classContextKey contextKey = "class"

type ClassLookup interface {
	GetClass(ctx context.Context, id string) (*models.Class, error)
}

// ClassCtx loads the class named by the {id} URL parameter and adds it to the request context. Requests
// for unknown classes are rejected with 404.
func ClassCtx(lookup ClassLookup) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class, err := lookup.GetClass(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				status := qerrors.HTTPStatus(err)
				if status == http.StatusInternalServerError {
					glog.Errorf("loading class: %v\n", err)
				}
				http.Error(w, err.Error(), status)
				return
			}

			ctx := context.WithValue(r.Context(), classContextKey, class)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClassFromRequest returns the class loaded by ClassCtx.
func GetClassFromRequest(r *http.Request) (*models.Class, error) {
	class, ok := r.Context().Value(classContextKey).(*models.Class)
	if !ok || class == nil {
		return nil, qerrors.ClassNotFoundError
	}

	return class, nil
}
