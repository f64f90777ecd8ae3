package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func HealthRoutes() *chi.Mux {
	router := chi.NewRouter()

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("server is running"))
	})

	return router
}
