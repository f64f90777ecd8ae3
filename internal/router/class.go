package router

import (
	"net/http"

	"classmaster/internal/auth"
	"classmaster/internal/middleware"
	"classmaster/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func (h *Handlers) ClassRoutes(router chi.Router) {
	requireAuth := auth.RequireAuth(h.verifier)

	router.With(requireAuth, auth.RequireRole(h.repository, models.RoleTeacher)).Post("/classes", h.createClassHandler)

	router.Route("/classes/{id}", func(r chi.Router) {
		r.With(middleware.ClassCtx(h.repository)).Get("/", h.getClassHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, auth.RequireRole(h.repository, models.RoleAdmin), middleware.ClassCtx(h.repository))
			r.Post("/status", h.setClassStatusHandler)
			r.Post("/recount", h.recountClassHandler)
		})
	})
}

// POST: /classes
func (h *Handlers) createClassHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req models.CreateClassRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	req.OwnerEmail = claims.Email

	class, err := h.repository.CreateClass(r.Context(), &req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, class)
}

// GET: /classes/{id}
func (h *Handlers) getClassHandler(w http.ResponseWriter, r *http.Request) {
	class, err := middleware.GetClassFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, class)
}

// POST: /classes/{id}/status
func (h *Handlers) setClassStatusHandler(w http.ResponseWriter, r *http.Request) {
	class, err := middleware.GetClassFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req models.ClassStatusRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	res, err := h.repository.SetClassStatus(r.Context(), class.ID, req.Status)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}

// POST: /classes/{id}/recount
func (h *Handlers) recountClassHandler(w http.ResponseWriter, r *http.Request) {
	class, err := middleware.GetClassFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	res, err := h.repository.RecountClassEnrollments(r.Context(), class.ID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}
