package router

import (
	"net/http"

	"classmaster/internal/auth"
	"classmaster/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// PromotionRoutes registers the teacher request queue. Listing and moderation are admin-only.
func (h *Handlers) PromotionRoutes(router chi.Router) {
	router.Post("/teachOnClassMaster", h.submitPromotionHandler)

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(h.verifier), auth.RequireRole(h.repository, models.RoleAdmin))

		r.Get("/teachersRequest", h.listPromotionsHandler)
		r.Post("/updateTeacherRequest/{id}", h.moderatePromotionHandler)
	})
}

// POST: /teachOnClassMaster
func (h *Handlers) submitPromotionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitPromotionRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	res, err := h.repository.SubmitPromotionRequest(r.Context(), &req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if res.Created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, res)
}

// GET: /teachersRequest?email=&status=
func (h *Handlers) listPromotionsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	requests, err := h.repository.ListPromotionRequests(r.Context(), query.Get("email"), models.RequestStatus(query.Get("status")))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, requests)
}

// POST: /updateTeacherRequest/{id}
func (h *Handlers) moderatePromotionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ModerateRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	res, err := h.repository.ModeratePromotionRequest(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		renderWorkflowError(w, r, err, res)
		return
	}

	render.JSON(w, r, res)
}
