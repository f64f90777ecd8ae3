package router

import (
	"net/http"

	"classmaster/internal/auth"
	"classmaster/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func (h *Handlers) EvaluationRoutes(router chi.Router) {
	router.With(auth.RequireAuth(h.verifier)).Post("/evaluations", h.createEvaluationHandler)
}

// POST: /evaluations
func (h *Handlers) createEvaluationHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req models.CreateEvaluationRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	// Students can only evaluate in their own name.
	if err := auth.Authorize(claims, req.StudentEmail); err != nil {
		renderError(w, r, err)
		return
	}

	evaluation, err := h.repository.CreateEvaluation(r.Context(), &req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, evaluation)
}
