package router

import (
	"net/http"

	"classmaster/internal/auth"
	"classmaster/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func (h *Handlers) AssignmentRoutes(router chi.Router) {
	requireAuth := auth.RequireAuth(h.verifier)

	router.With(requireAuth, auth.RequireRole(h.repository, models.RoleTeacher)).Post("/assignments", h.createAssignmentHandler)
	router.With(requireAuth, auth.RequireRole(h.repository, models.RoleTeacher, models.RoleAdmin)).Get("/assignments/{id}", h.listAssignmentsHandler)
	router.With(requireAuth, auth.RequireRole(h.repository, models.RoleAdmin)).Post("/assignments/{id}/recount", h.recountAssignmentHandler)

	router.Post("/submit-assignment", h.submitAssignmentHandler)
	router.Get("/submissions/{id}", h.countSubmissionsHandler)
}

// POST: /assignments
func (h *Handlers) createAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromRequest(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req models.CreateAssignmentRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	req.OwnerEmail = claims.Email

	assignment, err := h.repository.CreateAssignment(r.Context(), &req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, assignment)
}

// GET: /assignments/{id}, where id is the class id
func (h *Handlers) listAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.repository.ListAssignments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, assignments)
}

// POST: /assignments/{id}/recount
func (h *Handlers) recountAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.repository.RecountAssignmentSubmissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}

// POST: /submit-assignment
func (h *Handlers) submitAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAssignmentRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	res, err := h.repository.SubmitAssignment(r.Context(), &req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}

// GET: /submissions/{id}, where id is the class id
func (h *Handlers) countSubmissionsHandler(w http.ResponseWriter, r *http.Request) {
	total, err := h.repository.CountClassSubmissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, models.SubmissionCount{TotalSubmissions: total})
}
