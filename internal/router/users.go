package router

import (
	"net/http"

	"classmaster/internal/auth"
	"classmaster/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// UserRoutes registers token issuance and the role registry endpoints.
func (h *Handlers) UserRoutes(router chi.Router) {
	requireAuth := auth.RequireAuth(h.verifier)
	pathEmail := auth.URLParamEmail("email")

	router.Post("/jwt", h.createTokenHandler)
	router.Post("/users", h.createUserHandler)

	// A caller may only look up their own role.
	router.With(requireAuth, auth.RequireSelf(pathEmail)).Get("/users/role/{email}", h.getRoleHandler)
	router.With(requireAuth, auth.RequireSelf(pathEmail)).Get("/users/admin/{email}", h.getAdminHandler)
	router.With(requireAuth, auth.RequireSelf(auth.QueryEmail("email"))).Get("/userRole", h.getUserRoleHandler)

	router.With(requireAuth, auth.RequireRole(h.repository, models.RoleAdmin)).Post("/users/promote", h.promoteUserHandler)
}

// POST: /jwt
func (h *Handlers) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	token, err := h.issuer.Issue(req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]string{"token": token})
}

// POST: /users
func (h *Handlers) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	res, err := h.repository.RegisterUser(r.Context(), &req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}

// GET: /users/role/{email}
func (h *Handlers) getRoleHandler(w http.ResponseWriter, r *http.Request) {
	h.renderRole(w, r, auth.URLParamEmail("email")(r))
}

// GET: /userRole?email=
func (h *Handlers) getUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	h.renderRole(w, r, r.URL.Query().Get("email"))
}

func (h *Handlers) renderRole(w http.ResponseWriter, r *http.Request, email string) {
	role, err := h.repository.GetRole(r.Context(), email)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]models.Role{"role": role})
}

// GET: /users/admin/{email}
func (h *Handlers) getAdminHandler(w http.ResponseWriter, r *http.Request) {
	admin, err := h.repository.IsAdmin(r.Context(), auth.URLParamEmail("email")(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]bool{"admin": admin})
}

// POST: /users/promote
func (h *Handlers) promoteUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PromoteUserRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	res, err := h.repository.PromoteUser(r.Context(), req.Email, req.Role)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}
