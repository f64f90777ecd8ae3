package router

import (
	"net/http"

	"classmaster/internal/models"
	"classmaster/internal/payment"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func (h *Handlers) PaymentRoutes(router chi.Router) {
	router.Post("/create-payment-intent", h.createPaymentIntentHandler)
	router.Post("/save-payment", h.savePaymentHandler)
	router.Get("/my-enroll-classes", h.myEnrolledClassesHandler)
}

// POST: /create-payment-intent
func (h *Handlers) createPaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentIntentRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	amount, err := payment.ParsePrice(req.Price)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if h.payments == nil {
		http.Error(w, "payments are not configured", http.StatusServiceUnavailable)
		return
	}

	secret, err := h.payments.CreateIntent(r.Context(), payment.NewIntent(amount, models.NormalizeEmail(req.Email), req.ClassID))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, models.PaymentIntentResponse{ClientSecret: secret})
}

// POST: /save-payment
func (h *Handlers) savePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SavePaymentRequest
	if err := h.decode(r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	res, err := h.repository.SavePayment(r.Context(), &req)
	if err != nil {
		renderWorkflowError(w, r, err, res)
		return
	}

	render.JSON(w, r, res)
}

// GET: /my-enroll-classes?email=
func (h *Handlers) myEnrolledClassesHandler(w http.ResponseWriter, r *http.Request) {
	classes, err := h.repository.MyEnrolledClasses(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, classes)
}
