package router

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"classmaster/internal/auth"
	"classmaster/internal/payment"
	"classmaster/internal/qerrors"
	repo "classmaster/internal/repository"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Handlers holds the collaborators every route needs. It is built once at startup.
type Handlers struct {
	repository *repo.Repository
	issuer     *auth.TokenIssuer
	verifier   *auth.Verifier
	// payments is nil when no payment provider is configured.
	payments payment.Gateway
	validate *validator.Validate
}

func NewHandlers(repository *repo.Repository, issuer *auth.TokenIssuer, verifier *auth.Verifier, payments payment.Gateway) *Handlers {
	validate := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handlers{
		repository: repository,
		issuer:     issuer,
		verifier:   verifier,
		payments:   payments,
		validate:   validate,
	}
}

// decode reads a JSON body into v and validates it against its struct tags.
func (h *Handlers) decode(r *http.Request, v interface{}) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return errors.Wrap(qerrors.InvalidBody, err.Error())
	}

	return h.validate.Struct(v)
}

// renderError writes err with the status code of its category.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErrs validator.ValidationErrors
	var validationErr *qerrors.ValidationError

	switch {
	case errors.As(err, &fieldErrs):
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = describe(fe)
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]interface{}{"message": "invalid request", "errors": fields})
		return
	case errors.As(err, &validationErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]interface{}{
			"message": "invalid request",
			"errors":  map[string]string{validationErr.Field: validationErr.Reason},
		})
		return
	}

	status := qerrors.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		glog.Errorf("%s %s: %v\n", r.Method, r.URL.Path, err)
		message = http.StatusText(status)
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": message})
}

// renderWorkflowError surfaces a workflow failure. When earlier steps committed, the partial result is
// included so the caller can tell which artifacts exist.
func renderWorkflowError(w http.ResponseWriter, r *http.Request, err error, result interface{}) {
	var partial *qerrors.PartialWorkflowError
	if !errors.As(err, &partial) {
		renderError(w, r, err)
		return
	}

	glog.Errorf("%s %s: %v\n", r.Method, r.URL.Path, err)
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, map[string]interface{}{
		"message": fmt.Sprintf("%s failed at step %s", partial.Workflow, partial.Step),
		"error":   partial.Err.Error(),
		"report":  partial.Report,
		"result":  result,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "min", "max":
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	default:
		return "is invalid"
	}
}
