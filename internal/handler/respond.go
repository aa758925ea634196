package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/session"
)

// Validate is the shared struct validator for form payloads.
var Validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorStatus maps a domain error code to an HTTP status code.
func ErrorStatus(err error) int {
	switch domain.ErrorCode(err) {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// JSONError writes a structured JSON error and logs server faults.
func JSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := ErrorStatus(err)
	if status >= 500 {
		middleware.GetLogger(r.Context()).Error("request failed", "error", err)
	}
	JSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    domain.ErrorCode(err),
			"message": domain.ErrorMessage(err),
		},
	})
}

// FlashAndRedirect queues the error as a flash message and sends the browser
// back to target. Server faults are logged; the user sees the sanitized
// message from the error taxonomy.
func FlashAndRedirect(w http.ResponseWriter, r *http.Request, sess *session.Session, err error, target string) {
	if ErrorStatus(err) >= 500 {
		middleware.GetLogger(r.Context()).Error("request failed", "error", err)
	}
	if sess != nil {
		sess.Flash(session.SeverityError, domain.ErrorMessage(err))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// ValidationMessage flattens the first validator error into a user-facing
// sentence.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if ok := AsValidationErrors(err, &verrs); ok && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return "Please fill in the " + field + " field."
		case "email":
			return "Please enter a valid email address."
		case "min":
			return "The " + field + " field is too short."
		case "gt", "gte":
			return "The " + field + " field must be a positive number."
		}
		return "The " + field + " field is invalid."
	}
	return "Please check the form and try again."
}

// AsValidationErrors unwraps validator.ValidationErrors.
func AsValidationErrors(err error, target *validator.ValidationErrors) bool {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		*target = verrs
		return true
	}
	return false
}
