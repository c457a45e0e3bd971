// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultledger/vaultledger/internal/shared"
)

// SecureDataDetail is the only message clients see for rejected secure data.
const SecureDataDetail = "Security violation: Unable to process secure data."

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrData), errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. Details
// are fixed per kind so no internal message reaches the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrData):
		Problem(w, http.StatusBadRequest, "Security Violation", SecureDataDetail)
	case errors.Is(err, shared.ErrValidation):
		problem := ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: "request failed validation"}
		var fields shared.FieldErrors
		if errors.As(err, &fields) {
			problem.Errors = fields
		}
		JSON(w, http.StatusBadRequest, problem)
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	case errors.Is(err, shared.ErrUnauthorized):
		reason := shared.AuthReason(err)
		if reason == "" {
			reason = shared.ReasonTokenInvalid
		}
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		JSON(w, http.StatusUnauthorized, ProblemDetail{Title: "Unauthorized", Status: http.StatusUnauthorized, Detail: "authentication required", Code: reason})
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "access denied")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", "resource already exists")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Fail logs server-side failures with the request id and writes the problem
// response. Client errors are logged at debug level only.
func Fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, op string, err error) {
	if logger != nil {
		attrs := []any{slog.String("op", op), slog.Any("error", err)}
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			attrs = append(attrs, slog.String("request_id", reqID))
		}
		if StatusFor(err) >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Debug("request rejected", attrs...)
		}
	}
	RespondError(w, err)
}
