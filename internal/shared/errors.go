package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates broken key material or environment; needs operator action.
	ErrConfig = errors.New("security configuration error")
	// ErrProcess indicates an unexpected cryptographic failure.
	ErrProcess = errors.New("security process error")
	// ErrData indicates malformed, tampered or oversized caller-supplied secure data.
	ErrData = errors.New("unable to process secure data")
	// ErrValidation indicates a request that fails input constraints.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is the parent of every authentication failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the identity lacks a matching permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a duplicate resource, e.g. a reused transaction id.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authentication reason codes reported to clients.
const (
	ReasonTokenMissing = "TOKEN_MISSING"
	ReasonTokenExpired = "TOKEN_EXPIRED"
	ReasonTokenInvalid = "TOKEN_INVALID"
)

var (
	// ErrTokenMissing occurs when no bearer token accompanies a protected request.
	ErrTokenMissing = &AuthError{Reason: ReasonTokenMissing}
	// ErrTokenExpired occurs when a correctly signed token is past its expiry.
	ErrTokenExpired = &AuthError{Reason: ReasonTokenExpired}
	// ErrTokenInvalid occurs for any structural or signature failure.
	ErrTokenInvalid = &AuthError{Reason: ReasonTokenInvalid}
)

// AuthError carries a machine-readable authentication failure reason.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "unauthorized: " + e.Reason
}

// Unwrap links every AuthError to ErrUnauthorized.
func (e *AuthError) Unwrap() error {
	return ErrUnauthorized
}

// AuthReason extracts the reason code from err, or "" when err is not an auth failure.
func AuthReason(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}

// Wrap annotates err with op while keeping kind as the matchable sentinel.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
