// Package apperrors defines the error kinds shared by the ledger core and
// the HTTP services. Every kind is a sentinel that survives wrapping, so
// handlers can map a deep failure to the right status code with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed, missing or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation (PRN, hostel code, email, username, transaction id).
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks a role mismatch or cross-tenant access attempt.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrGateway marks a failure reported by the external payment provider.
	ErrGateway = errors.New("payment gateway error")
	// ErrExpired marks an OTP or reset code past its expiry.
	ErrExpired = errors.New("code expired")
	// ErrInvalidCredential marks a failed username/password check.
	ErrInvalidCredential = errors.New("invalid credentials")
	// ErrVerificationFailed marks a payment signature the gateway rejected.
	ErrVerificationFailed = errors.New("payment verification failed")
)

// Wrap attaches a human-readable message to an error kind.
func Wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, kind)...)
}

// HTTPStatus maps an error to the status code its kind implies. Unknown
// errors are treated as internal failures.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrVerificationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrExpired):
		return http.StatusGone
	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
