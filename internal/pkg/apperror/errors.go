// Package apperror holds the error taxonomy shared by the receiver, the
// processor and the HTTP layer. Each type maps to one HTTP status and one
// retry decision.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError rejects a malformed request. Not retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "validation: " + e.Message }

// AuthError rejects a caller with a wrong shared secret. Not retried.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return "unauthorized: " + e.Message }

// NotFoundError means the referenced event record does not exist.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string { return "not found: " + e.Key }

// MappingNotFoundError means the provider user has no linked internal user.
// Only external remediation can fix it.
type MappingNotFoundError struct {
	Provider       string
	ProviderUserID string
}

func (e *MappingNotFoundError) Error() string {
	return fmt.Sprintf("no user mapping for %s user %s", e.Provider, e.ProviderUserID)
}

// CredentialMissingError means a required credential record is absent.
type CredentialMissingError struct {
	Provider       string
	InternalUserID string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("missing %s credentials for user %s", e.Provider, e.InternalUserID)
}

// UpstreamError wraps a non-2xx answer from a provider or calendar API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed: status=%d body=%s", e.Service, e.StatusCode, e.Body)
}

// ReauthorizationRequiredError means the refresh token itself was rejected
// and the user must connect the provider again.
type ReauthorizationRequiredError struct {
	Provider string
	Cause    error
}

func (e *ReauthorizationRequiredError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("user needs to re-authenticate with %s", e.Provider)
	}
	return fmt.Sprintf("user needs to re-authenticate with %s: %v", e.Provider, e.Cause)
}

func (e *ReauthorizationRequiredError) Unwrap() error { return e.Cause }

// TransientProcessingError marks a failure that is retried up to the ceiling.
type TransientProcessingError struct {
	Retries int
	Cause   error
}

func (e *TransientProcessingError) Error() string {
	return fmt.Sprintf("processing failed (attempt %d): %v", e.Retries, e.Cause)
}

func (e *TransientProcessingError) Unwrap() error { return e.Cause }

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up) && up.StatusCode == http.StatusUnauthorized
}

// IsReauthorizationRequired reports whether err carries a rejected refresh token.
func IsReauthorizationRequired(err error) bool {
	var re *ReauthorizationRequiredError
	return errors.As(err, &re)
}

// Terminal reports whether the processor must stop retrying err immediately.
func Terminal(err error) bool {
	var (
		mapping *MappingNotFoundError
		missing *CredentialMissingError
		reauth  *ReauthorizationRequiredError
		invalid *ValidationError
	)
	return errors.As(err, &mapping) ||
		errors.As(err, &missing) ||
		errors.As(err, &reauth) ||
		errors.As(err, &invalid)
}

// Retryable is the complement of Terminal for errors that reached the
// processor's failure bookkeeping.
func Retryable(err error) bool {
	return err != nil && !Terminal(err)
}

// HTTPStatus maps an error to the status the HTTP layer answers with.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		auth       *AuthError
		notFound   *NotFoundError
		mapping    *MappingNotFoundError
		missing    *CredentialMissingError
		reauth     *ReauthorizationRequiredError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &auth):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &mapping), errors.As(err, &missing), errors.As(err, &reauth):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the short machine readable code used in JSON error bodies.
func Code(err error) string {
	var (
		validation *ValidationError
		auth       *AuthError
		notFound   *NotFoundError
		mapping    *MappingNotFoundError
		missing    *CredentialMissingError
		reauth     *ReauthorizationRequiredError
		upstream   *UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		return "invalid_request"
	case errors.As(err, &auth):
		return "unauthorized"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &mapping):
		return "user_mapping_not_found"
	case errors.As(err, &missing):
		return "credentials_not_found"
	case errors.As(err, &reauth):
		return "reauthorization_required"
	case errors.As(err, &upstream):
		return "upstream_error"
	default:
		return "processing_failed"
	}
}
