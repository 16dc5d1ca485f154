// Package v1 provides the rango business logic for API version 1.
//
// Error Handling:
// Every failure returned by this package wraps one of three kinds:
//
//   - ErrNotFound: the category, page or user does not exist.
//   - ErrValidationFailed: the input was rejected (duplicate name, bad upload).
//   - ErrPersistence: a repository or storage call failed.
//
// plus the authentication sentinels below. Errors are wrapped with context
// using fmt.Errorf("%w") so callers match them with errors.Is:
//
//	switch {
//	case errors.Is(err, logicv1.ErrNotFound):
//	    c.String(http.StatusNotFound, "Page not found")
//	case errors.Is(err, logicv1.ErrPersistence):
//	    c.String(http.StatusInternalServerError, "Internal server error")
//	}
package v1

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrNotFound indicates the requested record does not exist.
	// HTTP Status: 404 Not Found (or a redirect / empty context for HTML pages)
	ErrNotFound = errors.New("not found")

	// ErrValidationFailed indicates the input was rejected.
	// HTTP Status: form re-rendered
	ErrValidationFailed = errors.New("validation failed")

	// ErrPersistence indicates a storage backend failure.
	// HTTP Status: 500 Internal Server Error
	ErrPersistence = errors.New("persistence failure")
)

// Specific errors, each wrapping its kind.
var (
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrPageNotFound     = fmt.Errorf("page %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrCategoryExists = fmt.Errorf("%w: category already exists", ErrValidationFailed)
	ErrUserExists     = fmt.Errorf("%w: username already taken", ErrValidationFailed)
	ErrInvalidUpload  = fmt.Errorf("%w: upload is not an acceptable image", ErrValidationFailed)

	ErrPasswordTooLong = fmt.Errorf("%w: password is longer than 72 bytes", ErrValidationFailed)
)

// Authentication errors.
var (
	// ErrInvalidCredentials indicates the username/password pair is wrong.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled indicates the user exists but is not active.
	// HTTP Status: 403 Forbidden
	ErrAccountDisabled = errors.New("account disabled")

	// ErrForbidden indicates the caller may not modify the target record.
	// HTTP Status: 403 Forbidden
	ErrForbidden = errors.New("forbidden")
)

// persistence wraps a backend error as ErrPersistence with context.
func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
