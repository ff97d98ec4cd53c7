package errors

import (
	"errors"
	"fmt"
)

// Common error types for the FreeAgent bridge
var (
	// Request validation errors
	ErrBadRequest    = errors.New("bad request")
	ErrMissingFields = errors.New("missing required fields")
	ErrUnknownAction = errors.New("unsupported action")

	// Authentication errors
	ErrForbidden     = errors.New("invalid api_key")
	ErrUserNotFound  = errors.New("user not found")
	ErrSecretMissing = errors.New("secret not found")

	// Upstream errors
	ErrRefreshFailed = errors.New("token refresh failed")
	ErrUpstream      = errors.New("upstream api error")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
