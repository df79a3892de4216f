package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the credential store, session store and auth service.
var (
	// Validation errors, rejected at the boundary with a 4xx
	ErrInvalidShopDomain  = errors.New("invalid shop domain")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrMissingTenant      = errors.New("tenant id is required")
	ErrConfig             = errors.New("invalid shopify configuration")
	ErrInvalidState       = errors.New("invalid oauth state")
	ErrInvalidSession     = errors.New("invalid session record")
	ErrInvalidRequest     = errors.New("invalid request body")

	// Authentication errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid access token or shop domain")
	ErrOAuthNotConfigured = errors.New("shopify oauth not configured")

	// Provider errors
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	ErrProviderUnavailable = errors.New("shopify unavailable")
	ErrProviderStatus      = errors.New("unexpected shopify response")
	ErrForbidden           = errors.New("access forbidden")

	// Storage errors
	ErrSessionNotFound = errors.New("session not found")
	ErrPersistence     = errors.New("session persistence failed")
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
