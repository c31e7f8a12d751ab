package auth

import (
	"errors"
	"fmt"
)

// Failure kinds of the authentication flow. Match with errors.Is.
var (
	// ErrConfiguration means login cannot start: the provider was never discovered.
	ErrConfiguration = errors.New("configuration error")

	// ErrProvider is an error reported by the identity provider on the callback.
	ErrProvider = errors.New("identity provider error")

	// ErrCSRF is a callback whose state does not match the pending login.
	ErrCSRF = errors.New("state mismatch")

	// ErrTokenExchange is a failed authorization code exchange.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrUserInfo is a failed user-info request.
	ErrUserInfo = errors.New("user info request failed")
)

// FlowError is a failed login attempt with a short category and a message
// that are safe to show to the user.
type FlowError struct {
	Kind     error
	Category string
	Message  string
	Err      error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *FlowError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func configurationError(err error) *FlowError {
	return &FlowError{
		Kind:     ErrConfiguration,
		Category: "Configuration error",
		Message:  "Sign-in is not available right now. Please try again later.",
		Err:      err,
	}
}

func providerError(code, description string) *FlowError {
	msg := description
	if msg == "" {
		msg = code
	}
	return &FlowError{
		Kind:     ErrProvider,
		Category: "Authentication failed",
		Message:  msg,
	}
}

func csrfError(err error) *FlowError {
	return &FlowError{
		Kind:     ErrCSRF,
		Category: "Invalid state",
		Message:  "State parameter mismatch. Possible CSRF attack.",
		Err:      err,
	}
}

func tokenExchangeError(err error) *FlowError {
	return &FlowError{
		Kind:     ErrTokenExchange,
		Category: "Authentication failed",
		Message:  "Failed to exchange authorization code for tokens.",
		Err:      err,
	}
}

func userInfoError(err error) *FlowError {
	return &FlowError{
		Kind:     ErrUserInfo,
		Category: "Authentication failed",
		Message:  "Failed to load your user profile.",
		Err:      err,
	}
}
