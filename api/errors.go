package api

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError indicates the server could not be reached at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError indicates missing client credentials or a server-side 401.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// ErrUnauthenticated is returned before any request is issued when the
// stored credential triple is incomplete.
var ErrUnauthenticated = &AuthError{Message: "missing authentication headers"}

// ValidationError is a 4xx response carrying a server-provided message or
// field errors, e.g. a duplicate email or an empty board name.
type ValidationError struct {
	Status int
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("request rejected (status %d)", e.Status)
	}
	return strings.Join(e.Errors, "; ")
}

// RequestError is any other non-2xx response.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed (status %d)", e.Status)
}

// MalformedResponseError is a 2xx response whose body was missing or not
// decodable where a value was expected.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return "malformed response: empty body"
	}
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Displayable converts a client error into one safe to show to end users.
// Transport and parse details never leak; server-phrased messages pass
// through verbatim; anything unrecognized becomes the fallback.
func Displayable(err error, fallback string) error {
	if err == nil {
		return nil
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return errors.New("could not reach the server; check your connection")
	}

	var malformedErr *MalformedResponseError
	if errors.As(err, &malformedErr) {
		return errors.New("the server returned an unexpected response")
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return errors.New(authErr.Message)
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return errors.New(validationErr.Error())
	}

	var requestErr *RequestError
	if errors.As(err, &requestErr) {
		if requestErr.Message != "" {
			return errors.New(requestErr.Message)
		}
		return errors.New(fallback)
	}

	return errors.New(fallback)
}
