package evohome

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is matched by StatusErrors carrying 400/401 from the token endpoint or 401 elsewhere.
var ErrUnauthorized = errors.New("evohome: unauthorized")

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed with status code: %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed with status code: %d, details: %s", e.Op, e.Code, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match rejected credentials or tokens.
func (e *StatusError) Is(target error) bool {
	if target != ErrUnauthorized {
		return false
	}
	if e.Code == http.StatusUnauthorized {
		return true
	}
	return e.Op == opAuthenticate && e.Code == http.StatusBadRequest
}

// DecodeError is returned when a response body does not match the expected payload.
type DecodeError struct {
	Op    string
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("failed to decode %s response: field %q: %v", e.Op, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("failed to decode %s response: field %q is missing", e.Op, e.Field)
	default:
		return fmt.Sprintf("failed to decode %s response: %v", e.Op, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

func missing(op, field string) error {
	return &DecodeError{Op: op, Field: field}
}
