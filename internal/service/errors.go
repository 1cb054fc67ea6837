package service

import "errors"

// Gateway error taxonomy. Not-found lookups and unconfigured schedules are
// reported through bool results and sentinel values, not errors.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrAuthentication = errors.New("authentication failed")
	ErrCommunication  = errors.New("communication error")
)

// Errors returned by the control and read API.
var (
	ErrNotReady        = errors.New("gateway topology not loaded")
	ErrZoneNotFound    = errors.New("zone not found")
	ErrInvalidSetpoint = errors.New("invalid heat setpoint")
	ErrInvalidFilter   = errors.New("invalid event log filter")
)
