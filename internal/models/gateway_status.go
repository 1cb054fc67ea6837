package models

import "strings"

// GatewayState is the coarse lifecycle state of the gateway connection.
type GatewayState string

const (
	StateUninitialized  GatewayState = "UNINITIALIZED"
	StateAuthenticating GatewayState = "AUTHENTICATING"
	StateOnline         GatewayState = "ONLINE"
	StateOffline        GatewayState = "OFFLINE"
)

// StatusDetail qualifies an offline state.
type StatusDetail string

const (
	DetailNone               StatusDetail = "NONE"
	DetailCommunicationError StatusDetail = "COMMUNICATION_ERROR"
	DetailConfigurationError StatusDetail = "CONFIGURATION_ERROR"
)

// ParseGatewayState matches s case-insensitively against the known states.
func ParseGatewayState(s string) (GatewayState, bool) {
	switch st := GatewayState(strings.ToUpper(strings.TrimSpace(s))); st {
	case StateUninitialized, StateAuthenticating, StateOnline, StateOffline:
		return st, true
	}
	return "", false
}

// ParseStatusDetail matches s case-insensitively against the known details.
func ParseStatusDetail(s string) (StatusDetail, bool) {
	switch d := StatusDetail(strings.ToUpper(strings.TrimSpace(s))); d {
	case DetailNone, DetailCommunicationError, DetailConfigurationError:
		return d, true
	}
	return "", false
}

// GatewayStatus is the tagged state reported to observers.
type GatewayStatus struct {
	State   GatewayState `json:"state"`
	Detail  StatusDetail `json:"detail"`
	Message string       `json:"message,omitempty"`
}

// SameAs compares state and detail only; message changes alone are not transitions.
func (s GatewayStatus) SameAs(other GatewayStatus) bool {
	return s.State == other.State && s.Detail == other.Detail
}

// Terminal reports whether only a reconfiguration can leave this status.
func (s GatewayStatus) Terminal() bool {
	return s.State == StateOffline && s.Detail == DetailConfigurationError
}

func Uninitialized() GatewayStatus {
	return GatewayStatus{State: StateUninitialized, Detail: DetailNone}
}

func Authenticating() GatewayStatus {
	return GatewayStatus{State: StateAuthenticating, Detail: DetailNone}
}

func Online() GatewayStatus {
	return GatewayStatus{State: StateOnline, Detail: DetailNone}
}

func CommunicationError(msg string) GatewayStatus {
	return GatewayStatus{State: StateOffline, Detail: DetailCommunicationError, Message: msg}
}

func ConfigurationError(msg string) GatewayStatus {
	return GatewayStatus{State: StateOffline, Detail: DetailConfigurationError, Message: msg}
}
