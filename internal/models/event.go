package models

import "time"

// Gateway event types.
const (
	EventLogin        = "LOGIN"
	EventLoginFailed  = "LOGIN_FAILED"
	EventStatusChange = "STATUS_CHANGE"
	EventTopology     = "TOPOLOGY"
	EventSetpoint     = "SETPOINT"
	EventLogout       = "LOGOUT"
)

// IsEventType reports whether typ is one of the gateway event types.
func IsEventType(typ string) bool {
	switch typ {
	case EventLogin, EventLoginFailed, EventStatusChange, EventTopology, EventSetpoint, EventLogout:
		return true
	}
	return false
}

// GatewayEvent is a single entry of the gateway event log.
type GatewayEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // LOGIN | LOGIN_FAILED | STATUS_CHANGE | TOPOLOGY | SETPOINT | LOGOUT
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
