package service

import "time"

// SetpointParams describes a zone set point change.
type SetpointParams struct {
	Temperature float64    // ignored when Cancel is set
	Until       *time.Time // nil means a permanent override
	Cancel      bool       // return the zone to its schedule
	OperatorID  int        // operator recorded in the event log; 0 when unknown
}

// LogFilter selects gateway events. State and Detail match the target of
// STATUS_CHANGE rows and imply Type STATUS_CHANGE.
type LogFilter struct {
	From   time.Time // inclusive; zero means no lower bound
	To     time.Time // inclusive; zero means no upper bound
	Type   string    // one of the models.Event* types, or "" for all
	State  string    // models.GatewayState the gateway moved to
	Detail string    // models.StatusDetail of that transition
	Limit  int       // keep only the newest Limit events; 0 means all
}
