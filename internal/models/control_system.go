package models

import "time"

// SetpointCapabilities bound the heat set point a zone accepts.
type SetpointCapabilities struct {
	MinHeatSetpoint      float64  `json:"min_heat_setpoint"`
	MaxHeatSetpoint      float64  `json:"max_heat_setpoint"`
	ValueResolution      float64  `json:"value_resolution"`
	CanControlHeat       bool     `json:"can_control_heat"`
	AllowedSetpointModes []string `json:"allowed_setpoint_modes,omitempty"`
}

// ScheduleCapabilities describe what a zone schedule may contain.
type ScheduleCapabilities struct {
	MaxSwitchpointsPerDay   int     `json:"max_switchpoints_per_day"`
	MinSwitchpointsPerDay   int     `json:"min_switchpoints_per_day"`
	SetpointValueResolution float64 `json:"setpoint_value_resolution"`
}

// Zone is an individually controllable heating area, owned by its ControlSystem.
type Zone struct {
	ID                   int                  `json:"id"`
	Name                 string               `json:"name"`
	ZoneType             string               `json:"zone_type"`
	ModelType            string               `json:"model_type"`
	SetpointCapabilities SetpointCapabilities `json:"setpoint_capabilities"`
	ScheduleCapabilities ScheduleCapabilities `json:"schedule_capabilities"`
}

// ControlSystem is one heating controller with its zones. Metadata is fixed for a session.
type ControlSystem struct {
	ID                 int      `json:"id"`
	LocationID         int      `json:"location_id"`
	GatewayID          int      `json:"gateway_id"`
	Name               string   `json:"name"`
	ModelType          string   `json:"model_type"`
	AllowedSystemModes []string `json:"allowed_system_modes,omitempty"`
	Zones              []Zone   `json:"zones"`
}

// Zone looks up a zone of the system by id.
func (cs ControlSystem) Zone(zoneID int) (Zone, bool) {
	for _, z := range cs.Zones {
		if z.ID == zoneID {
			return z, true
		}
	}
	return Zone{}, false
}

// SystemModeStatus is the mode the controller currently runs in.
type SystemModeStatus struct {
	Mode        string `json:"mode"`
	IsPermanent bool   `json:"is_permanent"`
}

// ZoneStatus is the live reading of a zone.
type ZoneStatus struct {
	ZoneID               int        `json:"zone_id"`
	Name                 string     `json:"name"`
	Temperature          float64    `json:"temperature"`
	TemperatureAvailable bool       `json:"temperature_available"`
	TargetTemperature    float64    `json:"target_temperature"`
	SetpointMode         string     `json:"setpoint_mode"`
	Until                *time.Time `json:"until,omitempty"`
}

// ControlSystemStatus is the status of one control system, replaced wholesale each poll.
type ControlSystemStatus struct {
	ID           int              `json:"id"`
	Mode         SystemModeStatus `json:"mode"`
	Zones        []ZoneStatus     `json:"zones"`
	ActiveFaults []string         `json:"active_faults,omitempty"`
}

// CacheEntry pairs a control system with its most recent status. Status is nil until a poll succeeds.
type CacheEntry struct {
	System ControlSystem        `json:"system"`
	Status *ControlSystemStatus `json:"status,omitempty"`
}
