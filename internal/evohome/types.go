package evohome

import (
	"fmt"
	"time"

	"evohome_gateway/internal/models"
)

// TokenResponse is the payload of the OAuth token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

func (t *TokenResponse) validate() error {
	if t.AccessToken == "" {
		return missing(opAuthenticate, "access_token")
	}
	if t.RefreshToken == "" {
		return missing(opAuthenticate, "refresh_token")
	}
	if t.ExpiresIn <= 0 {
		return missing(opAuthenticate, "expires_in")
	}
	return nil
}

// UserAccount is the account owning the locations.
type UserAccount struct {
	UserID    int    `json:"userId,string"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Country   string `json:"country"`
	Language  string `json:"language"`
}

func (a *UserAccount) validate() error {
	if a.UserID == 0 {
		return missing(opAccount, "userId")
	}
	return nil
}

// ---- installation info ----

type TimeZone struct {
	TimeZoneID             string `json:"timeZoneId"`
	DisplayName            string `json:"displayName"`
	OffsetMinutes          int    `json:"offsetMinutes"`
	SupportsDaylightSaving bool   `json:"supportsDaylightSaving"`
}

type LocationInfo struct {
	LocationID int      `json:"locationId,string"`
	Name       string   `json:"name"`
	City       string   `json:"city"`
	Country    string   `json:"country"`
	TimeZone   TimeZone `json:"timeZone"`
}

type GatewayInfo struct {
	GatewayID int    `json:"gatewayId,string"`
	MAC       string `json:"mac"`
	CRC       string `json:"crc"`
	IsWiFi    bool   `json:"isWiFi"`
}

type SetpointCapabilities struct {
	MaxHeatSetpoint      float64  `json:"maxHeatSetpoint"`
	MinHeatSetpoint      float64  `json:"minHeatSetpoint"`
	ValueResolution      float64  `json:"valueResolution"`
	CanControlHeat       bool     `json:"canControlHeat"`
	AllowedSetpointModes []string `json:"allowedSetpointModes"`
}

type ScheduleCapabilities struct {
	MaxSwitchpointsPerDay   int     `json:"maxSwitchpointsPerDay"`
	MinSwitchpointsPerDay   int     `json:"minSwitchpointsPerDay"`
	SetpointValueResolution float64 `json:"setpointValueResolution"`
}

type Zone struct {
	ZoneID               int                  `json:"zoneId,string"`
	ModelType            string               `json:"modelType"`
	Name                 string               `json:"name"`
	ZoneType             string               `json:"zoneType"`
	SetpointCapabilities SetpointCapabilities `json:"setpointCapabilities"`
	ScheduleCapabilities ScheduleCapabilities `json:"scheduleCapabilities"`
}

type AllowedSystemMode struct {
	SystemMode     string `json:"systemMode"`
	CanBePermanent bool   `json:"canBePermanent"`
	CanBeTemporary bool   `json:"canBeTemporary"`
}

type TemperatureControlSystem struct {
	SystemID           int                 `json:"systemId,string"`
	ModelType          string              `json:"modelType"`
	Zones              []Zone              `json:"zones"`
	AllowedSystemModes []AllowedSystemMode `json:"allowedSystemModes"`
}

// Model converts the wire system into the cached ControlSystem.
func (s TemperatureControlSystem) Model(location LocationInfo, gatewayID int) models.ControlSystem {
	cs := models.ControlSystem{
		ID:         s.SystemID,
		LocationID: location.LocationID,
		GatewayID:  gatewayID,
		Name:       location.Name,
		ModelType:  s.ModelType,
		Zones:      make([]models.Zone, 0, len(s.Zones)),
	}
	for _, m := range s.AllowedSystemModes {
		cs.AllowedSystemModes = append(cs.AllowedSystemModes, m.SystemMode)
	}
	for _, z := range s.Zones {
		cs.Zones = append(cs.Zones, models.Zone{
			ID:        z.ZoneID,
			Name:      z.Name,
			ZoneType:  z.ZoneType,
			ModelType: z.ModelType,
			SetpointCapabilities: models.SetpointCapabilities{
				MinHeatSetpoint:      z.SetpointCapabilities.MinHeatSetpoint,
				MaxHeatSetpoint:      z.SetpointCapabilities.MaxHeatSetpoint,
				ValueResolution:      z.SetpointCapabilities.ValueResolution,
				CanControlHeat:       z.SetpointCapabilities.CanControlHeat,
				AllowedSetpointModes: z.SetpointCapabilities.AllowedSetpointModes,
			},
			ScheduleCapabilities: models.ScheduleCapabilities{
				MaxSwitchpointsPerDay:   z.ScheduleCapabilities.MaxSwitchpointsPerDay,
				MinSwitchpointsPerDay:   z.ScheduleCapabilities.MinSwitchpointsPerDay,
				SetpointValueResolution: z.ScheduleCapabilities.SetpointValueResolution,
			},
		})
	}
	return cs
}

type Gateway struct {
	GatewayInfo               GatewayInfo                `json:"gatewayInfo"`
	TemperatureControlSystems []TemperatureControlSystem `json:"temperatureControlSystems"`
}

type Location struct {
	LocationInfo LocationInfo `json:"locationInfo"`
	Gateways     []Gateway    `json:"gateways"`
}

// Locations is the installation info of every location of a user.
type Locations []Location

func (l *Locations) validate() error {
	for i, loc := range *l {
		if loc.LocationInfo.LocationID == 0 {
			return missing(opLocations, fmt.Sprintf("[%d].locationInfo.locationId", i))
		}
		for j, gw := range loc.Gateways {
			for k, sys := range gw.TemperatureControlSystems {
				if sys.SystemID == 0 {
					return missing(opLocations, fmt.Sprintf("[%d].gateways[%d].temperatureControlSystems[%d].systemId", i, j, k))
				}
			}
		}
	}
	return nil
}

// ---- status ----

type ActiveFault struct {
	FaultType string `json:"faultType"`
	Since     string `json:"since"`
}

type TemperatureStatus struct {
	Temperature float64 `json:"temperature"`
	IsAvailable bool    `json:"isAvailable"`
}

type SetpointStatus struct {
	TargetHeatTemperature float64    `json:"targetHeatTemperature"`
	SetpointMode          string     `json:"setpointMode"`
	Until                 *time.Time `json:"until,omitempty"`
}

type ZoneStatus struct {
	ZoneID            int               `json:"zoneId,string"`
	Name              string            `json:"name"`
	TemperatureStatus TemperatureStatus `json:"temperatureStatus"`
	SetpointStatus    SetpointStatus    `json:"setpointStatus"`
	ActiveFaults      []ActiveFault     `json:"activeFaults"`
}

type SystemModeStatus struct {
	Mode        string `json:"mode"`
	IsPermanent bool   `json:"isPermanent"`
}

type TemperatureControlSystemStatus struct {
	SystemID         int              `json:"systemId,string"`
	Zones            []ZoneStatus     `json:"zones"`
	ActiveFaults     []ActiveFault    `json:"activeFaults"`
	SystemModeStatus SystemModeStatus `json:"systemModeStatus"`
}

// Model converts the wire status into the cached ControlSystemStatus.
func (s TemperatureControlSystemStatus) Model() models.ControlSystemStatus {
	st := models.ControlSystemStatus{
		ID: s.SystemID,
		Mode: models.SystemModeStatus{
			Mode:        s.SystemModeStatus.Mode,
			IsPermanent: s.SystemModeStatus.IsPermanent,
		},
		Zones: make([]models.ZoneStatus, 0, len(s.Zones)),
	}
	for _, f := range s.ActiveFaults {
		st.ActiveFaults = append(st.ActiveFaults, f.FaultType)
	}
	for _, z := range s.Zones {
		st.Zones = append(st.Zones, models.ZoneStatus{
			ZoneID:               z.ZoneID,
			Name:                 z.Name,
			Temperature:          z.TemperatureStatus.Temperature,
			TemperatureAvailable: z.TemperatureStatus.IsAvailable,
			TargetTemperature:    z.SetpointStatus.TargetHeatTemperature,
			SetpointMode:         z.SetpointStatus.SetpointMode,
			Until:                z.SetpointStatus.Until,
		})
	}
	return st
}

type GatewayStatus struct {
	GatewayID                 int                              `json:"gatewayId,string"`
	TemperatureControlSystems []TemperatureControlSystemStatus `json:"temperatureControlSystems"`
	ActiveFaults              []ActiveFault                    `json:"activeFaults"`
}

// LocationStatus is the live status of every system at one location.
type LocationStatus struct {
	LocationID int             `json:"locationId,string"`
	Gateways   []GatewayStatus `json:"gateways"`
}

func (s *LocationStatus) validate() error {
	if s.LocationID == 0 {
		return missing(opLocationStatus, "locationId")
	}
	for i, gw := range s.Gateways {
		for j, sys := range gw.TemperatureControlSystems {
			if sys.SystemID == 0 {
				return missing(opLocationStatus, fmt.Sprintf("gateways[%d].temperatureControlSystems[%d].systemId", i, j))
			}
		}
	}
	return nil
}

// ---- schedules and set points ----

type Switchpoint struct {
	HeatSetpoint float64          `json:"heatSetpoint"`
	TimeOfDay    models.TimeOfDay `json:"timeOfDay"`
}

type DailySchedule struct {
	DayOfWeek    string        `json:"dayOfWeek"`
	Switchpoints []Switchpoint `json:"switchpoints"`
}

// ZoneSchedule is the weekly program of a zone as returned by the API.
type ZoneSchedule struct {
	DailySchedules []DailySchedule `json:"dailySchedules"`
}

func (s *ZoneSchedule) validate() error {
	for i, d := range s.DailySchedules {
		if _, ok := weekdayByName[d.DayOfWeek]; !ok {
			return &DecodeError{
				Op:    opZoneSchedule,
				Field: fmt.Sprintf("dailySchedules[%d].dayOfWeek", i),
				Err:   fmt.Errorf("unknown day %q", d.DayOfWeek),
			}
		}
	}
	return nil
}

var weekdayByName = map[string]time.Weekday{
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
	"Sunday":    time.Sunday,
}

// Week places each daily schedule at its Monday-first index. Days absent from the payload stay empty.
func (s ZoneSchedule) Week() models.WeekSchedule {
	var week models.WeekSchedule
	for _, d := range s.DailySchedules {
		wd, ok := weekdayByName[d.DayOfWeek]
		if !ok {
			continue
		}
		points := make([]models.SwitchPoint, 0, len(d.Switchpoints))
		for _, sp := range d.Switchpoints {
			points = append(points, models.SwitchPoint{TimeOfDay: sp.TimeOfDay, HeatSetpoint: sp.HeatSetpoint})
		}
		week[models.WeekdayIndex(wd)] = models.DaySchedule{SwitchPoints: points}
	}
	return week
}

// Set point modes accepted by the heat set point endpoint.
const (
	SetpointFollowSchedule    = "FollowSchedule"
	SetpointPermanentOverride = "PermanentOverride"
	SetpointTemporaryOverride = "TemporaryOverride"
)

// HeatSetpoint is the request body of a zone set point change.
type HeatSetpoint struct {
	HeatSetpointValue float64 `json:"HeatSetpointValue"`
	SetpointMode      string  `json:"SetpointMode"`
	TimeUntil         *string `json:"TimeUntil"`
}
