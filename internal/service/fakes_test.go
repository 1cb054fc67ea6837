package service

import (
	"context"
	"sync"

	"evohome_gateway/internal/evohome"
	"evohome_gateway/internal/models"
)

// fakeAPI is a scriptable CloudAPI. Nil funcs succeed with zero values.
type fakeAPI struct {
	AuthenticateFn    func(g evohome.Grant) (evohome.TokenResponse, error)
	AccountFn         func(tok string) (evohome.UserAccount, error)
	LocationsFn       func(tok string, userID int) (evohome.Locations, error)
	LocationStatusFn  func(tok string, locationID int) (evohome.LocationStatus, error)
	ZoneScheduleFn    func(tok string, zoneID int) (evohome.ZoneSchedule, error)
	SetHeatSetpointFn func(tok string, zoneID int, sp evohome.HeatSetpoint) error

	mu     sync.Mutex
	grants []string
	calls  map[string]int
}

func (f *fakeAPI) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) Authenticate(_ context.Context, g evohome.Grant) (evohome.TokenResponse, error) {
	f.record("authenticate")
	f.mu.Lock()
	f.grants = append(f.grants, g.Type())
	f.mu.Unlock()
	if f.AuthenticateFn != nil {
		return f.AuthenticateFn(g)
	}
	return evohome.TokenResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 1800}, nil
}

func (f *fakeAPI) Account(_ context.Context, tok string) (evohome.UserAccount, error) {
	f.record("account")
	if f.AccountFn != nil {
		return f.AccountFn(tok)
	}
	return evohome.UserAccount{UserID: 1}, nil
}

func (f *fakeAPI) Locations(_ context.Context, tok string, userID int) (evohome.Locations, error) {
	f.record("locations")
	if f.LocationsFn != nil {
		return f.LocationsFn(tok, userID)
	}
	return nil, nil
}

func (f *fakeAPI) LocationStatus(_ context.Context, tok string, locationID int) (evohome.LocationStatus, error) {
	f.record("location_status")
	if f.LocationStatusFn != nil {
		return f.LocationStatusFn(tok, locationID)
	}
	return evohome.LocationStatus{LocationID: locationID}, nil
}

func (f *fakeAPI) ZoneSchedule(_ context.Context, tok string, zoneID int) (evohome.ZoneSchedule, error) {
	f.record("zone_schedule")
	if f.ZoneScheduleFn != nil {
		return f.ZoneScheduleFn(tok, zoneID)
	}
	return evohome.ZoneSchedule{}, nil
}

func (f *fakeAPI) SetHeatSetpoint(_ context.Context, tok string, zoneID int, sp evohome.HeatSetpoint) error {
	f.record("set_heat_setpoint")
	if f.SetHeatSetpointFn != nil {
		return f.SetHeatSetpointFn(tok, zoneID, sp)
	}
	return nil
}

// recordingObserver collects everything the gateway reports.
type recordingObserver struct {
	mu        sync.Mutex
	statuses  []models.GatewayStatus
	snapshots [][]models.CacheEntry
}

func (o *recordingObserver) GatewayStatusChanged(s models.GatewayStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, s)
}

func (o *recordingObserver) SnapshotUpdated(entries []models.CacheEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots = append(o.snapshots, entries)
}

func (o *recordingObserver) states() []models.GatewayState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.GatewayState, 0, len(o.statuses))
	for _, s := range o.statuses {
		out = append(out, s.State)
	}
	return out
}

// testLocations builds one location (id 10) with one gateway and two systems:
// system 100 with zones 1001/1002 and system 200 with zone 2001.
func testLocations() evohome.Locations {
	return evohome.Locations{
		{
			LocationInfo: evohome.LocationInfo{LocationID: 10, Name: "Home"},
			Gateways: []evohome.Gateway{
				{
					GatewayInfo: evohome.GatewayInfo{GatewayID: 50},
					TemperatureControlSystems: []evohome.TemperatureControlSystem{
						{
							SystemID:  200,
							ModelType: "EvoTouch",
							Zones: []evohome.Zone{
								{ZoneID: 2001, Name: "Bathroom"},
							},
						},
						{
							SystemID:  100,
							ModelType: "EvoTouch",
							Zones: []evohome.Zone{
								{ZoneID: 1001, Name: "Living", SetpointCapabilities: evohome.SetpointCapabilities{MinHeatSetpoint: 5, MaxHeatSetpoint: 35}},
								{ZoneID: 1002, Name: "Kitchen"},
							},
						},
					},
				},
			},
		},
	}
}

// testStatus returns the status of location 10 with the given temperature on every zone.
func testStatus(temp float64) evohome.LocationStatus {
	zone := func(id int) evohome.ZoneStatus {
		return evohome.ZoneStatus{
			ZoneID:            id,
			TemperatureStatus: evohome.TemperatureStatus{Temperature: temp, IsAvailable: true},
			SetpointStatus:    evohome.SetpointStatus{TargetHeatTemperature: 21, SetpointMode: evohome.SetpointFollowSchedule},
		}
	}
	return evohome.LocationStatus{
		LocationID: 10,
		Gateways: []evohome.GatewayStatus{
			{
				GatewayID: 50,
				TemperatureControlSystems: []evohome.TemperatureControlSystemStatus{
					{SystemID: 100, Zones: []evohome.ZoneStatus{zone(1001), zone(1002)}},
					{SystemID: 200, Zones: []evohome.ZoneStatus{zone(2001)}},
				},
			},
		},
	}
}
