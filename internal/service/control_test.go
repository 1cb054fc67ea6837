package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"evohome_gateway/internal/evohome"
	"evohome_gateway/internal/logger"
	"evohome_gateway/internal/models"
)

func TestHeatSetpointBuilder(t *testing.T) {
	t.Parallel()

	zone := models.Zone{ID: 1, SetpointCapabilities: models.SetpointCapabilities{MinHeatSetpoint: 5, MaxHeatSetpoint: 35}}
	until := time.Date(2024, 3, 1, 18, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name      string
		build     func(b *HeatSetpointBuilder) *HeatSetpointBuilder
		wantMode  string
		wantValue float64
		wantUntil string
		wantErr   bool
	}{
		{
			name:      "permanent override",
			build:     func(b *HeatSetpointBuilder) *HeatSetpointBuilder { return b.SetSetpoint(21.5) },
			wantMode:  evohome.SetpointPermanentOverride,
			wantValue: 21.5,
		},
		{
			name:      "temporary override in UTC",
			build:     func(b *HeatSetpointBuilder) *HeatSetpointBuilder { return b.SetSetpoint(19).SetEndTime(until) },
			wantMode:  evohome.SetpointTemporaryOverride,
			wantValue: 19,
			wantUntil: "2024-03-01T17:30:00Z",
		},
		{
			name:     "cancel wins over value",
			build:    func(b *HeatSetpointBuilder) *HeatSetpointBuilder { return b.SetSetpoint(30).Cancel() },
			wantMode: evohome.SetpointFollowSchedule,
		},
		{
			name:    "missing value",
			build:   func(b *HeatSetpointBuilder) *HeatSetpointBuilder { return b },
			wantErr: true,
		},
		{
			name:    "above maximum",
			build:   func(b *HeatSetpointBuilder) *HeatSetpointBuilder { return b.SetSetpoint(36) },
			wantErr: true,
		},
		{
			name:    "below minimum",
			build:   func(b *HeatSetpointBuilder) *HeatSetpointBuilder { return b.SetSetpoint(4.5) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sp, err := tt.build(NewHeatSetpointBuilder(zone)).Build()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSetpoint) {
					t.Fatalf("expected ErrInvalidSetpoint, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if sp.SetpointMode != tt.wantMode || sp.HeatSetpointValue != tt.wantValue {
				t.Fatalf("unexpected set point: %+v", sp)
			}
			switch {
			case tt.wantUntil == "" && sp.TimeUntil != nil:
				t.Fatalf("unexpected TimeUntil %q", *sp.TimeUntil)
			case tt.wantUntil != "" && (sp.TimeUntil == nil || *sp.TimeUntil != tt.wantUntil):
				t.Fatalf("TimeUntil = %v; want %q", sp.TimeUntil, tt.wantUntil)
			}
		})
	}
}

func TestHeatSetpointBuilder_NoCapabilitiesSkipsRange(t *testing.T) {
	t.Parallel()

	sp, err := NewHeatSetpointBuilder(models.Zone{ID: 2}).SetSetpoint(50).Build()
	if err != nil || sp.HeatSetpointValue != 50 {
		t.Fatalf("Build = %+v, %v", sp, err)
	}
}

func newTestControl(api *fakeAPI, loaded bool) (*ControlService, *fakeEventRepo) {
	session := NewSessionManager(api, testCreds, logger.Nop())
	cache := NewSystemCache()
	if loaded {
		cache.RebuildTopology(testLocations())
	}
	events := &fakeEventRepo{}
	return NewControlService(api, session, cache, events, time.Minute, logger.Nop()), events
}

func TestControlService_SetZoneSetpoint(t *testing.T) {
	t.Parallel()

	var gotZone int
	var gotSP evohome.HeatSetpoint
	api := &fakeAPI{SetHeatSetpointFn: func(tok string, zoneID int, sp evohome.HeatSetpoint) error {
		if tok != "access" {
			t.Errorf("token = %q", tok)
		}
		gotZone, gotSP = zoneID, sp
		return nil
	}}
	svc, events := newTestControl(api, true)

	if err := svc.SetZoneSetpoint(context.Background(), 1001, SetpointParams{Temperature: 22, OperatorID: 4}); err != nil {
		t.Fatalf("SetZoneSetpoint: %v", err)
	}
	if gotZone != 1001 || gotSP.SetpointMode != evohome.SetpointPermanentOverride || gotSP.HeatSetpointValue != 22 {
		t.Fatalf("unexpected request: zone=%d sp=%+v", gotZone, gotSP)
	}
	if types := events.types(); len(types) != 1 || types[0] != models.EventSetpoint {
		t.Fatalf("events = %v", types)
	}
	meta, _ := events.appended[0].Metadata.(map[string]any)
	if meta["operator_id"] != 4 || meta["zone_id"] != 1001 {
		t.Fatalf("event metadata = %v", events.appended[0].Metadata)
	}
}

func TestControlService_SetZoneSetpoint_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		loaded  bool
		zoneID  int
		params  SetpointParams
		apiErr  error
		wantErr error
		wantPUT bool
	}{
		{name: "not ready", loaded: false, zoneID: 1001, params: SetpointParams{Temperature: 20}, wantErr: ErrNotReady},
		{name: "unknown zone", loaded: true, zoneID: 4242, params: SetpointParams{Temperature: 20}, wantErr: ErrZoneNotFound},
		{name: "out of range", loaded: true, zoneID: 1001, params: SetpointParams{Temperature: 40}, wantErr: ErrInvalidSetpoint},
		{
			name: "api failure", loaded: true, zoneID: 1001, params: SetpointParams{Cancel: true},
			apiErr: &evohome.StatusError{Op: "set heat set point", Code: 500}, wantErr: ErrCommunication, wantPUT: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			api := &fakeAPI{SetHeatSetpointFn: func(string, int, evohome.HeatSetpoint) error { return tt.apiErr }}
			svc, events := newTestControl(api, tt.loaded)

			err := svc.SetZoneSetpoint(context.Background(), tt.zoneID, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := api.count("set_heat_setpoint") > 0; got != tt.wantPUT {
				t.Fatalf("PUT issued = %v; want %v", got, tt.wantPUT)
			}
			if len(events.types()) != 0 {
				t.Fatalf("failed change must not be logged: %v", events.types())
			}
		})
	}
}
