package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"evohome_gateway/internal/models"
	"evohome_gateway/internal/service"
)

func doAuthed(t *testing.T, s *service.Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := newTestRouter(s)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealth_IncludesGatewayStatus(t *testing.T) {
	s := &service.Service{Gateway: &mockGateway{status: models.ConfigurationError("username is not configured")}}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Status  string               `json:"status"`
		Gateway models.GatewayStatus `json:"gateway"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "ok" || resp.Gateway.Detail != models.DetailConfigurationError {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestGatewayRoutes(t *testing.T) {
	auth := &mockAuth{parseID: 1}

	t.Run("status", func(t *testing.T) {
		s := &service.Service{Authorization: auth, Gateway: &mockGateway{status: models.Online()}}
		w := doAuthed(t, s, http.MethodGet, "/api/v1/gateway/status", "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"state":"ONLINE"`) {
			t.Fatalf("got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("unauthorized without token", func(t *testing.T) {
		s := &service.Service{Authorization: auth, Gateway: &mockGateway{}}
		r := newTestRouter(s)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/gateway/status", nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	cases := []struct {
		name     string
		cycleErr error
		wantCode int
	}{
		{"refresh ok", nil, http.StatusOK},
		{"refresh communication error", fmt.Errorf("%w: status request failed", service.ErrCommunication), http.StatusBadGateway},
		{"refresh authentication error", fmt.Errorf("%w: password grant", service.ErrAuthentication), http.StatusBadGateway},
		{"refresh configuration error", fmt.Errorf("%w: username is not configured", service.ErrConfiguration), http.StatusServiceUnavailable},
		{"refresh unexpected error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &mockGateway{status: models.Online(), cycleErr: tc.cycleErr}
			s := &service.Service{Authorization: auth, Gateway: gw}
			w := doAuthed(t, s, http.MethodPost, "/api/v1/gateway/refresh", "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d (%s)", tc.wantCode, w.Code, w.Body.String())
			}
			if gw.cycleCalled != 1 {
				t.Fatalf("RunCycle calls = %d, want 1", gw.cycleCalled)
			}
		})
	}
}

func TestSystemRoutes(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	mon := &mockMonitoring{
		entries: []models.CacheEntry{
			{System: models.ControlSystem{ID: 100, Zones: []models.Zone{{ID: 1001, Name: "Living"}}}},
			{System: models.ControlSystem{ID: 200}},
		},
		zones: map[[2]int]models.ZoneStatus{
			{100, 1001}: {ZoneID: 1001, Name: "Living", Temperature: 20.5, TemperatureAvailable: true},
		},
	}
	s := &service.Service{Authorization: auth, Monitoring: mon}

	cases := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"list", "/api/v1/systems", http.StatusOK, `"count":2`},
		{"get system", "/api/v1/systems/100", http.StatusOK, `"id":100`},
		{"unknown system", "/api/v1/systems/999", http.StatusNotFound, "control system not found"},
		{"bad system id", "/api/v1/systems/abc", http.StatusBadRequest, "invalid id"},
		{"zone status", "/api/v1/systems/100/zones/1001", http.StatusOK, `"temperature":20.5`},
		{"zone without status", "/api/v1/systems/200/zones/2001", http.StatusNotFound, "zone status not available yet"},
		{"negative zone id", "/api/v1/systems/100/zones/-1", http.StatusBadRequest, "invalid id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doAuthed(t, s, http.MethodGet, tc.path, "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d (%s)", tc.wantCode, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.wantBody) {
				t.Fatalf("body %q does not contain %q", w.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestZoneSchedule(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	next := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	view := service.ZoneScheduleView{
		ZoneID:            1001,
		Configured:        true,
		ActiveTemperature: 21,
		NextChange:        &next,
	}

	t.Run("ok", func(t *testing.T) {
		sch := &mockSchedules{view: view}
		w := doAuthed(t, &service.Service{Authorization: auth, Schedules: sch}, http.MethodGet, "/api/v1/zones/1001/schedule", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if sch.lastZoneID != 1001 {
			t.Fatalf("zone id = %d, want 1001", sch.lastZoneID)
		}
		var got service.ZoneScheduleView
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ActiveTemperature != 21 || got.NextChange == nil || !got.NextChange.Equal(next) {
			t.Fatalf("unexpected view: %+v", got)
		}
	})

	errCases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown zone", fmt.Errorf("%w: 42", service.ErrZoneNotFound), http.StatusNotFound},
		{"not ready", service.ErrNotReady, http.StatusServiceUnavailable},
		{"upstream failure", fmt.Errorf("%w: schedule request failed", service.ErrCommunication), http.StatusBadGateway},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			sch := &mockSchedules{err: tc.err}
			w := doAuthed(t, &service.Service{Authorization: auth, Schedules: sch}, http.MethodGet, "/api/v1/zones/42/schedule", "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, w.Code)
			}
		})
	}
}

func TestSetZoneSetpoint(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	until := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		body       string
		ctrlErr    error
		wantCode   int
		wantCalls  int
		wantParams service.SetpointParams
	}{
		{
			name:       "permanent override",
			body:       `{"temperature":21.5}`,
			wantCode:   http.StatusOK,
			wantCalls:  1,
			wantParams: service.SetpointParams{Temperature: 21.5},
		},
		{
			name:       "temporary override",
			body:       `{"temperature":19,"until":"2025-01-01T18:00:00Z"}`,
			wantCode:   http.StatusOK,
			wantCalls:  1,
			wantParams: service.SetpointParams{Temperature: 19, Until: &until},
		},
		{
			name:       "cancel",
			body:       `{"cancel":true}`,
			wantCode:   http.StatusOK,
			wantCalls:  1,
			wantParams: service.SetpointParams{Cancel: true},
		},
		{name: "empty body", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "malformed json", body: `{"temperature":`, wantCode: http.StatusBadRequest},
		{
			name:      "out of range",
			body:      `{"temperature":50}`,
			ctrlErr:   fmt.Errorf("%w: 50.0 outside 5.0..35.0", service.ErrInvalidSetpoint),
			wantCode:  http.StatusBadRequest,
			wantCalls: 1,
		},
		{
			name:      "unknown zone",
			body:      `{"temperature":20}`,
			ctrlErr:   fmt.Errorf("%w: 1001", service.ErrZoneNotFound),
			wantCode:  http.StatusNotFound,
			wantCalls: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &mockControl{err: tc.ctrlErr}
			s := &service.Service{Authorization: auth, Control: ctrl}
			w := doAuthed(t, s, http.MethodPut, "/api/v1/zones/1001/setpoint", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d (%s)", tc.wantCode, w.Code, w.Body.String())
			}
			if ctrl.calls != tc.wantCalls {
				t.Fatalf("control calls = %d, want %d", ctrl.calls, tc.wantCalls)
			}
			if tc.wantCalls == 0 || tc.ctrlErr != nil {
				return
			}
			if ctrl.lastZoneID != 1001 {
				t.Fatalf("zone id = %d, want 1001", ctrl.lastZoneID)
			}
			if ctrl.lastParams.OperatorID != 1 {
				t.Fatalf("operator id = %d, want the authenticated operator", ctrl.lastParams.OperatorID)
			}
			got := ctrl.lastParams
			if got.Temperature != tc.wantParams.Temperature || got.Cancel != tc.wantParams.Cancel {
				t.Fatalf("params = %+v, want %+v", got, tc.wantParams)
			}
			if (got.Until == nil) != (tc.wantParams.Until == nil) {
				t.Fatalf("until = %v, want %v", got.Until, tc.wantParams.Until)
			}
			if got.Until != nil && !got.Until.Equal(*tc.wantParams.Until) {
				t.Fatalf("until = %v, want %v", got.Until, tc.wantParams.Until)
			}
		})
	}
}
