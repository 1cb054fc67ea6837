package handlers

import (
	"context"
	"net/http"
	"sync"

	"evohome_gateway/internal/models"
	"evohome_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID    int
	signUpErr   error
	genToken    models.OperatorToken
	genTokenErr error
	parseID     int
	parseErr    error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (models.OperatorToken, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockGateway struct {
	status      models.GatewayStatus
	cycleErr    error
	cycleCalled int
}

func (m *mockGateway) Login(ctx context.Context) error {
	return nil
}
func (m *mockGateway) RunCycle(ctx context.Context) error {
	m.cycleCalled++
	return m.cycleErr
}
func (m *mockGateway) Run(ctx context.Context)    {}
func (m *mockGateway) Logout(ctx context.Context) {}
func (m *mockGateway) Status() models.GatewayStatus {
	return m.status
}
func (m *mockGateway) AddObserver(o service.Observer) {}

type mockMonitoring struct {
	mu      sync.Mutex
	entries []models.CacheEntry
	zones   map[[2]int]models.ZoneStatus
}

func (m *mockMonitoring) ControlSystems() []models.CacheEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries
}
func (m *mockMonitoring) ControlSystem(systemID int) (models.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.System.ID == systemID {
			return e, true
		}
	}
	return models.CacheEntry{}, false
}
func (m *mockMonitoring) ZoneStatus(systemID, zoneID int) (models.ZoneStatus, bool) {
	zs, ok := m.zones[[2]int{systemID, zoneID}]
	return zs, ok
}

type mockControl struct {
	err        error
	lastZoneID int
	lastParams service.SetpointParams
	calls      int
}

func (m *mockControl) SetZoneSetpoint(ctx context.Context, zoneID int, p service.SetpointParams) error {
	m.calls++
	m.lastZoneID = zoneID
	m.lastParams = p
	return m.err
}

type mockSchedules struct {
	view       service.ZoneScheduleView
	err        error
	lastZoneID int
}

func (m *mockSchedules) ZoneSchedule(ctx context.Context, zoneID int) (service.ZoneScheduleView, error) {
	m.lastZoneID = zoneID
	return m.view, m.err
}

type mockEventLog struct {
	resp       []models.GatewayEvent
	err        error
	calls      int
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.GatewayEvent, error) {
	m.calls++
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
