package service

import (
	"context"
	"time"

	"evohome_gateway/internal/logger"
	"evohome_gateway/internal/models"
	"evohome_gateway/internal/repository"
)

// Authorization manages the operators of the local API and their tokens.
type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (models.OperatorToken, error)
	ParseToken(accessToken string) (int, error)
}

// Gateway runs the session, login and poll cycle against the cloud API.
type Gateway interface {
	Login(ctx context.Context) error
	RunCycle(ctx context.Context) error
	// Run polls until ctx is canceled. Stop it via context cancellation in main().
	Run(ctx context.Context)
	Logout(ctx context.Context)
	Status() models.GatewayStatus
	AddObserver(o Observer)
}

// Monitoring exposes read-only snapshots of the cached systems and zones.
type Monitoring interface {
	ControlSystems() []models.CacheEntry
	ControlSystem(systemID int) (models.CacheEntry, bool)
	ZoneStatus(systemID, zoneID int) (models.ZoneStatus, bool)
}

// Control changes zone set points.
type Control interface {
	SetZoneSetpoint(ctx context.Context, zoneID int, p SetpointParams) error
}

// Schedules fetches zone schedules evaluated at the current time.
type Schedules interface {
	ZoneSchedule(ctx context.Context, zoneID int) (ZoneScheduleView, error)
}

// EventLog exposes the append-only gateway log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.GatewayEvent, error)
}

// Service aggregates all sub-services.
type Service struct {
	Gateway
	Monitoring
	Control
	Schedules
	EventLog
	Authorization
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	API        CloudAPI
	Gateway    GatewayConfig
	SigningKey string
	TokenTTL   time.Duration
	Log        *logger.Logger
}

// NewService wires the repository layer and the cloud API into concrete services.
// Session and cache are shared between the gateway, control and schedule services.
func NewService(repos *repository.Repository, d Deps) *Service {
	session := NewSessionManager(d.API, d.Gateway.Credentials, d.Log)
	cache := NewSystemCache()

	return &Service{
		Gateway:       NewGatewayService(d.API, d.Gateway, session, cache, repos.EventRepo, d.Log),
		Monitoring:    NewMonitoringService(cache),
		Control:       NewControlService(d.API, session, cache, repos.EventRepo, d.Gateway.PollInterval, d.Log),
		Schedules:     NewScheduleService(d.API, session, cache, d.Gateway),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Operators, d.SigningKey, d.TokenTTL),
	}
}
