package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"evohome_gateway/internal/evohome"
	"evohome_gateway/internal/logger"
	"evohome_gateway/internal/models"
	"evohome_gateway/internal/repository"
)

// CloudAPI is the subset of the evohome client the gateway drives.
type CloudAPI interface {
	Authenticator
	Account(ctx context.Context, accessToken string) (evohome.UserAccount, error)
	Locations(ctx context.Context, accessToken string, userID int) (evohome.Locations, error)
	LocationStatus(ctx context.Context, accessToken string, locationID int) (evohome.LocationStatus, error)
	ZoneSchedule(ctx context.Context, accessToken string, zoneID int) (evohome.ZoneSchedule, error)
	SetHeatSetpoint(ctx context.Context, accessToken string, zoneID int, sp evohome.HeatSetpoint) error
}

// Observer is told about gateway status transitions and fresh snapshots.
// Calls are made synchronously from the poll cycle.
type Observer interface {
	GatewayStatusChanged(status models.GatewayStatus)
	SnapshotUpdated(entries []models.CacheEntry)
}

// GatewayConfig is the inbound configuration of the gateway.
type GatewayConfig struct {
	Credentials  models.Credentials
	PollInterval time.Duration
	Location     *time.Location // schedule evaluation zone; nil means time.Local
}

// GatewayService runs the login and poll cycle and owns the gateway status.
type GatewayService struct {
	api     CloudAPI
	cfg     GatewayConfig
	session *SessionManager
	cache   *SystemCache
	events  repository.EventRepo
	log     *logger.Logger

	cycleMu sync.Mutex // one login or cycle at a time

	statusMu  sync.Mutex // guards transitions and observer delivery order
	status    atomic.Pointer[models.GatewayStatus]
	observers []Observer
}

func NewGatewayService(api CloudAPI, cfg GatewayConfig, session *SessionManager, cache *SystemCache,
	events repository.EventRepo, log *logger.Logger) *GatewayService {
	if log == nil {
		log = logger.Nop()
	}
	g := &GatewayService{
		api:     api,
		cfg:     cfg,
		session: session,
		cache:   cache,
		events:  events,
		log:     log.Named("gateway"),
	}
	initial := models.Uninitialized()
	g.status.Store(&initial)
	return g
}

// Status returns the current gateway status.
func (g *GatewayService) Status() models.GatewayStatus {
	return *g.status.Load()
}

// AddObserver registers o and immediately delivers the current status to it.
func (g *GatewayService) AddObserver(o Observer) {
	g.statusMu.Lock()
	defer g.statusMu.Unlock()
	g.observers = append(g.observers, o)
	o.GatewayStatusChanged(g.Status())
}

// Login validates the credentials, authenticates and loads the topology.
// Missing credentials put the gateway into the terminal configuration error state
// without any network call.
func (g *GatewayService) Login(ctx context.Context) error {
	g.cycleMu.Lock()
	defer g.cycleMu.Unlock()
	return g.login(ctx)
}

func (g *GatewayService) login(ctx context.Context) error {
	if field := g.cfg.Credentials.MissingField(); field != "" {
		msg := field + " is not configured"
		g.setStatus(ctx, models.ConfigurationError(msg))
		return fmt.Errorf("%w: %s", ErrConfiguration, msg)
	}

	// Retries after a failed login keep the error status until one succeeds.
	if g.Status().State == models.StateUninitialized {
		g.setStatus(ctx, models.Authenticating())
	}

	sess, err := g.session.EnsureValidSession(ctx, g.cfg.PollInterval)
	if err != nil {
		g.loginFailed(ctx, "authentication failed", err)
		return err
	}

	account, err := g.api.Account(ctx, sess.AccessToken)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrCommunication, err)
		g.loginFailed(ctx, "user account request failed", err)
		return err
	}

	locations, err := g.api.Locations(ctx, sess.AccessToken, account.UserID)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrCommunication, err)
		g.loginFailed(ctx, "installation request failed", err)
		return err
	}

	entries := g.cache.RebuildTopology(locations)
	g.log.Infow("gateway_logged_in", "user_id", account.UserID, "locations", len(locations), "systems", len(entries))
	g.appendEvent(ctx, models.EventLogin, "logged in to evohome", map[string]any{"user_id": account.UserID})
	g.appendEvent(ctx, models.EventTopology, "topology loaded", map[string]any{
		"locations": len(locations),
		"systems":   len(entries),
	})
	return nil
}

func (g *GatewayService) loginFailed(ctx context.Context, msg string, err error) {
	g.log.Errorw("gateway_login_failed", "reason", msg, "err", err)
	g.appendEvent(ctx, models.EventLoginFailed, msg, map[string]any{"error": err.Error()})
	g.setStatus(ctx, models.CommunicationError(msg))
}

// RunCycle performs one poll: ensure session, fetch every location status, apply
// all of them or none, then report the outcome. It never retries internally.
func (g *GatewayService) RunCycle(ctx context.Context) error {
	g.cycleMu.Lock()
	defer g.cycleMu.Unlock()

	if st := g.Status(); st.Terminal() {
		return fmt.Errorf("%w: %s", ErrConfiguration, st.Message)
	}
	if !g.cache.Loaded() {
		if err := g.login(ctx); err != nil {
			return err
		}
	}

	sess, err := g.session.EnsureValidSession(ctx, g.cfg.PollInterval)
	if err != nil {
		g.cycleFailed(ctx, "authentication failed", err)
		return err
	}

	ids := g.cache.LocationIDs()
	statuses := make([]evohome.LocationStatus, 0, len(ids))
	for _, id := range ids {
		st, err := g.api.LocationStatus(ctx, sess.AccessToken, id)
		if err != nil {
			err = fmt.Errorf("%w: location %d: %w", ErrCommunication, id, err)
			g.cycleFailed(ctx, "status request failed", err)
			return err
		}
		statuses = append(statuses, st)
	}

	applied := g.cache.ApplyStatus(statuses)
	g.log.Debugw("poll_cycle_completed", "locations", len(ids), "systems_updated", applied)

	g.setStatus(ctx, models.Online())
	g.notifySnapshot(g.cache.ControlSystems())
	return nil
}

func (g *GatewayService) cycleFailed(ctx context.Context, msg string, err error) {
	var decodeErr *evohome.DecodeError
	if errors.As(err, &decodeErr) {
		g.log.Errorw("poll_cycle_decode_failed", "field", decodeErr.Field, "err", err)
	} else {
		g.log.Warnw("poll_cycle_failed", "reason", msg, "err", err)
	}
	g.setStatus(ctx, models.CommunicationError(msg))
}

// Logout drops the session and the cached topology. The next cycle logs in again.
func (g *GatewayService) Logout(ctx context.Context) {
	g.cycleMu.Lock()
	defer g.cycleMu.Unlock()

	g.session.Invalidate()
	g.cache.Clear()
	g.appendEvent(ctx, models.EventLogout, "session discarded", nil)
	if !g.Status().Terminal() {
		g.setStatus(ctx, models.Uninitialized())
	}
}

// setStatus publishes st when its state or detail differs from the current one.
func (g *GatewayService) setStatus(ctx context.Context, st models.GatewayStatus) {
	g.statusMu.Lock()
	defer g.statusMu.Unlock()

	prev := g.Status()
	if prev.SameAs(st) {
		return
	}
	g.status.Store(&st)

	g.log.Infow("gateway_status_changed",
		"from", prev.State, "to", st.State, "detail", st.Detail, "message", st.Message)
	g.appendEvent(ctx, models.EventStatusChange, string(st.State), map[string]any{
		"from":    prev.State,
		"to":      st.State,
		"detail":  st.Detail,
		"message": st.Message,
	})
	for _, o := range g.observers {
		o.GatewayStatusChanged(st)
	}
}

func (g *GatewayService) notifySnapshot(entries []models.CacheEntry) {
	g.statusMu.Lock()
	observers := g.observers
	g.statusMu.Unlock()
	for _, o := range observers {
		o.SnapshotUpdated(entries)
	}
}

func (g *GatewayService) appendEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	if g.events == nil {
		return
	}
	ev := models.GatewayEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: desc,
	}
	if meta != nil {
		ev.Metadata = meta
	}
	if err := g.events.Append(ctx, ev); err != nil {
		g.log.Warnw("gateway_event_append_failed", "type", typ, "err", err)
	}
}
