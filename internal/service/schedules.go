package service

import (
	"context"
	"fmt"
	"time"

	"evohome_gateway/internal/models"
)

// ZoneScheduleView is a zone's weekly program evaluated at a point in time.
type ZoneScheduleView struct {
	ZoneID            int                 `json:"zone_id"`
	Week              models.WeekSchedule `json:"week"`
	Configured        bool                `json:"configured"`
	EvaluatedAt       time.Time           `json:"evaluated_at"`
	ActiveTemperature float64             `json:"active_temperature"`
	NextChange        *time.Time          `json:"next_change,omitempty"`
}

// ScheduleService fetches zone schedules and resolves them in the installation's timezone.
type ScheduleService struct {
	api          CloudAPI
	session      *SessionManager
	cache        *SystemCache
	pollInterval time.Duration
	loc          *time.Location
	now          func() time.Time
}

func NewScheduleService(api CloudAPI, session *SessionManager, cache *SystemCache, cfg GatewayConfig) *ScheduleService {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleService{
		api:          api,
		session:      session,
		cache:        cache,
		pollInterval: cfg.PollInterval,
		loc:          loc,
		now:          time.Now,
	}
}

// ZoneSchedule fetches the schedule of a known zone and evaluates it now.
func (s *ScheduleService) ZoneSchedule(ctx context.Context, zoneID int) (ZoneScheduleView, error) {
	if _, err := lookupZone(s.cache, zoneID); err != nil {
		return ZoneScheduleView{}, err
	}

	sess, err := s.session.EnsureValidSession(ctx, s.pollInterval)
	if err != nil {
		return ZoneScheduleView{}, err
	}
	sch, err := s.api.ZoneSchedule(ctx, sess.AccessToken, zoneID)
	if err != nil {
		return ZoneScheduleView{}, fmt.Errorf("%w: %w", ErrCommunication, err)
	}

	return Evaluate(zoneID, sch.Week(), s.now().In(s.loc)), nil
}

// Evaluate resolves week at t.
func Evaluate(zoneID int, week models.WeekSchedule, t time.Time) ZoneScheduleView {
	r := NewScheduleResolver(week)
	view := ZoneScheduleView{
		ZoneID:            zoneID,
		Week:              week,
		Configured:        r.IsConfigured(),
		EvaluatedAt:       t,
		ActiveTemperature: r.ActiveTemperature(t),
	}
	if next, ok := r.NextChange(t); ok {
		view.NextChange = &next
	}
	return view
}
