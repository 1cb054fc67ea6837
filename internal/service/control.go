package service

import (
	"context"
	"fmt"
	"time"

	"evohome_gateway/internal/evohome"
	"evohome_gateway/internal/logger"
	"evohome_gateway/internal/models"
	"evohome_gateway/internal/repository"
)

// timeUntilLayout is the UTC timestamp format the set point endpoint expects.
const timeUntilLayout = "2006-01-02T15:04:05Z"

// HeatSetpointBuilder assembles a set point request for one zone.
type HeatSetpointBuilder struct {
	zone   models.Zone
	value  *float64
	until  *time.Time
	cancel bool
}

func NewHeatSetpointBuilder(zone models.Zone) *HeatSetpointBuilder {
	return &HeatSetpointBuilder{zone: zone}
}

func (b *HeatSetpointBuilder) SetSetpoint(v float64) *HeatSetpointBuilder {
	b.value = &v
	return b
}

// SetEndTime makes the override temporary.
func (b *HeatSetpointBuilder) SetEndTime(t time.Time) *HeatSetpointBuilder {
	b.until = &t
	return b
}

// Cancel returns the zone to its schedule; set point and end time are ignored.
func (b *HeatSetpointBuilder) Cancel() *HeatSetpointBuilder {
	b.cancel = true
	return b
}

func (b *HeatSetpointBuilder) Build() (evohome.HeatSetpoint, error) {
	if b.cancel {
		return evohome.HeatSetpoint{SetpointMode: evohome.SetpointFollowSchedule}, nil
	}
	if b.value == nil {
		return evohome.HeatSetpoint{}, fmt.Errorf("%w: no set point given", ErrInvalidSetpoint)
	}

	v := *b.value
	caps := b.zone.SetpointCapabilities
	if caps.MaxHeatSetpoint > 0 && (v < caps.MinHeatSetpoint || v > caps.MaxHeatSetpoint) {
		return evohome.HeatSetpoint{}, fmt.Errorf("%w: %.1f outside [%.1f, %.1f] for zone %d",
			ErrInvalidSetpoint, v, caps.MinHeatSetpoint, caps.MaxHeatSetpoint, b.zone.ID)
	}

	sp := evohome.HeatSetpoint{HeatSetpointValue: v, SetpointMode: evohome.SetpointPermanentOverride}
	if b.until != nil {
		until := b.until.UTC().Format(timeUntilLayout)
		sp.SetpointMode = evohome.SetpointTemporaryOverride
		sp.TimeUntil = &until
	}
	return sp, nil
}

// ControlService changes zone set points through the cloud API.
type ControlService struct {
	api          CloudAPI
	session      *SessionManager
	cache        *SystemCache
	events       repository.EventRepo
	pollInterval time.Duration
	log          *logger.Logger
}

func NewControlService(api CloudAPI, session *SessionManager, cache *SystemCache, events repository.EventRepo,
	pollInterval time.Duration, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.Nop()
	}
	return &ControlService{
		api:          api,
		session:      session,
		cache:        cache,
		events:       events,
		pollInterval: pollInterval,
		log:          log.Named("control"),
	}
}

// SetZoneSetpoint overrides or cancels the set point of a known zone.
func (s *ControlService) SetZoneSetpoint(ctx context.Context, zoneID int, p SetpointParams) error {
	zone, err := lookupZone(s.cache, zoneID)
	if err != nil {
		return err
	}

	b := NewHeatSetpointBuilder(zone)
	switch {
	case p.Cancel:
		b.Cancel()
	default:
		b.SetSetpoint(p.Temperature)
		if p.Until != nil {
			b.SetEndTime(*p.Until)
		}
	}
	sp, err := b.Build()
	if err != nil {
		return err
	}

	sess, err := s.session.EnsureValidSession(ctx, s.pollInterval)
	if err != nil {
		return err
	}
	if err := s.api.SetHeatSetpoint(ctx, sess.AccessToken, zoneID, sp); err != nil {
		s.log.Warnw("set_setpoint_failed", "zone_id", zoneID, "err", err)
		return fmt.Errorf("%w: %w", ErrCommunication, err)
	}

	s.log.Infow("setpoint_changed", "zone_id", zoneID, "mode", sp.SetpointMode, "value", sp.HeatSetpointValue)
	if s.events != nil {
		meta := map[string]any{"zone_id": zoneID, "mode": sp.SetpointMode, "value": sp.HeatSetpointValue}
		if sp.TimeUntil != nil {
			meta["until"] = *sp.TimeUntil
		}
		if p.OperatorID != 0 {
			meta["operator_id"] = p.OperatorID
		}
		if err := s.events.Append(ctx, models.GatewayEvent{
			OccurredAt:  time.Now().UTC(),
			Type:        models.EventSetpoint,
			Description: fmt.Sprintf("zone %d set to %s", zoneID, sp.SetpointMode),
			Metadata:    meta,
		}); err != nil {
			s.log.Warnw("gateway_event_append_failed", "type", models.EventSetpoint, "err", err)
		}
	}
	return nil
}

func lookupZone(cache *SystemCache, zoneID int) (models.Zone, error) {
	if !cache.Loaded() {
		return models.Zone{}, ErrNotReady
	}
	_, zone, ok := cache.FindZone(zoneID)
	if !ok {
		return models.Zone{}, fmt.Errorf("%w: %d", ErrZoneNotFound, zoneID)
	}
	return zone, nil
}
