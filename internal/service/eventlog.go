package service

import (
	"context"
	"fmt"
	"strings"

	"evohome_gateway/internal/models"
	"evohome_gateway/internal/repository"
)

// EventLogService reads the gateway event log written by the gateway and control services.
type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// statusFilter is the state/detail part of a LogFilter after validation.
type statusFilter struct {
	state  models.GatewayState
	detail models.StatusDetail
}

func (f statusFilter) empty() bool { return f.state == "" && f.detail == "" }

// normalizeFilter converts bounds to UTC, canonicalizes names and rejects
// filters that cannot match anything.
func normalizeFilter(f LogFilter) (LogFilter, statusFilter, error) {
	var sf statusFilter
	if !f.From.IsZero() {
		f.From = f.From.UTC()
	}
	if !f.To.IsZero() {
		f.To = f.To.UTC()
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, sf, fmt.Errorf("%w: from %s is after to %s", ErrInvalidFilter, f.From.Format(timeUntilLayout), f.To.Format(timeUntilLayout))
	}
	if f.Limit < 0 {
		return f, sf, fmt.Errorf("%w: negative limit %d", ErrInvalidFilter, f.Limit)
	}

	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	if f.Type != "" && !models.IsEventType(f.Type) {
		return f, sf, fmt.Errorf("%w: unknown event type %q", ErrInvalidFilter, f.Type)
	}

	if f.State != "" {
		st, ok := models.ParseGatewayState(f.State)
		if !ok {
			return f, sf, fmt.Errorf("%w: unknown gateway state %q", ErrInvalidFilter, f.State)
		}
		sf.state = st
	}
	if f.Detail != "" {
		d, ok := models.ParseStatusDetail(f.Detail)
		if !ok {
			return f, sf, fmt.Errorf("%w: unknown status detail %q", ErrInvalidFilter, f.Detail)
		}
		sf.detail = d
	}
	if !sf.empty() {
		if f.Type != "" && f.Type != models.EventStatusChange {
			return f, sf, fmt.Errorf("%w: state and detail only apply to %s events", ErrInvalidFilter, models.EventStatusChange)
		}
		f.Type = models.EventStatusChange
	}
	return f, sf, nil
}

// List returns the gateway events matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.GatewayEvent, error) {
	f, sf, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.List(ctx, f.From, f.To, f.Type)
	if err != nil {
		return nil, fmt.Errorf("list gateway events: %w", err)
	}

	if !sf.empty() {
		kept := events[:0:0]
		for _, e := range events {
			if sf.matches(e) {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[len(events)-f.Limit:]
	}
	return events, nil
}

// matches checks the "to" and "detail" metadata the gateway records on every
// status transition. Rows read back from SQLite carry them as strings.
func (f statusFilter) matches(e models.GatewayEvent) bool {
	meta, ok := e.Metadata.(map[string]any)
	if !ok {
		return false
	}
	if f.state != "" && fmt.Sprint(meta["to"]) != string(f.state) {
		return false
	}
	if f.detail != "" && fmt.Sprint(meta["detail"]) != string(f.detail) {
		return false
	}
	return true
}
