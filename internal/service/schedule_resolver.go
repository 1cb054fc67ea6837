package service

import (
	"time"

	"evohome_gateway/internal/models"
)

// NoScheduleTemperature is returned by ActiveTemperature when no day has switch points.
// It means the schedule is inactive, not that 0 °C is requested.
const NoScheduleTemperature = 0.0

// ScheduleResolver answers questions about a weekly schedule. It treats the week as a
// ring of days and expects each day's switch points sorted by time of day.
type ScheduleResolver struct {
	week models.WeekSchedule
}

func NewScheduleResolver(week models.WeekSchedule) ScheduleResolver {
	return ScheduleResolver{week: week}
}

// IsConfigured reports whether any day has at least one switch point.
func (r ScheduleResolver) IsConfigured() bool {
	for _, d := range r.week {
		if len(d.SwitchPoints) > 0 {
			return true
		}
	}
	return false
}

// ActiveTemperature returns the set point in effect at t, evaluated in t's location.
// A switch point at exactly t is already in effect.
func (r ScheduleResolver) ActiveTemperature(t time.Time) float64 {
	day := models.WeekdayIndex(t.Weekday())
	now := models.TimeOfDayOf(t)

	points := r.week[day].SwitchPoints
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].TimeOfDay <= now {
			return points[i].HeatSetpoint
		}
	}

	// Before the first point of the day: the last point of the most recent earlier day
	// holds, going back as far as this same weekday a week ago.
	for back := 1; back <= models.DaysPerWeek; back++ {
		prev := r.week[(day-back+models.DaysPerWeek)%models.DaysPerWeek].SwitchPoints
		if len(prev) > 0 {
			return prev[len(prev)-1].HeatSetpoint
		}
	}
	return NoScheduleTemperature
}

// NextChange returns the instant of the first switch point strictly after t.
// ok is false when the schedule is empty.
func (r ScheduleResolver) NextChange(t time.Time) (time.Time, bool) {
	day := models.WeekdayIndex(t.Weekday())
	now := models.TimeOfDayOf(t)

	for _, p := range r.week[day].SwitchPoints {
		if p.TimeOfDay > now {
			return p.TimeOfDay.On(t), true
		}
	}

	for ahead := 1; ahead <= models.DaysPerWeek; ahead++ {
		next := r.week[(day+ahead)%models.DaysPerWeek].SwitchPoints
		if len(next) > 0 {
			return next[0].TimeOfDay.On(t.AddDate(0, 0, ahead)), true
		}
	}
	return time.Time{}, false
}
