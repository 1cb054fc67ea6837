package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DaysPerWeek is the length of a WeekSchedule; index 0 is Monday.
const DaysPerWeek = 7

// TimeOfDay is an offset from local midnight.
type TimeOfDay time.Duration

// ParseTimeOfDay accepts "HH:MM:SS" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, expected HH:MM:SS", s)
}

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// TimeOfDayOf returns the wall-clock time of t in t's own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond()))
}

// On returns this time of day on the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	d := time.Duration(t)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	y, mo, dd := day.Date()
	return time.Date(y, mo, dd, h, m, s, 0, day.Location())
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute), int(d%time.Minute/time.Second))
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SwitchPoint is the moment a day's schedule moves to a new target temperature.
type SwitchPoint struct {
	TimeOfDay    TimeOfDay `json:"time_of_day"`
	HeatSetpoint float64   `json:"heat_setpoint"`
}

// DaySchedule holds one day's switch points sorted ascending by time of day.
type DaySchedule struct {
	SwitchPoints []SwitchPoint `json:"switch_points"`
}

// WeekSchedule is a zone's weekly program, Monday first.
type WeekSchedule [DaysPerWeek]DaySchedule

// WeekdayIndex maps a time.Weekday onto the Monday-first schedule index.
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % DaysPerWeek
}
