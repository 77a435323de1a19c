package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultSlotDurationMinutes = 30

type Professional struct {
	ID                  uuid.UUID `json:"id"`
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	Specialty           string    `json:"specialty"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type ProfessionalFilter struct {
	// Specialty matches case-insensitively when set.
	Specialty       string
	IncludeInactive bool
}

// SlotDuration falls back to the clinic default when the stored value is unset.
func (p Professional) SlotDuration() time.Duration {
	if p.SlotDurationMinutes <= 0 {
		return DefaultSlotDurationMinutes * time.Minute
	}
	return time.Duration(p.SlotDurationMinutes) * time.Minute
}

// TimeOfDay is a local wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" in 24h notation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On anchors t to the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// WeeklySchedule is a recurring working window. Deactivated windows are kept.
type WeeklySchedule struct {
	ID             uuid.UUID    `json:"id"`
	ProfessionalID uuid.UUID    `json:"professional_id"`
	DayOfWeek      time.Weekday `json:"day_of_week"`
	Start          TimeOfDay    `json:"start"`
	End            TimeOfDay    `json:"end"`
	Active         bool         `json:"active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Window returns the concrete interval of w on the given day.
func (w WeeklySchedule) Window(day time.Time) Interval {
	return Interval{Start: w.Start.On(day), End: w.End.On(day)}
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewInterval(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// Overlaps reports whether two half-open intervals intersect.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}
