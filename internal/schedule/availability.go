package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const MessageNoWorkingDay = "professional does not work this day"

type AvailabilityInput struct {
	ProfessionalID uuid.UUID
	// Date is any instant on the target calendar day, in the clinic location.
	Date         time.Time
	SlotDuration time.Duration
	Windows      []WeeklySchedule
	Booked       []Interval
	// NotBefore drops candidate slots starting earlier than it. Zero disables the filter.
	NotBefore time.Time
}

type Availability struct {
	ProfessionalID      uuid.UUID   `json:"professional_id"`
	Date                string      `json:"date"`
	SlotDurationMinutes int         `json:"slot_duration_minutes"`
	Slots               []time.Time `json:"slots"`
	Message             string      `json:"message,omitempty"`
}

// Calculate lists the free slot starts of one day.
//
// Each active window is walked from its start in SlotDuration steps. A
// candidate is emitted only when it fits inside the window and overlaps no
// booked interval. When a candidate collides, the cursor moves to the latest
// end among the colliding bookings so the next candidate starts right after
// them. Results are distinct by start and sorted.
func Calculate(in AvailabilityInput) Availability {
	out := Availability{
		ProfessionalID:      in.ProfessionalID,
		Date:                in.Date.Format(time.DateOnly),
		SlotDurationMinutes: int(in.SlotDuration / time.Minute),
		Slots:               []time.Time{},
	}

	var windows []WeeklySchedule
	for _, w := range in.Windows {
		if w.Active && w.DayOfWeek == in.Date.Weekday() && w.Start < w.End {
			windows = append(windows, w)
		}
	}
	if len(windows) == 0 {
		out.Message = MessageNoWorkingDay
		return out
	}
	if in.SlotDuration <= 0 {
		return out
	}

	seen := make(map[int64]struct{})
	for _, w := range windows {
		win := w.Window(in.Date)
		cursor := win.Start

		for {
			candidate := NewInterval(cursor, in.SlotDuration)
			if candidate.End.After(win.End) {
				break
			}

			blockedUntil, blocked := latestOverlapEnd(candidate, in.Booked)
			if blocked {
				cursor = blockedUntil
				continue
			}

			if in.NotBefore.IsZero() || !candidate.Start.Before(in.NotBefore) {
				key := candidate.Start.UnixNano()
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					out.Slots = append(out.Slots, candidate.Start)
				}
			}
			cursor = candidate.End
		}
	}

	sort.Slice(out.Slots, func(i, j int) bool { return out.Slots[i].Before(out.Slots[j]) })
	return out
}

func latestOverlapEnd(candidate Interval, booked []Interval) (time.Time, bool) {
	var end time.Time
	found := false
	for _, b := range booked {
		if !candidate.Overlaps(b) {
			continue
		}
		if !found || b.End.After(end) {
			end = b.End
		}
		found = true
	}
	return end, found
}
