package domain

import (
	"errors"
	"sort"
	"strconv"
	"time"
)

// Slot is a concrete, date-bound bookable window materialized from a
// ShiftDefinition. Slots are ephemeral: they are recomputed on every
// generation pass and never persisted.
type Slot struct {
	ID              string
	Date            time.Time
	SlotType        SlotType
	StartMinute     int
	EndMinute       int
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Available       bool
}

// SlotID derives the opaque identifier for a slot starting at the given
// instant. The identifier is stable across generation passes for the same
// doctor and date, which lets a booking request reference a slot without
// the slot ever being stored.
func SlotID(start time.Time) string {
	return strconv.FormatInt(start.UTC().UnixNano(), 10)
}

// ParseSlotID recovers the slot's start instant from its identifier.
func ParseSlotID(id string) (time.Time, error) {
	ns, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return time.Time{}, errors.New("invalid slot id")
	}
	return time.Unix(0, ns).UTC(), nil
}

// GenerateSlots materializes the shifts configured for dayOfWeek onto the
// concrete date. Each shift yields exactly one slot spanning its full
// window; shifts are never subdivided. The result is ordered by slot type
// priority, then start time. An empty result means no availability, not an
// error. Slots whose window has already elapsed are still included;
// filtering past slots is a presentation concern.
func GenerateSlots(shifts []ShiftDefinition, dayOfWeek time.Weekday, date time.Time) []Slot {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]Slot, 0, len(shifts))
	for _, s := range shifts {
		if s.Weekday() != dayOfWeek {
			continue
		}
		start := day.Add(time.Duration(s.StartMinute) * time.Minute)
		end := day.Add(time.Duration(s.EndMinute) * time.Minute)
		out = append(out, Slot{
			ID:              SlotID(start),
			Date:            day,
			SlotType:        s.SlotType,
			StartMinute:     s.StartMinute,
			EndMinute:       s.EndMinute,
			Start:           start,
			End:             end,
			DurationMinutes: s.EndMinute - s.StartMinute,
			Available:       true,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SlotType.Priority() != out[j].SlotType.Priority() {
			return out[i].SlotType.Priority() < out[j].SlotType.Priority()
		}
		return out[i].StartMinute < out[j].StartMinute
	})

	return out
}

// MarkAvailability flags each slot as taken when an active appointment
// starts within the slot's [start,end) window. Cancelled and completed
// appointments do not block a slot.
func MarkAvailability(slots []Slot, appts []Appointment) []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)

	for i := range out {
		for _, a := range appts {
			if !a.Status.Active() {
				continue
			}
			at := a.AppointmentDate.UTC()
			if !at.Before(out[i].Start) && at.Before(out[i].End) {
				out[i].Available = false
				break
			}
		}
	}

	return out
}
