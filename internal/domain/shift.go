package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SlotType string

const (
	SlotTypeMorning   SlotType = "morning"
	SlotTypeAfternoon SlotType = "afternoon"
	SlotTypeEvening   SlotType = "evening"
)

// Priority orders slot types for presentation: morning before afternoon
// before evening. Unknown types sort last.
func (t SlotType) Priority() int {
	switch t {
	case SlotTypeMorning:
		return 1
	case SlotTypeAfternoon:
		return 2
	case SlotTypeEvening:
		return 3
	default:
		return 4
	}
}

func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeMorning, SlotTypeAfternoon, SlotTypeEvening:
		return true
	default:
		return false
	}
}

func ParseSlotType(s string) (SlotType, error) {
	t := SlotType(s)
	if !t.Valid() {
		return "", errors.New("invalid slot_type")
	}
	return t, nil
}

const minutesPerDay = 24 * 60

// FormatMinuteOfDay renders minutes from midnight as HH:MM.
func FormatMinuteOfDay(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseMinuteOfDay parses an HH:MM clock value into minutes from midnight.
func ParseMinuteOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, errors.New("invalid time of day, want HH:MM")
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ShiftDefinition is one recurring bookable window a doctor offers on a
// weekday. Times of day are stored as minutes from midnight so the window
// is timezone-free until it is materialized onto a concrete date.
type ShiftDefinition struct {
	bun.BaseModel `bun:"table:shift_definitions"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	DoctorID    string    `bun:"doctor_id,notnull"`
	DayOfWeek   int16     `bun:"day_of_week,notnull"`
	SlotType    SlotType  `bun:"slot_type,notnull"`
	StartMinute int       `bun:"start_minute,notnull"`
	EndMinute   int       `bun:"end_minute,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (s *ShiftDefinition) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

func (s ShiftDefinition) Weekday() time.Weekday {
	return time.Weekday(s.DayOfWeek)
}

func (s ShiftDefinition) Validate() error {
	if s.DoctorID == "" {
		return errors.New("doctor_id is required")
	}
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return errors.New("invalid day_of_week")
	}
	if !s.SlotType.Valid() {
		return errors.New("invalid slot_type")
	}
	if s.StartMinute < 0 || s.EndMinute > minutesPerDay {
		return errors.New("shift times must fall within a single day")
	}
	if s.StartMinute >= s.EndMinute {
		return errors.New("end time must be after start time")
	}
	return nil
}

// Overlaps reports whether the [start,end) windows of two shifts intersect.
func (s ShiftDefinition) Overlaps(other ShiftDefinition) bool {
	return s.StartMinute < other.EndMinute && s.EndMinute > other.StartMinute
}

// CheckShiftFits verifies that candidate can join the given day's shifts:
// its interval must not intersect any existing shift of a different
// slotType. A shift with the candidate's own slotType is treated as the row
// being replaced.
func CheckShiftFits(existing []ShiftDefinition, candidate ShiftDefinition) error {
	for _, s := range existing {
		if s.SlotType == candidate.SlotType {
			continue
		}
		if s.Overlaps(candidate) {
			return fmt.Errorf("shift overlaps existing %s shift %s-%s",
				s.SlotType,
				FormatMinuteOfDay(s.StartMinute),
				FormatMinuteOfDay(s.EndMinute))
		}
	}
	return nil
}

// SortShifts orders shifts by day of week then start time. The caller's
// slice is sorted in place.
func SortShifts(shifts []ShiftDefinition) {
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].DayOfWeek != shifts[j].DayOfWeek {
			return shifts[i].DayOfWeek < shifts[j].DayOfWeek
		}
		return shifts[i].StartMinute < shifts[j].StartMinute
	})
}

// UsedSlotTypes is a derived projection of which slot types a day's shifts
// already occupy. It is recomputed from the shift list on every read and
// never stored.
func UsedSlotTypes(shifts []ShiftDefinition) map[SlotType]bool {
	used := make(map[SlotType]bool, len(shifts))
	for _, s := range shifts {
		used[s.SlotType] = true
	}
	return used
}
