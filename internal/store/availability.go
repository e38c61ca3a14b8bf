package store

import (
	"context"
	"time"

	"medisched/backend/internal/domain"
)

type AvailabilityRepository interface {
	// UpsertShift adds the shift or replaces the doctor's existing shift
	// of the same slot type on that day, after re-validating interval
	// non-overlap against the day's other shifts inside the same
	// transaction. Returns ErrConflict on overlap.
	UpsertShift(ctx context.Context, shift domain.ShiftDefinition) (domain.ShiftDefinition, error)

	// DeleteShift removes the shift if present. Deleting an absent shift
	// is not an error.
	DeleteShift(ctx context.Context, doctorID string, dayOfWeek time.Weekday, slotType domain.SlotType) error

	// ListShiftsForDay returns the doctor's shifts for one weekday,
	// ordered by start time.
	ListShiftsForDay(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error)

	// ListShifts returns all of the doctor's shifts ordered by day of
	// week then start time.
	ListShifts(ctx context.Context, doctorID string) ([]domain.ShiftDefinition, error)
}
