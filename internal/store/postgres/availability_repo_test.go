package postgres

import (
	"errors"
	"strings"
	"testing"
	"time"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/store"
)

func TestShiftConflictError(t *testing.T) {
	existing := []domain.ShiftDefinition{{
		DoctorID:    "d1",
		DayOfWeek:   int16(time.Monday),
		SlotType:    domain.SlotTypeAfternoon,
		StartMinute: 13 * 60,
		EndMinute:   17 * 60,
	}}
	candidate := domain.ShiftDefinition{
		DoctorID:    "d1",
		DayOfWeek:   int16(time.Monday),
		SlotType:    domain.SlotTypeMorning,
		StartMinute: 9 * 60,
		EndMinute:   14 * 60,
	}

	cause := domain.CheckShiftFits(existing, candidate)
	if cause == nil {
		t.Fatal("expected overlap")
	}

	err := shiftConflictError(cause)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want to match %v", err, store.ErrConflict)
	}
	if !strings.Contains(err.Error(), "13:00-17:00") {
		t.Fatalf("err = %q, want the overlapping window in the message", err)
	}
}
