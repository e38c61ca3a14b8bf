package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/store"
)

type AvailabilityRepo struct {
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

func (r *AvailabilityRepo) UpsertShift(ctx context.Context, shift domain.ShiftDefinition) (domain.ShiftDefinition, error) {
	var out domain.ShiftDefinition
	err := inDoctorTransaction(ctx, r.db, shift.DoctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		existing, err := tx.ListShiftsForDay(ctx, shift.DoctorID, shift.Weekday())
		if err != nil {
			return err
		}
		if err := domain.CheckShiftFits(existing, shift); err != nil {
			return shiftConflictError(err)
		}
		s, err := tx.UpsertShift(ctx, shift)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return domain.ShiftDefinition{}, err
	}
	return out, nil
}

// shiftConflictError keeps the overlap description for the caller while
// remaining matchable as store.ErrConflict.
func shiftConflictError(cause error) error {
	return fmt.Errorf("%w: %v", store.ErrConflict, cause)
}

func (r *AvailabilityRepo) DeleteShift(ctx context.Context, doctorID string, dayOfWeek time.Weekday, slotType domain.SlotType) error {
	return inDoctorTransaction(ctx, r.db, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		return tx.DeleteShift(ctx, doctorID, dayOfWeek, slotType)
	})
}

func (r *AvailabilityRepo) ListShiftsForDay(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
	var rows []domain.ShiftDefinition
	err := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("day_of_week = ?", int16(dayOfWeek)).
		OrderExpr("start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) ListShifts(ctx context.Context, doctorID string) ([]domain.ShiftDefinition, error) {
	var rows []domain.ShiftDefinition
	err := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		OrderExpr("day_of_week ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
