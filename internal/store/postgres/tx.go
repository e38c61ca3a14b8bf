package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/store"
)

// inDoctorTransaction runs fn inside a transaction that holds the doctor's
// schedule lock. The advisory lock serializes all schedule mutation for one
// doctor without blocking other doctors.
func inDoctorTransaction(ctx context.Context, db *bun.DB, doctorID string, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDoctorSchedule(ctx, tx, doctorID); err != nil {
			return err
		}
		return fn(ctx, scheduleTx{tx: tx})
	})
}

func lockDoctorSchedule(ctx context.Context, tx bun.Tx, doctorID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", doctorID).Exec(ctx)
	return err
}

type scheduleTx struct {
	tx bun.Tx
}

func (r scheduleTx) ListShiftsForDay(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
	var rows []domain.ShiftDefinition
	err := r.tx.NewSelect().
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

func (r scheduleTx) UpsertShift(ctx context.Context, shift domain.ShiftDefinition) (domain.ShiftDefinition, error) {
	m := domain.ShiftDefinition{
		ID:          shift.ID,
		DoctorID:    shift.DoctorID,
		DayOfWeek:   shift.DayOfWeek,
		SlotType:    shift.SlotType,
		StartMinute: shift.StartMinute,
		EndMinute:   shift.EndMinute,
		CreatedAt:   shift.CreatedAt,
		UpdatedAt:   shift.UpdatedAt,
	}

	// On replace the row keeps its original id and created_at.
	_, err := r.tx.NewInsert().
		Model(&m).
		On("CONFLICT (doctor_id, day_of_week, slot_type) DO UPDATE").
		Set("start_minute = EXCLUDED.start_minute").
		Set("end_minute = EXCLUDED.end_minute").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.ShiftDefinition{}, err
	}
	return m, nil
}

func (r scheduleTx) DeleteShift(ctx context.Context, doctorID string, dayOfWeek time.Weekday, slotType domain.SlotType) error {
	// Removing an absent shift is deliberately not an error.
	_, err := r.tx.NewDelete().
		Model((*domain.ShiftDefinition)(nil)).
		Where("doctor_id = ?", doctorID).
		Where("day_of_week = ?", int16(dayOfWeek)).
		Where("slot_type = ?", slotType).
		Exec(ctx)
	return err
}

func (r scheduleTx) ListAppointments(ctx context.Context, doctorID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("appointment_date >= ?", windowStart).
		Where("appointment_date < ?", windowEnd).
		OrderExpr("appointment_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r scheduleTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:              appt.ID,
		DoctorID:        appt.DoctorID,
		PatientID:       appt.PatientID,
		AppointmentDate: appt.AppointmentDate,
		DurationMinutes: appt.DurationMinutes,
		Status:          appt.Status,
		Notes:           appt.Notes,
		CreatedAt:       appt.CreatedAt,
		UpdatedAt:       appt.UpdatedAt,
	}

	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapAppointmentInsertError(err)
	}

	appt.ID = m.ID
	return appt, nil
}

func (r scheduleTx) GetAppointment(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.tx.NewSelect().
		Model(&m).
		Where("doctor_id = ?", doctorID).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapScanError(err)
	}
	return m, nil
}

func (r scheduleTx) UpdateAppointmentStatus(ctx context.Context, doctorID string, appointmentID uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.tx.NewUpdate().
		Model(&m).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("doctor_id = ?", doctorID).
		Where("id = ?", appointmentID).
		Where("status = ?", from).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapScanError(err)
	}
	return m, nil
}
