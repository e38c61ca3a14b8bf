package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	dayStart := truncateToDay(appt.AppointmentDate)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var out domain.Appointment
	err := inDoctorTransaction(ctx, r.db, appt.DoctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		// Re-fetch current bookings under the doctor lock before the
		// write; the partial unique index remains the final guard.
		existing, err := tx.ListAppointments(ctx, appt.DoctorID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		if slotTaken(existing, appt.AppointmentDate, appt.DurationMinutes) {
			return store.ErrSlotConflict
		}

		a, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.db.NewSelect().
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

func (r *AppointmentRepo) ListForDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("appointment_date >= ?", dayStart).
		Where("appointment_date < ?", dayEnd).
		OrderExpr("appointment_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListForPatient(ctx context.Context, patientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		Where("appointment_date >= ?", windowStart).
		Where("appointment_date < ?", windowEnd).
		OrderExpr("appointment_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, doctorID string, appointmentID uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error) {
	var out domain.Appointment
	err := inDoctorTransaction(ctx, r.db, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		appt, err := tx.GetAppointment(ctx, doctorID, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status != from {
			return store.ErrConflict
		}

		u, err := tx.UpdateAppointmentStatus(ctx, doctorID, appointmentID, from, to)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// slotTaken reports whether an active appointment already occupies any
// part of the window a new booking targets. Interval overlap, not exact
// start equality: after a shift is redefined, an earlier booking can sit
// mid-window without sharing the slot's start instant, and it must still
// block the slot the same way availability marking does.
func slotTaken(appts []domain.Appointment, start time.Time, durationMinutes int) bool {
	newStart := start.UTC()
	newEnd := newStart.Add(time.Duration(durationMinutes) * time.Minute)
	for _, a := range appts {
		if !a.Status.Active() {
			continue
		}
		aStart := a.AppointmentDate.UTC()
		aEnd := aStart.Add(time.Duration(a.DurationMinutes) * time.Minute)
		if aStart.Before(newEnd) && aEnd.After(newStart) {
			return true
		}
	}
	return false
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
