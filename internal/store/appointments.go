package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medisched/backend/internal/domain"
)

type AppointmentRepository interface {
	// Create persists the appointment, re-checking current bookings for
	// the doctor and date inside the same transaction. Returns
	// ErrSlotConflict when an active appointment already occupies the
	// target start instant.
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	Get(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error)
	ListForDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]domain.Appointment, error)
	ListForPatient(ctx context.Context, patientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	// UpdateStatus moves the appointment from one status to another. The
	// transition is applied only when the row still carries the expected
	// status; otherwise ErrConflict is returned.
	UpdateStatus(ctx context.Context, doctorID string, appointmentID uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error)
}
