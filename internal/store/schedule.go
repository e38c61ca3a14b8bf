package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medisched/backend/internal/domain"
)

// ScheduleTx is the set of operations available inside a per-doctor
// transaction. All durable mutation of a doctor's schedule goes through it
// so that conflict re-checks and writes observe a consistent snapshot.
type ScheduleTx interface {
	ListShiftsForDay(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error)
	UpsertShift(ctx context.Context, shift domain.ShiftDefinition) (domain.ShiftDefinition, error)
	DeleteShift(ctx context.Context, doctorID string, dayOfWeek time.Weekday, slotType domain.SlotType) error

	ListAppointments(ctx context.Context, doctorID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, doctorID string, appointmentID uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error)
}
