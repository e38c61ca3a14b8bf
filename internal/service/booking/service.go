package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// InvalidRequestError marks a malformed slot reference: a missing or
// unparsable slot id. It is a caller bug, not a scheduling conflict.
type InvalidRequestError struct {
	msg string
}

func (e *InvalidRequestError) Error() string {
	return e.msg
}

func invalidRequestError(msg string) error {
	return &InvalidRequestError{msg: msg}
}

type Service struct {
	shifts store.AvailabilityRepository
	appts  store.AppointmentRepository
}

func NewService(shifts store.AvailabilityRepository, appts store.AppointmentRepository) *Service {
	return &Service{shifts: shifts, appts: appts}
}

// AvailableSlots generates the doctor's slots for the date and marks each
// one against the day's active appointments. Taken slots are flagged, not
// removed. Past slots on today's date are included; hiding them is a
// presentation concern.
func (s *Service) AvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]domain.Slot, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, validationError("doctor_id is required")
	}
	if date.IsZero() {
		return nil, validationError("date is required")
	}

	shifts, err := s.shifts.ListShiftsForDay(ctx, doctorID, date.Weekday())
	if err != nil {
		return nil, err
	}

	slots := domain.GenerateSlots(shifts, date.Weekday(), date)
	if len(slots) == 0 {
		return []domain.Slot{}, nil
	}

	dayStart := slots[0].Date
	appts, err := s.appts.ListForDay(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	return domain.MarkAvailability(slots, appts), nil
}

type BookInput struct {
	DoctorID  string
	PatientID string
	SlotID    string
	Notes     string
}

// Book reserves exactly one slot for the patient. The slot is re-derived
// from the doctor's current availability, and the write re-checks existing
// bookings at the persistence boundary, so a race between two patients
// resolves to exactly one booked appointment and one store.ErrSlotConflict.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	doctorID := strings.TrimSpace(in.DoctorID)
	if doctorID == "" {
		return domain.Appointment{}, validationError("doctor_id is required")
	}
	patientID := strings.TrimSpace(in.PatientID)
	if patientID == "" {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	if len(in.Notes) > 1000 {
		return domain.Appointment{}, validationError("notes too long")
	}

	slotID := strings.TrimSpace(in.SlotID)
	if slotID == "" {
		return domain.Appointment{}, invalidRequestError("slot_id is required")
	}
	start, err := domain.ParseSlotID(slotID)
	if err != nil {
		return domain.Appointment{}, invalidRequestError(err.Error())
	}

	date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	shifts, err := s.shifts.ListShiftsForDay(ctx, doctorID, date.Weekday())
	if err != nil {
		return domain.Appointment{}, err
	}

	slot, ok := findSlot(domain.GenerateSlots(shifts, date.Weekday(), date), slotID)
	if !ok {
		// The shift backing this slot no longer exists.
		return domain.Appointment{}, store.ErrNotFound
	}

	return s.appts.Create(ctx, domain.Appointment{
		DoctorID:        doctorID,
		PatientID:       patientID,
		AppointmentDate: slot.Start,
		DurationMinutes: slot.DurationMinutes,
		Status:          domain.AppointmentStatusBooked,
		Notes:           in.Notes,
	})
}

func findSlot(slots []domain.Slot, id string) (domain.Slot, bool) {
	for _, s := range slots {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Slot{}, false
}

func (s *Service) Cancel(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return domain.Appointment{}, validationError("doctor_id is required")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	appt, err := s.appts.Get(ctx, doctorID, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !domain.CanCancel(appt.Status) {
		return domain.Appointment{}, store.ErrConflict
	}

	return s.appts.UpdateStatus(ctx, doctorID, appointmentID, appt.Status, domain.AppointmentStatusCancelled)
}

func (s *Service) Complete(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return domain.Appointment{}, validationError("doctor_id is required")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	appt, err := s.appts.Get(ctx, doctorID, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !domain.CanComplete(appt.Status) {
		return domain.Appointment{}, store.ErrConflict
	}

	return s.appts.UpdateStatus(ctx, doctorID, appointmentID, appt.Status, domain.AppointmentStatusCompleted)
}

func (s *Service) PatientAppointments(ctx context.Context, patientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, validationError("patient_id is required")
	}

	start := windowStart.UTC()
	end := windowEnd.UTC()
	if end.Equal(start) || end.Before(start) {
		return nil, validationError("window_end must be after window_start")
	}

	return s.appts.ListForPatient(ctx, patientID, start, end)
}
