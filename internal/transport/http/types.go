package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/hold"
	"medisched/backend/internal/service/availability"
)

type shiftRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type shiftResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	DayOfWeek string    `json:"day_of_week"`
	SlotType  string    `json:"slot_type"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

func toShiftResponse(s domain.ShiftDefinition) shiftResponse {
	return shiftResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		DayOfWeek: s.Weekday().String(),
		SlotType:  string(s.SlotType),
		StartTime: domain.FormatMinuteOfDay(s.StartMinute),
		EndTime:   domain.FormatMinuteOfDay(s.EndMinute),
	}
}

type dayScheduleResponse struct {
	DayOfWeek     string          `json:"day_of_week"`
	Shifts        []shiftResponse `json:"shifts"`
	UsedSlotTypes []string        `json:"used_slot_types"`
}

func toDayScheduleResponse(d availability.DaySchedule) dayScheduleResponse {
	out := dayScheduleResponse{
		DayOfWeek:     d.DayOfWeek.String(),
		Shifts:        make([]shiftResponse, 0, len(d.Shifts)),
		UsedSlotTypes: make([]string, 0, len(d.UsedSlotTypes)),
	}
	for _, s := range d.Shifts {
		out.Shifts = append(out.Shifts, toShiftResponse(s))
	}
	for _, st := range d.UsedSlotTypes {
		out.UsedSlotTypes = append(out.UsedSlotTypes, string(st))
	}
	return out
}

type slotResponse struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	SlotType        string    `json:"slot_type"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Available       bool      `json:"available"`
}

func toSlotResponse(s domain.Slot) slotResponse {
	return slotResponse{
		ID:              s.ID,
		Date:            s.Date.Format("2006-01-02"),
		SlotType:        string(s.SlotType),
		StartTime:       domain.FormatMinuteOfDay(s.StartMinute),
		EndTime:         domain.FormatMinuteOfDay(s.EndMinute),
		Start:           s.Start,
		End:             s.End,
		DurationMinutes: s.DurationMinutes,
		Available:       s.Available,
	}
}

type bookRequest struct {
	PatientID string `json:"patient_id"`
	SlotID    string `json:"slot_id"`
	Notes     string `json:"notes"`
}

type appointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	DoctorID        string    `json:"doctor_id"`
	PatientID       string    `json:"patient_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		AppointmentDate: a.AppointmentDate,
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type holdResponse struct {
	DoctorID  string    `json:"doctor_id"`
	SlotID    string    `json:"slot_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toHoldResponse(h hold.Hold) holdResponse {
	return holdResponse{
		DoctorID:  h.DoctorID,
		SlotID:    h.SlotID,
		Token:     h.Token,
		ExpiresAt: h.ExpiresAt,
	}
}

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, details string) {
	writeJSON(w, code, errorResponse{Error: errCode, Details: details})
}
