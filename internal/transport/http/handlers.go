package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/hold"
	"medisched/backend/internal/service/availability"
	"medisched/backend/internal/service/booking"
	"medisched/backend/internal/store"
)

func (s *Server) handleWeeklySchedule(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")

	week, err := s.availability.WeeklySchedule(r.Context(), doctorID)
	if err != nil {
		s.writeServiceError(w, r, "weekly schedule", err)
		return
	}

	out := make([]dayScheduleResponse, 0, len(week))
	for _, d := range week {
		out = append(out, toDayScheduleResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertShift(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")

	day, err := parseWeekday(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var req shiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	shift, err := s.availability.AddOrUpdateShift(r.Context(), availability.ShiftInput{
		DoctorID:  doctorID,
		DayOfWeek: day,
		SlotType:  chi.URLParam(r, "slotType"),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		s.writeServiceError(w, r, "upsert shift", err)
		return
	}

	writeJSON(w, http.StatusOK, toShiftResponse(shift))
}

func (s *Server) handleRemoveShift(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")

	day, err := parseWeekday(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	if err := s.availability.RemoveShift(r.Context(), doctorID, day, chi.URLParam(r, "slotType")); err != nil {
		s.writeServiceError(w, r, "remove shift", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")

	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "date: "+err.Error())
		return
	}

	slots, err := s.booking.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		s.writeServiceError(w, r, "list slots", err)
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for _, sl := range slots {
		out = append(out, toSlotResponse(sl))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAcquireHold(w http.ResponseWriter, r *http.Request) {
	h, err := s.holds.Acquire(r.Context(), chi.URLParam(r, "doctorID"), chi.URLParam(r, "slotID"))
	if err != nil {
		s.writeServiceError(w, r, "acquire hold", err)
		return
	}

	writeJSON(w, http.StatusCreated, toHoldResponse(h))
}

func (s *Server) handleReleaseHold(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Hold-Token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "X-Hold-Token header is required")
		return
	}

	err := s.holds.Release(r.Context(), chi.URLParam(r, "doctorID"), chi.URLParam(r, "slotID"), token)
	if err != nil {
		s.writeServiceError(w, r, "release hold", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := s.booking.Book(r.Context(), booking.BookInput{
		DoctorID:  chi.URLParam(r, "doctorID"),
		PatientID: req.PatientID,
		SlotID:    req.SlotID,
		Notes:     req.Notes,
	})
	if err != nil {
		s.writeServiceError(w, r, "book slot", err)
		return
	}

	s.log.Info(
		"slot booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("doctor_id", appt.DoctorID),
		slog.String("patient_id", appt.PatientID),
		slog.Time("appointment_date", appt.AppointmentDate),
		slog.String("request_id", requestID(r.Context())),
	)

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, "cancel appointment", s.booking.Cancel)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, "complete appointment", s.booking.Complete)
}

func (s *Server) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	fn func(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error),
) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "appointment id must be a valid UUID")
		return
	}

	appt, err := fn(r.Context(), chi.URLParam(r, "doctorID"), id)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) handlePatientAppointments(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "from: "+err.Error())
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "to: "+err.Error())
		return
	}

	appts, err := s.booking.PatientAppointments(r.Context(), patientID, from, to)
	if err != nil {
		s.writeServiceError(w, r, "patient appointments", err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := s.log.With(
		slog.String("op", op),
		slog.String("request_id", requestID(r.Context())),
	)

	var avErr *availability.ValidationError
	var bkErr *booking.ValidationError
	var irErr *booking.InvalidRequestError
	switch {
	case errors.As(err, &avErr), errors.As(err, &bkErr):
		log.Warn("invalid request", slog.Any("err", err))
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &irErr):
		log.Warn("invalid request", slog.Any("err", err))
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, store.ErrSlotConflict):
		log.Info("slot conflict")
		writeError(w, http.StatusConflict, "slot_conflict", "slot no longer available")
	case errors.Is(err, store.ErrConflict):
		log.Info("conflict", slog.Any("err", err))
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, hold.ErrSlotHeld):
		log.Info("slot held")
		writeError(w, http.StatusConflict, "slot_held", "slot is currently held, retry shortly")
	case errors.Is(err, hold.ErrNotHolder):
		writeError(w, http.StatusConflict, "hold_not_owned", err.Error())
	default:
		log.Error("request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func parseWeekday(raw string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("invalid day %q, want monday..sunday", raw)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("required, want YYYY-MM-DD")
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, errors.New("invalid date, want YYYY-MM-DD")
	}
	return t, nil
}
