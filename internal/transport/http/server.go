package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/hold"
	"medisched/backend/internal/service/availability"
	"medisched/backend/internal/service/booking"
)

type availabilityService interface {
	AddOrUpdateShift(ctx context.Context, in availability.ShiftInput) (domain.ShiftDefinition, error)
	RemoveShift(ctx context.Context, doctorID string, dayOfWeek time.Weekday, slotType string) error
	WeeklySchedule(ctx context.Context, doctorID string) ([]availability.DaySchedule, error)
}

type bookingService interface {
	AvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]domain.Slot, error)
	Book(ctx context.Context, in booking.BookInput) (domain.Appointment, error)
	Cancel(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error)
	Complete(ctx context.Context, doctorID string, appointmentID uuid.UUID) (domain.Appointment, error)
	PatientAppointments(ctx context.Context, patientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

type holdStore interface {
	Acquire(ctx context.Context, doctorID, slotID string) (hold.Hold, error)
	Release(ctx context.Context, doctorID, slotID, token string) error
}

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

type Server struct {
	availability availabilityService
	booking      bookingService
	holds        holdStore
	checks       map[string]Pinger
	log          *slog.Logger
}

type ServerConfig struct {
	Availability availabilityService
	Booking      bookingService
	Holds        holdStore
	// Checks maps dependency names to liveness probes for /healthz.
	Checks map[string]Pinger
	Log    *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		availability: cfg.Availability,
		booking:      cfg.Booking,
		holds:        cfg.Holds,
		checks:       cfg.Checks,
		log:          log.With(slog.String("component", "http")),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(roleMiddleware)
	r.Use(loggingMiddleware(s.log))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/availability", s.handleWeeklySchedule)
		r.With(requireScheduleWriter).Put("/availability/{day}/{slotType}", s.handleUpsertShift)
		r.With(requireScheduleWriter).Delete("/availability/{day}/{slotType}", s.handleRemoveShift)

		r.Get("/slots", s.handleSlots)
		r.Post("/slots/{slotID}/hold", s.handleAcquireHold)
		r.Delete("/slots/{slotID}/hold", s.handleReleaseHold)

		r.Post("/bookings", s.handleBook)
		r.Post("/appointments/{appointmentID}/cancel", s.handleCancel)
		r.Post("/appointments/{appointmentID}/complete", s.handleComplete)
	})

	r.Get("/patients/{patientID}/appointments", s.handlePatientAppointments)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string, len(s.checks))
	status := "ok"
	for name, ping := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		err := ping(ctx)
		cancel()
		if err != nil {
			deps[name] = "down"
			status = "degraded"
		} else {
			deps[name] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{Status: status, Dependencies: deps})
}
