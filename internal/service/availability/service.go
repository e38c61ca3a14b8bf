package availability

import (
	"context"
	"sort"
	"strings"
	"time"

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

type Service struct {
	repo store.AvailabilityRepository
}

func NewService(repo store.AvailabilityRepository) *Service {
	return &Service{repo: repo}
}

type ShiftInput struct {
	DoctorID  string
	DayOfWeek time.Weekday
	SlotType  string
	StartTime string
	EndTime   string
}

func (s *Service) AddOrUpdateShift(ctx context.Context, in ShiftInput) (domain.ShiftDefinition, error) {
	doctorID := strings.TrimSpace(in.DoctorID)
	if doctorID == "" {
		return domain.ShiftDefinition{}, validationError("doctor_id is required")
	}
	if in.DayOfWeek < time.Sunday || in.DayOfWeek > time.Saturday {
		return domain.ShiftDefinition{}, validationError("invalid day_of_week")
	}

	slotType, err := domain.ParseSlotType(strings.TrimSpace(in.SlotType))
	if err != nil {
		return domain.ShiftDefinition{}, validationError(err.Error())
	}

	start, err := domain.ParseMinuteOfDay(strings.TrimSpace(in.StartTime))
	if err != nil {
		return domain.ShiftDefinition{}, validationError("start_time: " + err.Error())
	}
	end, err := domain.ParseMinuteOfDay(strings.TrimSpace(in.EndTime))
	if err != nil {
		return domain.ShiftDefinition{}, validationError("end_time: " + err.Error())
	}

	shift := domain.ShiftDefinition{
		DoctorID:    doctorID,
		DayOfWeek:   int16(in.DayOfWeek),
		SlotType:    slotType,
		StartMinute: start,
		EndMinute:   end,
	}
	if err := shift.Validate(); err != nil {
		return domain.ShiftDefinition{}, validationError(err.Error())
	}

	return s.repo.UpsertShift(ctx, shift)
}

// RemoveShift is idempotent: removing a shift that was never configured
// succeeds.
func (s *Service) RemoveShift(ctx context.Context, doctorID string, dayOfWeek time.Weekday, slotType string) error {
	if strings.TrimSpace(doctorID) == "" {
		return validationError("doctor_id is required")
	}
	if dayOfWeek < time.Sunday || dayOfWeek > time.Saturday {
		return validationError("invalid day_of_week")
	}
	st, err := domain.ParseSlotType(strings.TrimSpace(slotType))
	if err != nil {
		return validationError(err.Error())
	}

	return s.repo.DeleteShift(ctx, strings.TrimSpace(doctorID), dayOfWeek, st)
}

func (s *Service) ShiftsForDay(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, validationError("doctor_id is required")
	}
	if dayOfWeek < time.Sunday || dayOfWeek > time.Saturday {
		return nil, validationError("invalid day_of_week")
	}

	return s.repo.ListShiftsForDay(ctx, strings.TrimSpace(doctorID), dayOfWeek)
}

type DaySchedule struct {
	DayOfWeek time.Weekday
	Shifts    []domain.ShiftDefinition
	// UsedSlotTypes is derived from Shifts on every read; it is never
	// tracked as separate state.
	UsedSlotTypes []domain.SlotType
}

// WeeklySchedule groups the doctor's shifts by weekday. Days with no
// configured shifts are absent from the result.
func (s *Service) WeeklySchedule(ctx context.Context, doctorID string) ([]DaySchedule, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, validationError("doctor_id is required")
	}

	shifts, err := s.repo.ListShifts(ctx, strings.TrimSpace(doctorID))
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Weekday][]domain.ShiftDefinition)
	for _, sh := range shifts {
		byDay[sh.Weekday()] = append(byDay[sh.Weekday()], sh)
	}

	out := make([]DaySchedule, 0, len(byDay))
	for day := time.Sunday; day <= time.Saturday; day++ {
		dayShifts, ok := byDay[day]
		if !ok {
			continue
		}
		domain.SortShifts(dayShifts)

		used := domain.UsedSlotTypes(dayShifts)
		types := make([]domain.SlotType, 0, len(used))
		for t := range used {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool { return types[i].Priority() < types[j].Priority() })

		out = append(out, DaySchedule{
			DayOfWeek:     day,
			Shifts:        dayShifts,
			UsedSlotTypes: types,
		})
	}

	return out, nil
}
