package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"medisched/backend/internal/domain"
	"medisched/backend/internal/store"
)

type fakeShiftRepo struct {
	upsertShiftFn      func(ctx context.Context, shift domain.ShiftDefinition) (domain.ShiftDefinition, error)
	deleteShiftFn      func(ctx context.Context, doctorID string, dayOfWeek time.Weekday, slotType domain.SlotType) error
	listShiftsForDayFn func(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error)
	listShiftsFn       func(ctx context.Context, doctorID string) ([]domain.ShiftDefinition, error)
}

func (f *fakeShiftRepo) UpsertShift(ctx context.Context, shift domain.ShiftDefinition) (domain.ShiftDefinition, error) {
	if f.upsertShiftFn == nil {
		panic("UpsertShift not configured")
	}
	return f.upsertShiftFn(ctx, shift)
}

func (f *fakeShiftRepo) DeleteShift(ctx context.Context, doctorID string, dayOfWeek time.Weekday, slotType domain.SlotType) error {
	if f.deleteShiftFn == nil {
		panic("DeleteShift not configured")
	}
	return f.deleteShiftFn(ctx, doctorID, dayOfWeek, slotType)
}

func (f *fakeShiftRepo) ListShiftsForDay(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
	if f.listShiftsForDayFn == nil {
		panic("ListShiftsForDay not configured")
	}
	return f.listShiftsForDayFn(ctx, doctorID, dayOfWeek)
}

func (f *fakeShiftRepo) ListShifts(ctx context.Context, doctorID string) ([]domain.ShiftDefinition, error) {
	if f.listShiftsFn == nil {
		panic("ListShifts not configured")
	}
	return f.listShiftsFn(ctx, doctorID)
}

type fakeApptRepo struct {
	createFn         func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	getFn            func(ctx context.Context, doctorID string, id uuid.UUID) (domain.Appointment, error)
	listForDayFn     func(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]domain.Appointment, error)
	listForPatientFn func(ctx context.Context, patientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	updateStatusFn   func(ctx context.Context, doctorID string, id uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error)
}

func (f *fakeApptRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, appt)
}

func (f *fakeApptRepo) Get(ctx context.Context, doctorID string, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, doctorID, id)
}

func (f *fakeApptRepo) ListForDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]domain.Appointment, error) {
	if f.listForDayFn == nil {
		panic("ListForDay not configured")
	}
	return f.listForDayFn(ctx, doctorID, dayStart, dayEnd)
}

func (f *fakeApptRepo) ListForPatient(ctx context.Context, patientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if f.listForPatientFn == nil {
		panic("ListForPatient not configured")
	}
	return f.listForPatientFn(ctx, patientID, windowStart, windowEnd)
}

func (f *fakeApptRepo) UpdateStatus(ctx context.Context, doctorID string, id uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error) {
	if f.updateStatusFn == nil {
		panic("UpdateStatus not configured")
	}
	return f.updateStatusFn(ctx, doctorID, id, from, to)
}

// mondayShifts returns a morning and an evening shift for d1 on Mondays.
func mondayShifts() []domain.ShiftDefinition {
	return []domain.ShiftDefinition{
		{DoctorID: "d1", DayOfWeek: int16(time.Monday), SlotType: domain.SlotTypeMorning, StartMinute: 9 * 60, EndMinute: 12 * 60},
		{DoctorID: "d1", DayOfWeek: int16(time.Monday), SlotType: domain.SlotTypeEvening, StartMinute: 18 * 60, EndMinute: 20 * 60},
	}
}

var monday = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

func TestAvailableSlots_MarksTakenSlots(t *testing.T) {
	shifts := &fakeShiftRepo{
		listShiftsForDayFn: func(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
			if dayOfWeek != time.Monday {
				t.Fatalf("dayOfWeek = %v, want Monday", dayOfWeek)
			}
			return mondayShifts(), nil
		},
	}
	appts := &fakeApptRepo{
		listForDayFn: func(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]domain.Appointment, error) {
			if !dayStart.Equal(monday) || !dayEnd.Equal(monday.AddDate(0, 0, 1)) {
				t.Fatalf("day window = [%v, %v)", dayStart, dayEnd)
			}
			return []domain.Appointment{
				{DoctorID: "d1", AppointmentDate: monday.Add(9 * time.Hour), Status: domain.AppointmentStatusBooked},
				{DoctorID: "d1", AppointmentDate: monday.Add(18 * time.Hour), Status: domain.AppointmentStatusCancelled},
			}, nil
		},
	}

	svc := NewService(shifts, appts)
	slots, err := svc.AvailableSlots(context.Background(), "d1", monday)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	if slots[0].SlotType != domain.SlotTypeMorning || slots[0].Available {
		t.Fatalf("morning slot = %+v, want taken", slots[0])
	}
	if slots[1].SlotType != domain.SlotTypeEvening || !slots[1].Available {
		t.Fatalf("evening slot = %+v, want available after cancellation", slots[1])
	}
}

func TestAvailableSlots_NoShiftsSkipsAppointmentLookup(t *testing.T) {
	shifts := &fakeShiftRepo{
		listShiftsForDayFn: func(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
			return nil, nil
		},
	}

	svc := NewService(shifts, &fakeApptRepo{})
	slots, err := svc.AvailableSlots(context.Background(), "d1", monday)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0", len(slots))
	}
}

func TestBook_Succeeds(t *testing.T) {
	morningStart := monday.Add(9 * time.Hour)

	shifts := &fakeShiftRepo{
		listShiftsForDayFn: func(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
			return mondayShifts(), nil
		},
	}
	appts := &fakeApptRepo{
		createFn: func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
			appt.ID = uuid.New()
			return appt, nil
		},
	}

	svc := NewService(shifts, appts)
	appt, err := svc.Book(context.Background(), BookInput{
		DoctorID:  "d1",
		PatientID: "p1",
		SlotID:    domain.SlotID(morningStart),
		Notes:     "first visit",
	})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if appt.Status != domain.AppointmentStatusBooked {
		t.Fatalf("status = %q, want %q", appt.Status, domain.AppointmentStatusBooked)
	}
	if !appt.AppointmentDate.Equal(morningStart) {
		t.Fatalf("appointment date = %v, want %v", appt.AppointmentDate, morningStart)
	}
	if appt.DurationMinutes != 180 {
		t.Fatalf("duration = %d, want 180", appt.DurationMinutes)
	}
	if appt.ID == uuid.Nil {
		t.Fatal("appointment id not assigned")
	}
}

func TestBook_InputErrors(t *testing.T) {
	svc := NewService(&fakeShiftRepo{}, &fakeApptRepo{})

	tests := []struct {
		name    string
		in      BookInput
		invalid bool
	}{
		{
			name: "missing doctor",
			in:   BookInput{PatientID: "p1", SlotID: "1"},
		},
		{
			name: "missing patient",
			in:   BookInput{DoctorID: "d1", SlotID: "1"},
		},
		{
			name: "oversized notes",
			in: BookInput{
				DoctorID:  "d1",
				PatientID: "p1",
				SlotID:    "1",
				Notes:     string(make([]byte, 1001)),
			},
		},
		{
			name:    "missing slot id",
			in:      BookInput{DoctorID: "d1", PatientID: "p1"},
			invalid: true,
		},
		{
			name:    "garbage slot id",
			in:      BookInput{DoctorID: "d1", PatientID: "p1", SlotID: "tomorrow-ish"},
			invalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.invalid {
				var irErr *InvalidRequestError
				if !errors.As(err, &irErr) {
					t.Fatalf("error type = %T, want *InvalidRequestError", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
		})
	}
}

func TestBook_StaleSlotNotFound(t *testing.T) {
	shifts := &fakeShiftRepo{
		listShiftsForDayFn: func(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
			// The morning shift has since been removed.
			return mondayShifts()[1:], nil
		},
	}

	svc := NewService(shifts, &fakeApptRepo{})
	_, err := svc.Book(context.Background(), BookInput{
		DoctorID:  "d1",
		PatientID: "p1",
		SlotID:    domain.SlotID(monday.Add(9 * time.Hour)),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
}

func TestBook_ConflictPassesThrough(t *testing.T) {
	shifts := &fakeShiftRepo{
		listShiftsForDayFn: func(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
			return mondayShifts(), nil
		},
	}
	appts := &fakeApptRepo{
		createFn: func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
			return domain.Appointment{}, store.ErrSlotConflict
		},
	}

	svc := NewService(shifts, appts)
	_, err := svc.Book(context.Background(), BookInput{
		DoctorID:  "d1",
		PatientID: "p1",
		SlotID:    domain.SlotID(monday.Add(9 * time.Hour)),
	})
	if !errors.Is(err, store.ErrSlotConflict) {
		t.Fatalf("err = %v, want %v", err, store.ErrSlotConflict)
	}
}

// racingApptRepo mimics the partial unique index: at most one active
// appointment per (doctor, instant).
type racingApptRepo struct {
	mu    sync.Mutex
	taken map[string]bool
}

func (r *racingApptRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := appt.DoctorID + "/" + appt.AppointmentDate.UTC().Format(time.RFC3339Nano)
	if r.taken[key] {
		return domain.Appointment{}, store.ErrSlotConflict
	}
	if r.taken == nil {
		r.taken = make(map[string]bool)
	}
	r.taken[key] = true
	appt.ID = uuid.New()
	return appt, nil
}

func (r *racingApptRepo) Get(ctx context.Context, doctorID string, id uuid.UUID) (domain.Appointment, error) {
	return domain.Appointment{}, store.ErrNotFound
}

func (r *racingApptRepo) ListForDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time) ([]domain.Appointment, error) {
	return nil, nil
}

func (r *racingApptRepo) ListForPatient(ctx context.Context, patientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return nil, nil
}

func (r *racingApptRepo) UpdateStatus(ctx context.Context, doctorID string, id uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error) {
	return domain.Appointment{}, store.ErrNotFound
}

func TestBook_ConcurrentSameSlotExactlyOneWins(t *testing.T) {
	shifts := &fakeShiftRepo{
		listShiftsForDayFn: func(ctx context.Context, doctorID string, dayOfWeek time.Weekday) ([]domain.ShiftDefinition, error) {
			return mondayShifts(), nil
		},
	}

	svc := NewService(shifts, &racingApptRepo{})
	slotID := domain.SlotID(monday.Add(9 * time.Hour))

	const n = 16
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(patient int) {
			defer wg.Done()
			_, err := svc.Book(context.Background(), BookInput{
				DoctorID:  "d1",
				PatientID: uuid.New().String(),
				SlotID:    slotID,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != n-1 {
		t.Fatalf("wins = %d, conflicts = %d, want 1 and %d", wins, conflicts, n-1)
	}
}

func TestCancel_TransitionGating(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		status  domain.AppointmentStatus
		wantErr error
	}{
		{name: "booked cancels", status: domain.AppointmentStatusBooked},
		{name: "pending cancels", status: domain.AppointmentStatusPending},
		{name: "completed refuses", status: domain.AppointmentStatusCompleted, wantErr: store.ErrConflict},
		{name: "cancelled refuses", status: domain.AppointmentStatusCancelled, wantErr: store.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appts := &fakeApptRepo{
				getFn: func(ctx context.Context, doctorID string, gotID uuid.UUID) (domain.Appointment, error) {
					return domain.Appointment{ID: gotID, DoctorID: doctorID, Status: tt.status}, nil
				},
				updateStatusFn: func(ctx context.Context, doctorID string, gotID uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error) {
					if from != tt.status || to != domain.AppointmentStatusCancelled {
						t.Fatalf("transition %q -> %q, want %q -> cancelled", from, to, tt.status)
					}
					return domain.Appointment{ID: gotID, DoctorID: doctorID, Status: to}, nil
				},
			}

			svc := NewService(&fakeShiftRepo{}, appts)
			appt, err := svc.Cancel(context.Background(), "d1", id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Cancel error: %v", err)
			}
			if appt.Status != domain.AppointmentStatusCancelled {
				t.Fatalf("status = %q, want cancelled", appt.Status)
			}
		})
	}
}

func TestComplete_OnlyFromBooked(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		status  domain.AppointmentStatus
		wantErr error
	}{
		{name: "booked completes", status: domain.AppointmentStatusBooked},
		{name: "pending refuses", status: domain.AppointmentStatusPending, wantErr: store.ErrConflict},
		{name: "cancelled refuses", status: domain.AppointmentStatusCancelled, wantErr: store.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appts := &fakeApptRepo{
				getFn: func(ctx context.Context, doctorID string, gotID uuid.UUID) (domain.Appointment, error) {
					return domain.Appointment{ID: gotID, DoctorID: doctorID, Status: tt.status}, nil
				},
				updateStatusFn: func(ctx context.Context, doctorID string, gotID uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error) {
					return domain.Appointment{ID: gotID, DoctorID: doctorID, Status: to}, nil
				},
			}

			svc := NewService(&fakeShiftRepo{}, appts)
			appt, err := svc.Complete(context.Background(), "d1", id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete error: %v", err)
			}
			if appt.Status != domain.AppointmentStatusCompleted {
				t.Fatalf("status = %q, want completed", appt.Status)
			}
		})
	}
}

func TestCancel_NotFoundPassesThrough(t *testing.T) {
	appts := &fakeApptRepo{
		getFn: func(ctx context.Context, doctorID string, id uuid.UUID) (domain.Appointment, error) {
			return domain.Appointment{}, store.ErrNotFound
		},
	}

	svc := NewService(&fakeShiftRepo{}, appts)
	_, err := svc.Cancel(context.Background(), "d1", uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
}

func TestPatientAppointments_WindowValidation(t *testing.T) {
	svc := NewService(&fakeShiftRepo{}, &fakeApptRepo{})

	start := monday
	_, err := svc.PatientAppointments(context.Background(), "p1", start, start)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}

	_, err = svc.PatientAppointments(context.Background(), "", start, start.AddDate(0, 0, 7))
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestPatientAppointments_PassesWindowUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2026, time.January, 5, 10, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 7)

	appts := &fakeApptRepo{
		listForPatientFn: func(ctx context.Context, patientID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
			if windowStart.Location() != time.UTC || windowEnd.Location() != time.UTC {
				t.Fatalf("window not normalized to UTC: %v, %v", windowStart, windowEnd)
			}
			if !windowStart.Equal(start) || !windowEnd.Equal(end) {
				t.Fatalf("window = [%v, %v)", windowStart, windowEnd)
			}
			return []domain.Appointment{{PatientID: patientID}}, nil
		},
	}

	svc := NewService(&fakeShiftRepo{}, appts)
	got, err := svc.PatientAppointments(context.Background(), "p1", start, end)
	if err != nil {
		t.Fatalf("PatientAppointments error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}
