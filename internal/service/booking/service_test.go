package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/metrics"
	"carebook/backend/internal/store"
)

type fakeBookings struct {
	bookFn          func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	getFn           func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	updateStatusFn  func(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error
	cancelFn        func(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error
	listPatientFn   func(ctx context.Context, patientID string) ([]domain.Appointment, error)
	listDoctorFn    func(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error)
	reservedSlotsFn func(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
}

func (f *fakeBookings) Book(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if f.bookFn == nil {
		panic("Book not configured")
	}
	return f.bookFn(ctx, appt)
}

func (f *fakeBookings) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("GetAppointment not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeBookings) UpdateStatus(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error {
	if f.updateStatusFn == nil {
		panic("UpdateStatus not configured")
	}
	return f.updateStatusFn(ctx, appt, from)
}

func (f *fakeBookings) Cancel(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error {
	if f.cancelFn == nil {
		panic("Cancel not configured")
	}
	return f.cancelFn(ctx, appt, from)
}

func (f *fakeBookings) ListPatientAppointments(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	if f.listPatientFn == nil {
		panic("ListPatientAppointments not configured")
	}
	return f.listPatientFn(ctx, patientID)
}

func (f *fakeBookings) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error) {
	if f.listDoctorFn == nil {
		panic("ListDoctorAppointments not configured")
	}
	return f.listDoctorFn(ctx, doctorID)
}

func (f *fakeBookings) ReservedSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	if f.reservedSlotsFn == nil {
		return nil, nil
	}
	return f.reservedSlotsFn(ctx, doctorID, date)
}

type fakeDoctors struct {
	getFn    func(ctx context.Context, id uuid.UUID) (domain.Doctor, error)
	createFn func(ctx context.Context, d domain.Doctor) (domain.Doctor, error)
	updateFn func(ctx context.Context, id uuid.UUID, av domain.Availability) (domain.Doctor, error)
}

func (f *fakeDoctors) Get(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeDoctors) Create(ctx context.Context, d domain.Doctor) (domain.Doctor, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, d)
}

func (f *fakeDoctors) UpdateAvailability(ctx context.Context, id uuid.UUID, av domain.Availability) (domain.Doctor, error) {
	if f.updateFn == nil {
		panic("UpdateAvailability not configured")
	}
	return f.updateFn(ctx, id, av)
}

type fakeCache struct {
	entries     map[uuid.UUID]domain.Doctor
	invalidated []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[uuid.UUID]domain.Doctor)}
}

func (f *fakeCache) Get(ctx context.Context, id uuid.UUID) (domain.Doctor, bool) {
	d, ok := f.entries[id]
	return d, ok
}

func (f *fakeCache) Set(ctx context.Context, d domain.Doctor) {
	f.entries[d.ID] = d
}

func (f *fakeCache) Invalidate(ctx context.Context, id uuid.UUID) {
	delete(f.entries, id)
	f.invalidated = append(f.invalidated, id)
}

func newTestService(bookings store.BookingRepository, doctors store.DoctorRepository, cache DoctorCache) *Service {
	if cache == nil {
		cache = newFakeCache()
	}
	return NewService(bookings, doctors, cache, metrics.NewCollector("test", prometheus.NewRegistry()))
}

var docID = uuid.MustParse("00000000-0000-0000-0000-000000000d0c")

func mondayDoctor() domain.Doctor {
	return domain.Doctor{
		ID:               docID,
		Name:             "Dr. Ada",
		Profession:       "Cardiologist",
		AvailabilityDays: []string{"Monday"},
		StartTime:        "09:00 AM",
		EndTime:          "11:00 AM",
	}
}

func TestBook_FreeSlotCreatesPendingAppointment(t *testing.T) {
	var booked domain.Appointment
	svc := newTestService(
		&fakeBookings{
			bookFn: func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
				booked = appt
				appt.ID = uuid.New()
				return appt, nil
			},
		},
		&fakeDoctors{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
				return mondayDoctor(), nil
			},
		},
		nil,
	)

	out, err := svc.Book(context.Background(), BookInput{
		DoctorID:    docID,
		PatientID:   "p1",
		PatientName: "  Pat  ",
		Date:        "2024-06-10", // a Monday
		Slot:        "10:00 AM",
		Reason:      "chest pain",
	})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if out.ID == uuid.Nil {
		t.Fatalf("expected assigned appointment id")
	}
	if booked.Status != domain.StatusPending {
		t.Fatalf("status = %q, want %q", booked.Status, domain.StatusPending)
	}
	if booked.PaymentStatus != domain.PaymentUnpaid {
		t.Fatalf("payment status = %q, want %q", booked.PaymentStatus, domain.PaymentUnpaid)
	}
	if booked.PatientName != "Pat" {
		t.Fatalf("patient name = %q, want trimmed %q", booked.PatientName, "Pat")
	}
	if booked.DoctorName != "Dr. Ada" || booked.Profession != "Cardiologist" {
		t.Fatalf("doctor fields not denormalized: %+v", booked)
	}
	if booked.DateLabel != "Monday, 10 June 2024" {
		t.Fatalf("date label = %q", booked.DateLabel)
	}
}

func TestBook_SlotTakenPropagatesWithoutAppointment(t *testing.T) {
	svc := newTestService(
		&fakeBookings{
			bookFn: func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
				return domain.Appointment{}, store.ErrSlotTaken
			},
		},
		&fakeDoctors{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
				return mondayDoctor(), nil
			},
		},
		nil,
	)

	_, err := svc.Book(context.Background(), BookInput{
		DoctorID:  docID,
		PatientID: "p1",
		Date:      "2024-06-10",
		Slot:      "10:00 AM",
	})
	if !errors.Is(err, store.ErrSlotTaken) {
		t.Fatalf("error = %v, want %v", err, store.ErrSlotTaken)
	}
}

func TestBook_RejectsSlotOutsideSchedule(t *testing.T) {
	svc := newTestService(
		&fakeBookings{},
		&fakeDoctors{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
				return mondayDoctor(), nil
			},
		},
		nil,
	)

	tests := []struct {
		name string
		date string
		slot string
	}{
		{name: "not a working day", date: "2024-06-11", slot: "10:00 AM"},
		{name: "outside hour range", date: "2024-06-10", slot: "05:00 PM"},
		{name: "label not in vocabulary", date: "2024-06-10", slot: "09:30 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), BookInput{
				DoctorID:  docID,
				PatientID: "p1",
				Date:      tt.date,
				Slot:      tt.slot,
			})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestBook_Validation(t *testing.T) {
	svc := newTestService(&fakeBookings{}, &fakeDoctors{}, nil)

	_, err := svc.Book(context.Background(), BookInput{DoctorID: docID, Date: "2024-06-10", Slot: "10:00 AM"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Error() != "patient_id is required" {
		t.Fatalf("error = %v, want patient_id validation error", err)
	}

	_, err = svc.Book(context.Background(), BookInput{DoctorID: docID, PatientID: "p1", Date: "10/06/2024", Slot: "10:00 AM"})
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError for bad date", err)
	}
}

func TestDaySchedule_MarksReservedSlots(t *testing.T) {
	svc := newTestService(
		&fakeBookings{
			reservedSlotsFn: func(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
				return []string{"10:00 AM"}, nil
			},
		},
		&fakeDoctors{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
				return mondayDoctor(), nil
			},
		},
		nil,
	)

	got, err := svc.DaySchedule(context.Background(), docID, "2024-06-10")
	if err != nil {
		t.Fatalf("DaySchedule error: %v", err)
	}
	want := []SlotStatus{
		{Label: "09:00 AM"},
		{Label: "10:00 AM", Reserved: true},
		{Label: "11:00 AM"},
	}
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDaySchedule_NonWorkingDayIsEmptyNotError(t *testing.T) {
	svc := newTestService(
		&fakeBookings{},
		&fakeDoctors{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
				return mondayDoctor(), nil
			},
		},
		nil,
	)

	got, err := svc.DaySchedule(context.Background(), docID, "2024-06-11") // a Tuesday
	if err != nil {
		t.Fatalf("DaySchedule error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("slots = %v, want empty", got)
	}
}

func TestNextDates_UsesInjectedClock(t *testing.T) {
	svc := newTestService(
		&fakeBookings{},
		&fakeDoctors{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
				return mondayDoctor(), nil
			},
		},
		nil,
	)
	svc.now = func() time.Time {
		return time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	}

	got, err := svc.NextDates(context.Background(), docID)
	if err != nil {
		t.Fatalf("NextDates error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("dates = %v, want 2 Mondays in the window", got)
	}
	if got[0].Format(domain.DateLayout) != "2024-06-10" {
		t.Fatalf("first date = %v, want today", got[0])
	}
}

func TestGetDoctor_CachesAfterMiss(t *testing.T) {
	calls := 0
	cache := newFakeCache()
	svc := newTestService(
		&fakeBookings{},
		&fakeDoctors{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
				calls++
				return mondayDoctor(), nil
			},
		},
		cache,
	)

	for i := 0; i < 3; i++ {
		if _, err := svc.GetDoctor(context.Background(), docID); err != nil {
			t.Fatalf("GetDoctor error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("store reads = %d, want 1 (cache should serve the rest)", calls)
	}
}

func TestUpdateAvailability_InvalidatesCache(t *testing.T) {
	cache := newFakeCache()
	cache.Set(context.Background(), mondayDoctor())

	svc := newTestService(
		&fakeBookings{},
		&fakeDoctors{
			updateFn: func(ctx context.Context, id uuid.UUID, av domain.Availability) (domain.Doctor, error) {
				d := mondayDoctor()
				d.AvailabilityDays = av.Days
				return d, nil
			},
		},
		cache,
	)

	_, err := svc.UpdateAvailability(context.Background(), docID, AvailabilityInput{
		Days:      []string{" Tuesday ", ""},
		StartTime: "09:00 AM",
		EndTime:   "05:00 PM",
	})
	if err != nil {
		t.Fatalf("UpdateAvailability error: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != docID {
		t.Fatalf("cache not invalidated: %v", cache.invalidated)
	}
}

func TestCancel_FreesSlotAndRecordsMetadata(t *testing.T) {
	var cancelled *domain.Appointment
	var priorStatus domain.AppointmentStatus
	svc := newTestService(
		&fakeBookings{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return domain.Appointment{ID: id, PatientID: "p1", Status: domain.StatusConfirmed}, nil
			},
			cancelFn: func(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error {
				cancelled = appt
				priorStatus = from
				return nil
			},
		},
		&fakeDoctors{},
		nil,
	)

	id := uuid.New()
	out, err := svc.Cancel(context.Background(), id, Caller{ID: "p1", Role: RolePatient}, "feeling better")
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if out.Status != domain.StatusCancelled {
		t.Fatalf("status = %q, want %q", out.Status, domain.StatusCancelled)
	}
	if cancelled == nil || cancelled.CancellationReason != "feeling better" || cancelled.CancelledBy != "p1" {
		t.Fatalf("cancellation not forwarded to store: %+v", cancelled)
	}
	if priorStatus != domain.StatusConfirmed {
		t.Fatalf("prior status = %q, want %q", priorStatus, domain.StatusConfirmed)
	}
}

func TestCancel_PatientCannotCancelForeignAppointment(t *testing.T) {
	svc := newTestService(
		&fakeBookings{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return domain.Appointment{ID: id, PatientID: "someone-else", Status: domain.StatusPending}, nil
			},
		},
		&fakeDoctors{},
		nil,
	)

	_, err := svc.Cancel(context.Background(), uuid.New(), Caller{ID: "p1", Role: RolePatient}, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want %v", err, ErrForbidden)
	}
}

func TestCancel_ForeignDoctorForbidden(t *testing.T) {
	owner := uuid.New()
	svc := newTestService(
		&fakeBookings{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return domain.Appointment{ID: id, DoctorID: owner, PatientID: "p1", Status: domain.StatusPending}, nil
			},
		},
		&fakeDoctors{},
		nil,
	)

	_, err := svc.Cancel(context.Background(), uuid.New(), Caller{ID: uuid.NewString(), Role: RoleDoctor}, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want %v", err, ErrForbidden)
	}
}

func TestCancel_OwningDoctorCancels(t *testing.T) {
	owner := uuid.New()
	var cancelled *domain.Appointment
	svc := newTestService(
		&fakeBookings{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return domain.Appointment{ID: id, DoctorID: owner, PatientID: "p1", Status: domain.StatusPending}, nil
			},
			cancelFn: func(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error {
				cancelled = appt
				return nil
			},
		},
		&fakeDoctors{},
		nil,
	)

	out, err := svc.Cancel(context.Background(), uuid.New(), Caller{ID: owner.String(), Role: RoleDoctor}, "emergency")
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if out.Status != domain.StatusCancelled {
		t.Fatalf("status = %q, want %q", out.Status, domain.StatusCancelled)
	}
	if cancelled == nil || cancelled.CancelledBy != owner.String() {
		t.Fatalf("cancellation not attributed to doctor: %+v", cancelled)
	}
}

func TestCancel_UnknownRoleForbidden(t *testing.T) {
	svc := newTestService(
		&fakeBookings{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return domain.Appointment{ID: id, DoctorID: uuid.New(), PatientID: "p1", Status: domain.StatusPending}, nil
			},
		},
		&fakeDoctors{},
		nil,
	)

	_, err := svc.Cancel(context.Background(), uuid.New(), Caller{ID: "p1", Role: "admin"}, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("error = %v, want %v", err, ErrForbidden)
	}
}

func TestCancel_TerminalStateRejected(t *testing.T) {
	svc := newTestService(
		&fakeBookings{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return domain.Appointment{ID: id, PatientID: "p1", Status: domain.StatusCompleted}, nil
			},
		},
		&fakeDoctors{},
		nil,
	)

	_, err := svc.Cancel(context.Background(), uuid.New(), Caller{ID: "p1", Role: RolePatient}, "")
	if !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("error = %v, want %v", err, domain.ErrInvalidStatusTransition)
	}
}

func TestConfirmAndComplete_TransitionAndPersist(t *testing.T) {
	status := domain.StatusPending
	svc := newTestService(
		&fakeBookings{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return domain.Appointment{ID: id, PatientID: "p1", Status: status}, nil
			},
			updateStatusFn: func(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error {
				if from != status {
					t.Fatalf("expected prior status %q, got %q", status, from)
				}
				status = appt.Status
				return nil
			},
		},
		&fakeDoctors{},
		nil,
	)

	id := uuid.New()
	a, err := svc.Confirm(context.Background(), id)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if a.Status != domain.StatusConfirmed {
		t.Fatalf("status = %q, want %q", a.Status, domain.StatusConfirmed)
	}

	a, err = svc.Complete(context.Background(), id)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if a.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want %q", a.Status, domain.StatusCompleted)
	}

	if _, err := svc.Confirm(context.Background(), id); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("error = %v, want %v", err, domain.ErrInvalidStatusTransition)
	}
}

func TestGetAppointment_OwnershipEnforced(t *testing.T) {
	owner := uuid.New()
	svc := newTestService(
		&fakeBookings{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
				return domain.Appointment{ID: id, DoctorID: owner, PatientID: "p2"}, nil
			},
		},
		&fakeDoctors{},
		nil,
	)

	tests := []struct {
		name    string
		caller  Caller
		wantErr error
	}{
		{"owning patient", Caller{ID: "p2", Role: RolePatient}, nil},
		{"foreign patient", Caller{ID: "p1", Role: RolePatient}, ErrForbidden},
		{"owning doctor", Caller{ID: owner.String(), Role: RoleDoctor}, nil},
		{"foreign doctor", Caller{ID: uuid.NewString(), Role: RoleDoctor}, ErrForbidden},
		{"unknown role", Caller{ID: "p2", Role: "admin"}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetAppointment(context.Background(), uuid.New(), tt.caller)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListForPatient_RequiresPatientID(t *testing.T) {
	svc := newTestService(&fakeBookings{}, &fakeDoctors{}, nil)

	_, err := svc.ListForPatient(context.Background(), "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}
