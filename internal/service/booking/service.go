package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/metrics"
	"carebook/backend/internal/store"
)

var ErrForbidden = errors.New("forbidden")

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError reports a caller mistake that maps to a 400 at the
// transport layer.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Caller identifies the authenticated principal acting on an appointment.
type Caller struct {
	ID   string
	Role string
}

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// DoctorCache fronts doctor profile reads; see internal/cache for the redis
// implementation.
type DoctorCache interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Doctor, bool)
	Set(ctx context.Context, d domain.Doctor)
	Invalidate(ctx context.Context, id uuid.UUID)
}

type Service struct {
	bookings store.BookingRepository
	doctors  store.DoctorRepository
	cache    DoctorCache
	metrics  *metrics.Collector
	now      func() time.Time
}

func NewService(bookings store.BookingRepository, doctors store.DoctorRepository, cache DoctorCache, collector *metrics.Collector) *Service {
	return &Service{
		bookings: bookings,
		doctors:  doctors,
		cache:    cache,
		metrics:  collector,
		now:      time.Now,
	}
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
	if id == uuid.Nil {
		return domain.Doctor{}, validationError("doctor_id is required")
	}

	if d, ok := s.cache.Get(ctx, id); ok {
		s.metrics.CacheHitsTotal.Inc()
		return d, nil
	}
	s.metrics.CacheMissesTotal.Inc()

	d, err := s.doctors.Get(ctx, id)
	if err != nil {
		return domain.Doctor{}, err
	}
	s.cache.Set(ctx, d)
	return d, nil
}

type AvailabilityInput struct {
	Days      []string
	StartTime string
	EndTime   string
}

// UpdateAvailability replaces the doctor's weekly pattern. Malformed labels
// are stored as given and degrade to permissive defaults on read; last write
// wins.
func (s *Service) UpdateAvailability(ctx context.Context, doctorID uuid.UUID, in AvailabilityInput) (domain.Doctor, error) {
	if doctorID == uuid.Nil {
		return domain.Doctor{}, validationError("doctor_id is required")
	}

	days := make([]string, 0, len(in.Days))
	for _, d := range in.Days {
		if t := strings.TrimSpace(d); t != "" {
			days = append(days, t)
		}
	}

	d, err := s.doctors.UpdateAvailability(ctx, doctorID, domain.Availability{
		Days:      days,
		StartTime: strings.TrimSpace(in.StartTime),
		EndTime:   strings.TrimSpace(in.EndTime),
	})
	if err != nil {
		return domain.Doctor{}, err
	}

	s.cache.Invalidate(ctx, doctorID)
	return d, nil
}

// NextDates returns the doctor's next working dates, at most
// domain.NextDatesLimit of them inside the scan window.
func (s *Service) NextDates(ctx context.Context, doctorID uuid.UUID) ([]time.Time, error) {
	d, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return domain.NextAvailableDates(d.Availability(), s.now()), nil
}

// SlotStatus is one bookable slot on a given date, flagged when already
// reserved so the client can disable it.
type SlotStatus struct {
	Label    string
	Reserved bool
}

// DaySchedule expands the doctor's availability for one date and marks the
// slots that are already taken. An empty result means the doctor does not
// work that day; that is an empty state, not an error.
func (s *Service) DaySchedule(ctx context.Context, doctorID uuid.UUID, date string) ([]SlotStatus, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	d, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	slots := domain.SlotsForDate(d.Availability(), day)
	if len(slots) == 0 {
		return []SlotStatus{}, nil
	}

	reserved, err := s.bookings.ReservedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(reserved))
	for _, slot := range reserved {
		taken[slot] = struct{}{}
	}

	out := make([]SlotStatus, 0, len(slots))
	for _, slot := range slots {
		_, isTaken := taken[slot]
		out = append(out, SlotStatus{Label: slot, Reserved: isTaken})
	}
	return out, nil
}

type BookInput struct {
	DoctorID    uuid.UUID
	PatientID   string
	PatientName string
	Date        string
	Slot        string
	Reason      string
}

// Book runs the booking transaction: validate the slot against the doctor's
// schedule, then reserve it and create the pending appointment atomically.
// A lost race surfaces as store.ErrSlotTaken.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if in.PatientID == "" {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	if in.DoctorID == uuid.Nil {
		return domain.Appointment{}, validationError("doctor_id is required")
	}

	day, err := parseDate(in.Date)
	if err != nil {
		return domain.Appointment{}, err
	}

	d, err := s.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		return domain.Appointment{}, err
	}

	slot := strings.TrimSpace(in.Slot)
	if !slotOffered(d.Availability(), day, slot) {
		return domain.Appointment{}, validationError("doctor is not available at that time")
	}

	appt := domain.Appointment{
		DoctorID:      d.ID,
		DoctorName:    d.Name,
		Profession:    d.Profession,
		PatientID:     in.PatientID,
		PatientName:   strings.TrimSpace(in.PatientName),
		Date:          in.Date,
		DateLabel:     day.Format(domain.DateLabelLayout),
		Slot:          slot,
		Reason:        strings.TrimSpace(in.Reason),
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentUnpaid,
	}

	out, err := s.bookings.Book(ctx, appt)
	if err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			s.metrics.SlotConflictTotal.Inc()
			s.metrics.BookingsTotal.WithLabelValues("conflict").Inc()
		} else {
			s.metrics.BookingsTotal.WithLabelValues("error").Inc()
		}
		return domain.Appointment{}, err
	}

	s.metrics.BookingsTotal.WithLabelValues("booked").Inc()
	s.metrics.AppointmentsTotal.WithLabelValues(string(domain.StatusPending)).Inc()
	return out, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID, caller Caller) (domain.Appointment, error) {
	a, err := s.bookings.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !callerOwns(a, caller) {
		return domain.Appointment{}, ErrForbidden
	}
	return a, nil
}

// callerOwns reports whether the caller is the appointment's patient or its
// doctor. Any other role has no claim on the appointment.
func callerOwns(a domain.Appointment, caller Caller) bool {
	switch caller.Role {
	case RolePatient:
		return a.PatientID == caller.ID
	case RoleDoctor:
		return a.DoctorID.String() == caller.ID
	default:
		return false
	}
}

// Confirm is doctor-driven: pending → confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, id, (*domain.Appointment).Confirm, domain.StatusConfirmed)
}

// Complete is doctor-driven: confirmed → completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, id, (*domain.Appointment).Complete, domain.StatusCompleted)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, step func(*domain.Appointment) error, to domain.AppointmentStatus) (domain.Appointment, error) {
	a, err := s.bookings.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	from := a.Status
	if err := step(&a); err != nil {
		return domain.Appointment{}, err
	}
	if err := s.bookings.UpdateStatus(ctx, &a, from); err != nil {
		return domain.Appointment{}, err
	}
	s.metrics.AppointmentsTotal.WithLabelValues(string(to)).Inc()
	return a, nil
}

// Cancel moves the appointment to cancelled and frees its schedule entry.
// Only the appointment's patient or its doctor may cancel.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, caller Caller, reason string) (domain.Appointment, error) {
	a, err := s.bookings.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !callerOwns(a, caller) {
		return domain.Appointment{}, ErrForbidden
	}

	from := a.Status
	if err := a.Cancel(strings.TrimSpace(reason), caller.ID); err != nil {
		return domain.Appointment{}, err
	}
	if err := s.bookings.Cancel(ctx, &a, from); err != nil {
		return domain.Appointment{}, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(domain.StatusCancelled)).Inc()
	return a, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	if patientID == "" {
		return nil, validationError("patient_id is required")
	}
	return s.bookings.ListPatientAppointments(ctx, patientID)
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error) {
	if doctorID == uuid.Nil {
		return nil, validationError("doctor_id is required")
	}
	return s.bookings.ListDoctorAppointments(ctx, doctorID)
}

func parseDate(date string) (time.Time, error) {
	day, err := time.Parse(domain.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, validationError("date must be formatted YYYY-MM-DD")
	}
	return day, nil
}

func slotOffered(av domain.Availability, day time.Time, slot string) bool {
	for _, s := range domain.SlotsForDate(av, day) {
		if s == slot {
			return true
		}
	}
	return false
}
