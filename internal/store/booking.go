package store

import (
	"context"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
)

// BookingRepository persists schedule entries and appointment records.
// Book and Cancel are transactional: a booking writes the reservation and the
// appointment atomically, and a cancellation frees the reservation in the
// same transaction that records the cancelled status.
type BookingRepository interface {
	// Book reserves appt's (doctor, date, slot) and creates the appointment.
	// Returns ErrSlotTaken if the slot is already reserved.
	Book(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// UpdateStatus and Cancel write the appointment's new status only if the
	// row still holds the status the caller read (from). A concurrent
	// transition that got there first surfaces as
	// domain.ErrInvalidStatusTransition, never a silent overwrite.
	UpdateStatus(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error
	Cancel(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error

	ListPatientAppointments(ctx context.Context, patientID string) ([]domain.Appointment, error)
	ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error)

	// ReservedSlots returns the slot labels already taken for the doctor on
	// the given ISO date.
	ReservedSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)
}
