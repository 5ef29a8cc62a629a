package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DateLayout is the ISO calendar-date form used for schedule keys and
// appointment dates.
const DateLayout = "2006-01-02"

// DateLabelLayout is the human-readable date shown alongside the ISO date.
const DateLabelLayout = "Monday, 02 January 2006"

var ErrInvalidStatusTransition = errors.New("invalid appointment status transition")

// AppointmentStatus follows a small linear lifecycle:
//
//	pending → confirmed → completed
//	pending → cancelled
//	confirmed → cancelled
//
// completed and cancelled are terminal.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID uuid.UUID `bun:"id,pk,type:uuid"`

	DoctorID   uuid.UUID `bun:"doctor_id,notnull,type:uuid"`
	DoctorName string    `bun:"doctor_name,notnull"`
	Profession string    `bun:"profession"`

	PatientID   string `bun:"patient_id,notnull"`
	PatientName string `bun:"patient_name"`

	Date      string `bun:"date,notnull"`
	DateLabel string `bun:"date_label,notnull"`
	Slot      string `bun:"slot,notnull"`
	Reason    string `bun:"reason"`

	Status        AppointmentStatus `bun:"status,notnull"`
	PaymentStatus PaymentStatus     `bun:"payment_status,notnull"`

	CancelledAt        *time.Time `bun:"cancelled_at"`
	CancellationReason string     `bun:"cancellation_reason"`
	CancelledBy        string     `bun:"cancelled_by"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	switch a.Status {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

func (a *Appointment) Confirm() error {
	if !a.CanTransitionTo(StatusConfirmed) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusConfirmed
	return nil
}

func (a *Appointment) Complete() error {
	if !a.CanTransitionTo(StatusCompleted) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusCompleted
	return nil
}

func (a *Appointment) Cancel(reason, cancelledBy string) error {
	if !a.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancellationReason = reason
	a.CancelledBy = cancelledBy
	return nil
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// ScheduleEntry marks one slot on one date as taken by one patient. The
// database enforces uniqueness on (doctor_id, date, slot); reservation is an
// insert that either lands or collides, never a read-then-write.
type ScheduleEntry struct {
	bun.BaseModel `bun:"table:schedule_entries"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	DoctorID      uuid.UUID `bun:"doctor_id,notnull,type:uuid"`
	Date          string    `bun:"date,notnull"`
	Slot          string    `bun:"slot,notnull"`
	PatientID     string    `bun:"patient_id,notnull"`
	AppointmentID uuid.UUID `bun:"appointment_id,notnull,type:uuid"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (e *ScheduleEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}
