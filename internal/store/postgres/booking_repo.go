package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store"
)

const slotUniqueConstraint = "schedule_entries_doctor_date_slot_key"

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// Book inserts the schedule entry and the appointment in one transaction.
// The unique constraint on (doctor_id, date, slot) is the reservation: a
// concurrent booking for the same key collides on insert instead of racing a
// read against a write, so at most one of the transactions commits.
func (r *BookingRepo) Book(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		a := appt
		if err := lockDoctorDay(ctx, tx, a.DoctorID, a.Date); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&a).Exec(ctx); err != nil {
			return err
		}

		entry := domain.ScheduleEntry{
			DoctorID:      a.DoctorID,
			Date:          a.Date,
			Slot:          a.Slot,
			PatientID:     a.PatientID,
			AppointmentID: a.ID,
		}
		if _, err := tx.NewInsert().Model(&entry).Exec(ctx); err != nil {
			if isSlotTaken(err) {
				return store.ErrSlotTaken
			}
			return err
		}

		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// lockDoctorDay serializes booking transactions on the same doctor-day, so
// concurrent bookings queue instead of burning transactions on constraint
// collisions. The unique constraint stays the invariant.
func lockDoctorDay(ctx context.Context, tx bun.Tx, doctorID uuid.UUID, date string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", doctorID.String()+"/"+date).Exec(ctx)
	return err
}

func (r *BookingRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

// UpdateStatus is a compare-and-set on the status column. Rows are never
// deleted, so zero rows affected means a concurrent transition won the race
// and the read status is stale.
func (r *BookingRepo) UpdateStatus(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error {
	res, err := r.db.NewUpdate().
		Model(appt).
		Column("status", "updated_at").
		WherePK().
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvalidStatusTransition
	}
	return nil
}

// Cancel records the cancelled status and frees the schedule entry in the
// same transaction, so a cancelled slot is immediately rebookable and no
// orphaned reservation survives the appointment.
func (r *BookingRepo) Cancel(ctx context.Context, appt *domain.Appointment, from domain.AppointmentStatus) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(appt).
			Column("status", "cancelled_at", "cancellation_reason", "cancelled_by", "updated_at").
			WherePK().
			Where("status = ?", from).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrInvalidStatusTransition
		}

		_, err = tx.NewDelete().
			Model((*domain.ScheduleEntry)(nil)).
			Where("appointment_id = ?", appt.ID).
			Exec(ctx)
		return err
	})
}

func (r *BookingRepo) ListPatientAppointments(ctx context.Context, patientID string) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("patient_id = ?", patientID).
		OrderExpr("date ASC, slot ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		OrderExpr("date ASC, slot ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ReservedSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	var slots []string
	err := r.db.NewSelect().
		Model((*domain.ScheduleEntry)(nil)).
		Column("slot").
		Where("doctor_id = ?", doctorID).
		Where("date = ?", date).
		Scan(ctx, &slots)
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func isSlotTaken(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == slotUniqueConstraint
}
