package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store"
)

type DoctorRepo struct {
	db *bun.DB
}

func NewDoctorRepo(db *bun.DB) *DoctorRepo {
	return &DoctorRepo{db: db}
}

func (r *DoctorRepo) Get(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
	var d domain.Doctor
	err := r.db.NewSelect().
		Model(&d).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Doctor{}, store.ErrNotFound
		}
		return domain.Doctor{}, err
	}
	return d, nil
}

func (r *DoctorRepo) Create(ctx context.Context, d domain.Doctor) (domain.Doctor, error) {
	m := d
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Doctor{}, err
	}
	return m, nil
}

// UpdateAvailability is last-write-wins: the incoming pattern replaces the
// stored one wholesale.
func (r *DoctorRepo) UpdateAvailability(ctx context.Context, id uuid.UUID, av domain.Availability) (domain.Doctor, error) {
	m := domain.Doctor{
		ID:               id,
		AvailabilityDays: av.Days,
		StartTime:        av.StartTime,
		EndTime:          av.EndTime,
	}

	res, err := r.db.NewUpdate().
		Model(&m).
		Column("availability_days", "start_time", "end_time", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Doctor{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Doctor{}, err
	}
	if affected == 0 {
		return domain.Doctor{}, store.ErrNotFound
	}

	return r.Get(ctx, id)
}
