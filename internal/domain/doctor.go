package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Doctor struct {
	bun.BaseModel `bun:"table:doctors"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Name       string    `bun:"name,notnull"`
	Profession string    `bun:"profession"`

	AvailabilityDays []string `bun:"availability_days,array"`
	StartTime        string   `bun:"start_time"`
	EndTime          string   `bun:"end_time"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Availability returns the doctor's declared weekly pattern. Absent or
// malformed profile fields degrade inside Availability itself, so the result
// is always usable.
func (d *Doctor) Availability() Availability {
	return Availability{
		Days:      d.AvailabilityDays,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
	}
}

func (d *Doctor) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if d.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			d.ID = id
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		d.UpdatedAt = now
	}
	return nil
}
