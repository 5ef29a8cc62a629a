package store

import (
	"context"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
)

// DoctorRepository manages doctor profiles and their declared availability.
// Availability updates are last-write-wins; there is no versioning.
type DoctorRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Doctor, error)
	Create(ctx context.Context, d domain.Doctor) (domain.Doctor, error)
	UpdateAvailability(ctx context.Context, id uuid.UUID, av domain.Availability) (domain.Doctor, error)
}
