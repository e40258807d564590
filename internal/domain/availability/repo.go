package availability

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for availability windows.
type Repository interface {
	Create(ctx context.Context, w *Window) error
	CreateBatch(ctx context.Context, ws []*Window) error
	GetByID(ctx context.Context, id uuid.UUID) (*Window, error)
	GetByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day string) (*Window, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Window, error)
	Update(ctx context.Context, w *Window) error
	Delete(ctx context.Context, id uuid.UUID) error
}
