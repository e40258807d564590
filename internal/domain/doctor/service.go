package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	doctors Repository
}

func NewService(doctors Repository) *Service {
	return &Service{doctors: doctors}
}

func (s *Service) Create(ctx context.Context, d *Doctor) error {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	if d.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if d.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if d.Email == "" {
		return fmt.Errorf("email is required")
	}
	if d.Specialty == "" {
		return fmt.Errorf("specialty is required")
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *Service) Update(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.Search(ctx, params, limit, offset)
}
