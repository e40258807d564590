package medicalrecord

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	records Repository
}

func NewService(records Repository) *Service {
	return &Service{records: records}
}

func (s *Service) validate(rec *Record) error {
	rec.Title = strings.TrimSpace(rec.Title)
	if rec.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if rec.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if rec.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, rec *Record) error {
	if err := s.validate(rec); err != nil {
		return err
	}
	return s.records.Create(ctx, rec)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Update(ctx context.Context, rec *Record) error {
	if err := s.validate(rec); err != nil {
		return err
	}
	return s.records.Update(ctx, rec)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}
