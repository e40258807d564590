package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	windows Repository
}

func NewService(windows Repository) *Service {
	return &Service{windows: windows}
}

func (s *Service) validate(w *Window) error {
	if w.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	w.DayOfWeek = strings.ToLower(strings.TrimSpace(w.DayOfWeek))
	if !ValidDays[w.DayOfWeek] {
		return fmt.Errorf("invalid day_of_week: %s", w.DayOfWeek)
	}
	start, err := MinuteOfDay(w.StartTime)
	if err != nil {
		return err
	}
	end, err := MinuteOfDay(w.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("start_time must be before end_time")
	}
	return nil
}

// Create admits a single availability window. A window already persisted for
// the same doctor and day is rejected.
func (s *Service) Create(ctx context.Context, w *Window) error {
	if err := s.validate(w); err != nil {
		return err
	}
	existing, err := s.windows.GetByDoctorAndDay(ctx, w.DoctorID, w.DayOfWeek)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check existing availability: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("availability for %s already exists", w.DayOfWeek)
	}
	return s.windows.Create(ctx, w)
}

// CreateBatch admits a set of windows for one doctor all-or-nothing. The batch
// is rejected when it repeats a day internally or when any requested day is
// already persisted; the error names the offending days.
func (s *Service) CreateBatch(ctx context.Context, ws []*Window) error {
	if len(ws) == 0 {
		return fmt.Errorf("at least one availability window is required")
	}

	seen := make(map[string]bool, len(ws))
	for _, w := range ws {
		if err := s.validate(w); err != nil {
			return err
		}
		if seen[w.DayOfWeek] {
			return fmt.Errorf("duplicate day in request: %s", w.DayOfWeek)
		}
		seen[w.DayOfWeek] = true
	}

	var taken []string
	for _, w := range ws {
		existing, err := s.windows.GetByDoctorAndDay(ctx, w.DoctorID, w.DayOfWeek)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check existing availability: %w", err)
		}
		if existing != nil {
			taken = append(taken, w.DayOfWeek)
		}
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return fmt.Errorf("availability already exists for: %s", strings.Join(taken, ", "))
	}

	return s.windows.CreateBatch(ctx, ws)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Window, error) {
	return s.windows.GetByID(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Window, error) {
	return s.windows.ListByDoctor(ctx, doctorID)
}

func (s *Service) Update(ctx context.Context, w *Window) error {
	if err := s.validate(w); err != nil {
		return err
	}
	// A day change must not collide with another persisted window.
	existing, err := s.windows.GetByDoctorAndDay(ctx, w.DoctorID, w.DayOfWeek)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check existing availability: %w", err)
	}
	if existing != nil && existing.ID != w.ID {
		return fmt.Errorf("availability for %s already exists", w.DayOfWeek)
	}
	return s.windows.Update(ctx, w)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.windows.Delete(ctx, id)
}
