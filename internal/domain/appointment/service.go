package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier is told about booking lifecycle events. Implementations must not
// block; failures are the notifier's concern.
type Notifier interface {
	AppointmentBooked(ctx context.Context, a *Appointment)
	AppointmentCancelled(ctx context.Context, a *Appointment)
}

// NopNotifier ignores all events.
type NopNotifier struct{}

func (NopNotifier) AppointmentBooked(context.Context, *Appointment)    {}
func (NopNotifier) AppointmentCancelled(context.Context, *Appointment) {}

type Service struct {
	scheduler    *Scheduler
	appointments Repository
	notifier     Notifier
	logger       zerolog.Logger
}

func NewService(scheduler *Scheduler, appointments Repository, notifier Notifier, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{scheduler: scheduler, appointments: appointments, notifier: notifier, logger: logger}
}

// Book runs the booking request through the scheduler and announces success.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	appt, err := s.scheduler.TryBook(ctx, req)
	if err != nil {
		return nil, err
	}
	s.notifier.AppointmentBooked(ctx, appt)
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.Search(ctx, params, limit, offset)
}

// Update applies a partial update as a field merge. Availability validation is
// not re-run, so rescheduling through update can land outside the doctor's
// window. Overlaps are still rejected: the database exclusion constraint fires
// on the rewrite and comes back as the already-booked rejection.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("appointment not found")
	}
	if req.StartTime != nil {
		appt.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		appt.EndTime = *req.EndTime
	}
	if req.Status != nil {
		if !validStatuses[*req.Status] {
			return nil, fmt.Errorf("invalid appointment status: %s", *req.Status)
		}
		appt.Status = *req.Status
	}
	if req.Reason != nil {
		appt.Reason = req.Reason
	}
	if req.Notes != nil {
		appt.Notes = req.Notes
	}
	if !appt.StartTime.Before(appt.EndTime) {
		return nil, fmt.Errorf("start_time must be before end_time")
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		if errors.Is(err, ErrOverlapConflict) {
			return nil, &Rejection{Kind: DoctorAlreadyBooked}
		}
		return nil, err
	}
	return appt, nil
}

// Cancel marks the appointment cancelled. The row is kept; cancelled
// appointments continue to block their slot.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("appointment not found")
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}
	appt.Status = StatusCancelled
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.notifier.AppointmentCancelled(ctx, appt)
	return appt, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}
