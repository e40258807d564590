package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrOverlapConflict is returned by AppointmentStore.Insert when the database
// exclusion constraint rejects an overlapping booking that slipped past the
// application check.
var ErrOverlapConflict = errors.New("appointment overlaps an existing booking")

// AvailabilityWindow is the scheduler's view of a doctor's working hours on
// one weekday. Start and End are "HH:MM" wall-clock strings; StartMinute and
// EndMinute are the same bounds as minutes since midnight.
type AvailabilityWindow struct {
	Day         string
	Start       string
	End         string
	StartMinute int
	EndMinute   int
}

// AvailabilityStore resolves a doctor's availability window for a weekday.
// A nil window with nil error means the doctor has no availability that day.
type AvailabilityStore interface {
	WindowFor(ctx context.Context, doctorID uuid.UUID, day string) (*AvailabilityWindow, error)
}

// AppointmentStore persists appointments for the scheduler.
type AppointmentStore interface {
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error)
	Insert(ctx context.Context, a *Appointment) error
}

// Scheduler decides whether a booking request is admitted. Collaborators are
// injected; the scheduler holds no global state and is safe for concurrent use.
type Scheduler struct {
	availability AvailabilityStore
	appointments AppointmentStore
	loc          *time.Location
}

func NewScheduler(availability AvailabilityStore, appointments AppointmentStore, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{availability: availability, appointments: appointments, loc: loc}
}

// TryBook validates a booking request against the doctor's weekly availability
// and existing appointments, then persists it with status scheduled. Refusals
// are returned as *Rejection; anything else is a system failure.
//
// The weekday is derived from the start instant only, in the clinic timezone.
// Window containment compares minutes of day. The overlap check treats
// intervals as half-open, so a booking may start exactly when another ends.
func (s *Scheduler) TryBook(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if req.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("doctor_id is required")
	}
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return nil, fmt.Errorf("start_time and end_time are required")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, fmt.Errorf("start_time must be before end_time")
	}

	start := req.StartTime.In(s.loc)
	end := req.EndTime.In(s.loc)
	day := strings.ToLower(start.Weekday().String())

	window, err := s.availability.WindowFor(ctx, req.DoctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if window == nil {
		return nil, &Rejection{Kind: NoAvailabilityForDay, Day: day}
	}

	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if startMin < window.StartMinute || endMin > window.EndMinute {
		return nil, &Rejection{
			Kind:        OutsideAvailabilityWindow,
			Day:         day,
			WindowStart: window.Start,
			WindowEnd:   window.End,
		}
	}

	existing, err := s.appointments.FindOverlapping(ctx, req.DoctorID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("check conflicts: %w", err)
	}
	if len(existing) > 0 {
		return nil, &Rejection{Kind: DoctorAlreadyBooked, Conflict: existing[0]}
	}

	appt := &Appointment{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    StatusScheduled,
		Reason:    req.Reason,
		IsVirtual: req.IsVirtual,
	}
	if err := s.appointments.Insert(ctx, appt); err != nil {
		// A concurrent booking can win between the overlap check and the
		// insert; the exclusion constraint reports it as a conflict.
		if errors.Is(err, ErrOverlapConflict) {
			return nil, &Rejection{Kind: DoctorAlreadyBooked}
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return appt, nil
}
