package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/domain/appointment"
)

// UserResolver maps appointment participants to the user accounts that
// should receive in-app notifications. A nil uuid means the participant
// has no linked account and is skipped.
type UserResolver interface {
	UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
	UserIDForDoctor(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error)
}

// AppointmentNotifier creates in-app notifications for booking lifecycle
// events. Failures are logged and swallowed so they never affect the booking.
type AppointmentNotifier struct {
	svc      *Service
	resolver UserResolver
	logger   zerolog.Logger
}

func NewAppointmentNotifier(svc *Service, resolver UserResolver, logger zerolog.Logger) *AppointmentNotifier {
	return &AppointmentNotifier{svc: svc, resolver: resolver, logger: logger}
}

func (n *AppointmentNotifier) AppointmentBooked(ctx context.Context, a *appointment.Appointment) {
	when := a.StartTime.Format("2006-01-02 15:04")
	n.notifyParticipants(ctx, a,
		"Appointment booked",
		"Your appointment on "+when+" has been booked.")
}

func (n *AppointmentNotifier) AppointmentCancelled(ctx context.Context, a *appointment.Appointment) {
	when := a.StartTime.Format("2006-01-02 15:04")
	n.notifyParticipants(ctx, a,
		"Appointment cancelled",
		"Your appointment on "+when+" has been cancelled.")
}

func (n *AppointmentNotifier) notifyParticipants(ctx context.Context, a *appointment.Appointment, title, body string) {
	n.notifyOne(ctx, a.ID, "patient", func() (uuid.UUID, error) {
		return n.resolver.UserIDForPatient(ctx, a.PatientID)
	}, title, body)
	n.notifyOne(ctx, a.ID, "doctor", func() (uuid.UUID, error) {
		return n.resolver.UserIDForDoctor(ctx, a.DoctorID)
	}, title, body)
}

func (n *AppointmentNotifier) notifyOne(ctx context.Context, apptID uuid.UUID, role string, resolve func() (uuid.UUID, error), title, body string) {
	userID, err := resolve()
	if err != nil {
		n.logger.Warn().Err(err).Str("appointment_id", apptID.String()).Str("role", role).
			Msg("could not resolve notification recipient")
		return
	}
	if userID == uuid.Nil {
		return
	}
	if _, err := n.svc.CreateForUser(ctx, userID, title, body); err != nil {
		n.logger.Warn().Err(err).Str("appointment_id", apptID.String()).Str("role", role).
			Msg("could not create notification")
	}
}
