package appointment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/mailer"
)

// Sweeper periodically emails reminders for scheduled appointments starting
// within the lookahead window. One failing appointment never aborts a sweep.
type Sweeper struct {
	appointments Repository
	mail         mailer.EmailSender
	tmpl         *mailer.TemplateEngine
	logger       zerolog.Logger
	interval     time.Duration
	lookahead    time.Duration
	loc          *time.Location
}

func NewSweeper(appointments Repository, mail mailer.EmailSender, tmpl *mailer.TemplateEngine,
	logger zerolog.Logger, interval, lookahead time.Duration, loc *time.Location) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{
		appointments: appointments,
		mail:         mail,
		tmpl:         tmpl,
		logger:       logger,
		interval:     interval,
		lookahead:    lookahead,
		loc:          loc,
	}
}

// Run sweeps on a ticker until the context is cancelled. An immediate sweep
// runs before the first tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep sends reminder emails for appointments starting within the lookahead
// window and returns how many sends succeeded and failed.
func (s *Sweeper) Sweep(ctx context.Context) (sent, failed int) {
	now := time.Now().UTC()
	items, err := s.appointments.FindUpcoming(ctx, now, now.Add(s.lookahead))
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep: load upcoming appointments")
		return 0, 0
	}

	for _, item := range items {
		if err := s.remind(ctx, item); err != nil {
			failed++
			s.logger.Error().Err(err).
				Str("appointment_id", item.Appointment.ID.String()).
				Msg("reminder sweep: send failed")
			continue
		}
		sent++
	}

	s.logger.Info().
		Int("appointments", len(items)).
		Int("sent", sent).
		Int("failed", failed).
		Msg("reminder sweep complete")
	return sent, failed
}

// remind emails both participants of one appointment. Either send failing
// fails the appointment.
func (s *Sweeper) remind(ctx context.Context, item *ReminderItem) error {
	start := item.Appointment.StartTime.In(s.loc)
	data := map[string]string{
		"patient_name": item.PatientName,
		"doctor_name":  item.DoctorName,
		"date":         start.Format("2006-01-02"),
		"time":         start.Format("15:04"),
	}

	subject, body, err := s.tmpl.Render("appointment-reminder-patient", data)
	if err != nil {
		return err
	}
	if err := s.mail.SendEmail(ctx, item.PatientEmail, subject, body); err != nil {
		return err
	}

	subject, body, err = s.tmpl.Render("appointment-reminder-doctor", data)
	if err != nil {
		return err
	}
	return s.mail.SendEmail(ctx, item.DoctorEmail, subject, body)
}
