package teleconsultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	consultations Repository
	messages      MessageRepository
}

func NewService(consultations Repository, messages MessageRepository) *Service {
	return &Service{consultations: consultations, messages: messages}
}

// Create opens a teleconsultation room for a virtual appointment.
func (s *Service) Create(ctx context.Context, tc *Teleconsultation) error {
	if tc.AppointmentID == uuid.Nil {
		return fmt.Errorf("appointment_id is required")
	}
	if tc.Status == "" {
		tc.Status = StatusWaiting
	}
	if !validStatuses[tc.Status] {
		return fmt.Errorf("invalid teleconsultation status: %s", tc.Status)
	}
	existing, err := s.consultations.GetByAppointment(ctx, tc.AppointmentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check existing teleconsultation: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("teleconsultation already exists for this appointment")
	}
	return s.consultations.Create(ctx, tc)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Teleconsultation, error) {
	return s.consultations.GetByID(ctx, id)
}

func (s *Service) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Teleconsultation, error) {
	return s.consultations.GetByAppointment(ctx, appointmentID)
}

// Start moves a waiting consultation to in_progress and stamps the start.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Teleconsultation, error) {
	tc, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("teleconsultation not found")
	}
	if tc.Status == StatusEnded {
		return nil, fmt.Errorf("teleconsultation has already ended")
	}
	if tc.Status == StatusInProgress {
		return tc, nil
	}
	now := time.Now().UTC()
	tc.Status = StatusInProgress
	tc.StartedAt = &now
	return tc, s.consultations.Update(ctx, tc)
}

// End closes the consultation.
func (s *Service) End(ctx context.Context, id uuid.UUID) (*Teleconsultation, error) {
	tc, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("teleconsultation not found")
	}
	if tc.Status == StatusEnded {
		return tc, nil
	}
	now := time.Now().UTC()
	tc.Status = StatusEnded
	tc.EndedAt = &now
	return tc, s.consultations.Update(ctx, tc)
}

// SaveMessage persists one chat message for a consultation.
func (s *Service) SaveMessage(ctx context.Context, tcID, senderID uuid.UUID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}
	if _, err := s.consultations.GetByID(ctx, tcID); err != nil {
		return nil, fmt.Errorf("teleconsultation not found")
	}
	m := &Message{
		TeleconsultationID: tcID,
		SenderID:           senderID,
		Content:            content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, tcID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	return s.messages.ListByTeleconsultation(ctx, tcID, limit, offset)
}

// HandleChatMessage implements the WebSocket hub's MessageSink: the room name
// is the teleconsultation id, and the persisted message is what gets
// broadcast back to the room.
func (s *Service) HandleChatMessage(ctx context.Context, room, senderID, content string) (json.RawMessage, error) {
	tcID, err := uuid.Parse(room)
	if err != nil {
		return nil, fmt.Errorf("invalid room %q", room)
	}
	sender, err := uuid.Parse(senderID)
	if err != nil {
		return nil, fmt.Errorf("invalid sender id %q", senderID)
	}
	m, err := s.SaveMessage(ctx, tcID, sender, content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
