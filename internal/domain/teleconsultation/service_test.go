package teleconsultation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	consultations map[uuid.UUID]*Teleconsultation
	getErr        error
}

func newMockRepo() *mockRepo {
	return &mockRepo{consultations: make(map[uuid.UUID]*Teleconsultation)}
}

func (m *mockRepo) Create(_ context.Context, tc *Teleconsultation) error {
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	m.consultations[tc.ID] = tc
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Teleconsultation, error) {
	tc, ok := m.consultations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return tc, nil
}

func (m *mockRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*Teleconsultation, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, tc := range m.consultations {
		if tc.AppointmentID == appointmentID {
			return tc, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, tc *Teleconsultation) error {
	m.consultations[tc.ID] = tc
	return nil
}

type mockMessageRepo struct {
	messages []*Message
}

func (m *mockMessageRepo) Create(_ context.Context, msg *Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.SentAt = time.Now().UTC()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockMessageRepo) ListByTeleconsultation(_ context.Context, tcID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var items []*Message
	for _, msg := range m.messages {
		if msg.TeleconsultationID == tcID {
			items = append(items, msg)
		}
	}
	return items, len(items), nil
}

func TestCreate_OnePerAppointment(t *testing.T) {
	svc := NewService(newMockRepo(), &mockMessageRepo{})
	apptID := uuid.New()

	if err := svc.Create(context.Background(), &Teleconsultation{AppointmentID: apptID}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := svc.Create(context.Background(), &Teleconsultation{AppointmentID: apptID}); err == nil {
		t.Fatal("expected error for duplicate appointment room")
	}
}

func TestCreate_StoreFailurePropagates(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockMessageRepo{})

	// A lookup failure must not be read as "no room for this appointment yet".
	repo.getErr = errors.New("connection refused")
	err := svc.Create(context.Background(), &Teleconsultation{AppointmentID: uuid.New()})
	if err == nil || !errors.Is(err, repo.getErr) {
		t.Fatalf("expected the store error to propagate, got %v", err)
	}
	if len(repo.consultations) != 0 {
		t.Error("nothing should persist when the uniqueness check cannot run")
	}
}

func TestStartAndEnd_Lifecycle(t *testing.T) {
	svc := NewService(newMockRepo(), &mockMessageRepo{})
	ctx := context.Background()

	tc := &Teleconsultation{AppointmentID: uuid.New()}
	svc.Create(ctx, tc)
	if tc.Status != StatusWaiting {
		t.Fatalf("expected waiting, got %s", tc.Status)
	}

	started, err := svc.Start(ctx, tc.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != StatusInProgress || started.StartedAt == nil {
		t.Errorf("start did not stamp: %+v", started)
	}

	ended, err := svc.End(ctx, tc.ID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != StatusEnded || ended.EndedAt == nil {
		t.Errorf("end did not stamp: %+v", ended)
	}

	// Restarting an ended consultation is refused.
	if _, err := svc.Start(ctx, tc.ID); err == nil {
		t.Error("expected error starting an ended consultation")
	}
}

func TestSaveMessage_RequiresRoomAndContent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockMessageRepo{})
	ctx := context.Background()

	tc := &Teleconsultation{AppointmentID: uuid.New()}
	svc.Create(ctx, tc)

	if _, err := svc.SaveMessage(ctx, tc.ID, uuid.New(), "   "); err == nil {
		t.Error("expected error for blank content")
	}
	if _, err := svc.SaveMessage(ctx, uuid.New(), uuid.New(), "hello"); err == nil {
		t.Error("expected error for unknown room")
	}
	m, err := svc.SaveMessage(ctx, tc.ID, uuid.New(), " hello ")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if m.Content != "hello" {
		t.Errorf("content not trimmed: %q", m.Content)
	}
}

func TestHandleChatMessage_PersistsAndReturnsJSON(t *testing.T) {
	repo := newMockRepo()
	msgs := &mockMessageRepo{}
	svc := NewService(repo, msgs)
	ctx := context.Background()

	tc := &Teleconsultation{AppointmentID: uuid.New()}
	svc.Create(ctx, tc)
	senderID := uuid.New()

	raw, err := svc.HandleChatMessage(ctx, tc.ID.String(), senderID.String(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("payload is not a message: %v", err)
	}
	if m.SenderID != senderID || m.Content != "hello" {
		t.Errorf("unexpected message: %+v", m)
	}
	if len(msgs.messages) != 1 {
		t.Errorf("expected 1 persisted message, got %d", len(msgs.messages))
	}
}

func TestHandleChatMessage_RejectsBadIdentifiers(t *testing.T) {
	svc := NewService(newMockRepo(), &mockMessageRepo{})

	if _, err := svc.HandleChatMessage(context.Background(), "not-a-uuid", uuid.New().String(), "hi"); err == nil {
		t.Error("expected error for invalid room")
	}
	if _, err := svc.HandleChatMessage(context.Background(), uuid.New().String(), "anonymous", "hi"); err == nil {
		t.Error("expected error for invalid sender")
	}
}
