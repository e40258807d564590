package appointment

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/mailer"
)

func reminderItem(t *testing.T, start string) *ReminderItem {
	t.Helper()
	s := mustTime(t, start)
	return &ReminderItem{
		Appointment: &Appointment{
			ID:        uuid.New(),
			DoctorID:  uuid.New(),
			PatientID: uuid.New(),
			StartTime: s,
			EndTime:   s.Add(30 * time.Minute),
			Status:    StatusScheduled,
		},
		PatientName:  "Jane Doe",
		PatientEmail: "jane@example.com",
		DoctorName:   "Gregory House",
		DoctorEmail:  "house@example.com",
	}
}

func TestSweep_EmailsBothParticipants(t *testing.T) {
	repo := &mockRepo{upcoming: []*ReminderItem{reminderItem(t, "2025-10-06T10:00:00Z")}}
	mail := &mailer.MockEmailSender{}
	sweeper := NewSweeper(repo, mail, mailer.NewTemplateEngine(), zerolog.New(os.Stderr),
		time.Hour, 24*time.Hour, time.UTC)

	sent, failed := sweeper.Sweep(context.Background())
	if sent != 1 || failed != 0 {
		t.Fatalf("expected 1 sent 0 failed, got %d/%d", sent, failed)
	}

	calls := mail.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 emails (patient + doctor), got %d", len(calls))
	}
	if calls[0].To != "jane@example.com" || calls[1].To != "house@example.com" {
		t.Errorf("unexpected recipients: %s, %s", calls[0].To, calls[1].To)
	}
	if !strings.Contains(calls[0].Body, "Jane Doe") || !strings.Contains(calls[0].Body, "2025-10-06") {
		t.Errorf("patient body missing details: %s", calls[0].Body)
	}
	if !strings.Contains(calls[1].Body, "Dr. Gregory House") {
		t.Errorf("doctor body missing details: %s", calls[1].Body)
	}
}

func TestSweep_FailureIsolation(t *testing.T) {
	repo := &mockRepo{upcoming: []*ReminderItem{
		reminderItem(t, "2025-10-06T10:00:00Z"),
		reminderItem(t, "2025-10-06T11:00:00Z"),
	}}
	mail := &mailer.MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	sweeper := NewSweeper(repo, mail, mailer.NewTemplateEngine(), zerolog.New(os.Stderr),
		time.Hour, 24*time.Hour, time.UTC)

	sent, failed := sweeper.Sweep(context.Background())
	if sent != 0 || failed != 2 {
		t.Fatalf("expected 0 sent 2 failed, got %d/%d", sent, failed)
	}
	// Both appointments were attempted despite the first failing.
	if len(mail.Calls()) != 2 {
		t.Errorf("one failure must not abort the sweep, got %d attempts", len(mail.Calls()))
	}
}

func TestSweep_EmptyWindow(t *testing.T) {
	repo := &mockRepo{}
	mail := &mailer.MockEmailSender{}
	sweeper := NewSweeper(repo, mail, mailer.NewTemplateEngine(), zerolog.New(os.Stderr),
		time.Hour, 24*time.Hour, time.UTC)

	sent, failed := sweeper.Sweep(context.Background())
	if sent != 0 || failed != 0 {
		t.Errorf("expected nothing sent, got %d/%d", sent, failed)
	}
	if len(mail.Calls()) != 0 {
		t.Error("no emails expected for empty window")
	}
}
