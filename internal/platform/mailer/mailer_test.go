package mailer

import (
	"context"
	"strings"
	"testing"
)

func TestTemplateEngine_RenderReminder(t *testing.T) {
	e := NewTemplateEngine()
	subject, body, err := e.Render("appointment-reminder-patient", map[string]string{
		"patient_name": "Jane Doe",
		"doctor_name":  "Smith",
		"date":         "2025-10-06",
		"time":         "10:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Appointment Reminder" {
		t.Errorf("unexpected subject: %s", subject)
	}
	if !strings.Contains(body, "Jane Doe") || !strings.Contains(body, "Dr. Smith") {
		t.Errorf("body missing rendered data: %s", body)
	}
	if strings.Contains(body, "{{") {
		t.Errorf("body still contains placeholders: %s", body)
	}
}

func TestTemplateEngine_MissingDataLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render("appointment-booked", map[string]string{"patient_name": "Jane"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "{{doctor_name}}") {
		t.Errorf("expected unreplaced placeholder to remain, got %s", body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestTemplateEngine_RegisterOverride(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{ID: "appointment-booked", Subject: "Custom", Body: "Hello {{name}}"})
	subject, body, err := e.Render("appointment-booked", map[string]string{"name": "Sam"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Custom" || body != "Hello Sam" {
		t.Errorf("override not applied: %s / %s", subject, body)
	}
}

func TestMockEmailSender_RecordsCalls(t *testing.T) {
	m := &MockEmailSender{}
	if err := m.SendEmail(context.Background(), "a@example.com", "Hi", "Body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := m.Calls()
	if len(calls) != 1 || calls[0].To != "a@example.com" {
		t.Errorf("unexpected calls: %+v", calls)
	}
}

func TestMockEmailSender_Failure(t *testing.T) {
	m := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	err := m.SendEmail(context.Background(), "a@example.com", "Hi", "Body")
	if err == nil || err.Error() != "smtp down" {
		t.Errorf("expected smtp down error, got %v", err)
	}
	if len(m.Calls()) != 1 {
		t.Error("failed sends should still be recorded")
	}
}

func TestSMTPSender_RejectsEmptyRecipient(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@medibook.local"})
	if err := s.SendEmail(context.Background(), "", "Hi", "Body"); err == nil {
		t.Fatal("expected error for empty recipient")
	}
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@medibook.local"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendEmail(ctx, "a@example.com", "Hi", "Body"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
