package mailer

import (
	"fmt"
	"strings"
	"sync"
)

// Template defines a reusable email template.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateEngine manages email templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "appointment-reminder-patient",
			Name:    "Appointment Reminder (Patient)",
			Subject: "Appointment Reminder",
			Body:    "Dear {{patient_name}}, this is a reminder of your appointment with Dr. {{doctor_name}} on {{date}} at {{time}}.",
		},
		{
			ID:      "appointment-reminder-doctor",
			Name:    "Appointment Reminder (Doctor)",
			Subject: "Upcoming Appointment",
			Body:    "Dear Dr. {{doctor_name}}, you have an appointment with {{patient_name}} on {{date}} at {{time}}.",
		},
		{
			ID:      "appointment-booked",
			Name:    "Appointment Booked",
			Subject: "Appointment Confirmed",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} on {{date}} at {{time}} has been confirmed.",
		},
		{
			ID:      "appointment-cancelled",
			Name:    "Appointment Cancelled",
			Subject: "Appointment Cancelled",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} on {{date}} at {{time}} has been cancelled.",
		},
		{
			ID:      "account-activation",
			Name:    "Account Activation",
			Subject: "Activate Your Account",
			Body:    "Welcome {{name}}! Please activate your account using the following link: {{activation_link}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
