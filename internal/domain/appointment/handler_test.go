package appointment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func handlerSetup(t *testing.T) (*Handler, uuid.UUID) {
	t.Helper()
	doctorID := uuid.New()
	avail := newMockAvailabilityStore()
	avail.add(doctorID, "monday", "09:00", "17:00", 9*60, 17*60)
	repo := &mockRepo{}
	sched := NewScheduler(avail, repo, time.UTC)
	svc := NewService(sched, repo, nil, zerolog.New(os.Stderr))
	return NewHandler(svc, nil), doctorID
}

func bookJSON(doctorID uuid.UUID, start, end string) string {
	return fmt.Sprintf(`{"doctor_id":%q,"patient_id":%q,"start_time":%q,"end_time":%q}`,
		doctorID, uuid.New(), start, end)
}

func postBooking(h *Handler, body string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, h.Book(c)
}

func TestHandlerBook_Created(t *testing.T) {
	h, doctorID := handlerSetup(t)

	rec, err := postBooking(h, bookJSON(doctorID, "2025-10-06T10:00:00Z", "2025-10-06T10:30:00Z"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var appt Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", appt.Status)
	}
}

func TestHandlerBook_ConflictMapsTo409(t *testing.T) {
	h, doctorID := handlerSetup(t)

	if _, err := postBooking(h, bookJSON(doctorID, "2025-10-06T10:00:00Z", "2025-10-06T10:30:00Z")); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	rec, err := postBooking(h, bookJSON(doctorID, "2025-10-06T10:15:00Z", "2025-10-06T10:45:00Z"))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already booked") {
		t.Errorf("body should carry the rejection message: %s", rec.Body.String())
	}
}

func TestHandlerUpdate_ConflictMapsTo409(t *testing.T) {
	doctorID := uuid.New()
	avail := newMockAvailabilityStore()
	avail.add(doctorID, "monday", "09:00", "17:00", 9*60, 17*60)
	repo := &mockRepo{}
	sched := NewScheduler(avail, repo, time.UTC)
	svc := NewService(sched, repo, nil, zerolog.New(os.Stderr))
	h := NewHandler(svc, nil)

	rec, err := postBooking(h, bookJSON(doctorID, "2025-10-06T10:00:00Z", "2025-10-06T10:30:00Z"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	var appt Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode booking: %v", err)
	}

	repo.updateErr = ErrOverlapConflict
	e := echo.New()
	body := `{"start_time":"2025-10-06T11:00:00Z","end_time":"2025-10-06T11:30:00Z"}`
	req := httptest.NewRequest(http.MethodPut, "/appointments/"+appt.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(appt.ID.String())
	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "already booked") {
		t.Errorf("body should carry the rejection message: %s", rec.Body.String())
	}
}

func TestHandlerBook_WindowRejectionMapsTo400(t *testing.T) {
	h, doctorID := handlerSetup(t)

	rec, err := postBooking(h, bookJSON(doctorID, "2025-10-06T08:00:00Z", "2025-10-06T08:30:00Z"))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "only available from 09:00 to 17:00") {
		t.Errorf("body should name the window: %s", rec.Body.String())
	}
}
