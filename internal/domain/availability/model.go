package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Days of the week accepted for availability windows, in the doctor's weekly
// schedule. Names are stored lowercase.
var ValidDays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Window maps to the doctor_availability table. StartTime and EndTime are
// wall-clock "HH:MM" strings persisted as TIME columns.
type Window struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MinuteOfDay parses an "HH:MM" wall-clock string into minutes since midnight.
// Seconds, if present, are ignored so TIME column round-trips parse cleanly.
func MinuteOfDay(hhmm string) (int, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return h*60 + m, nil
}

// DayName returns the lowercase weekday name for a time.Weekday.
func DayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}
