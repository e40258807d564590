package appointment

import (
	"errors"
	"fmt"
)

// RejectionKind classifies why a booking request was refused.
type RejectionKind string

const (
	NoAvailabilityForDay      RejectionKind = "no_availability_for_day"
	OutsideAvailabilityWindow RejectionKind = "outside_availability_window"
	DoctorAlreadyBooked       RejectionKind = "doctor_already_booked"
)

// Rejection is a caller-correctable booking refusal, distinct from a system
// failure. It carries enough context for the caller to adjust the request.
type Rejection struct {
	Kind        RejectionKind `json:"kind"`
	Day         string        `json:"day,omitempty"`
	WindowStart string        `json:"window_start,omitempty"`
	WindowEnd   string        `json:"window_end,omitempty"`
	Conflict    *Appointment  `json:"conflict,omitempty"`
}

func (r *Rejection) Error() string {
	switch r.Kind {
	case NoAvailabilityForDay:
		return fmt.Sprintf("Doctor is not available on %s", r.Day)
	case OutsideAvailabilityWindow:
		return fmt.Sprintf("Doctor is only available from %s to %s on %s",
			r.WindowStart, r.WindowEnd, r.Day)
	case DoctorAlreadyBooked:
		return "Doctor is already booked for that time"
	default:
		return string(r.Kind)
	}
}

// AsRejection returns the *Rejection wrapped in err, or nil.
func AsRejection(err error) *Rejection {
	var r *Rejection
	if errors.As(err, &r) {
		return r
	}
	return nil
}
