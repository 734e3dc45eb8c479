package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Appointment statuses form a closed set. Transitions overwrite the status
// unconditionally; there is no state-machine guard between members.
const (
	StatusPending            = "pending"
	StatusFinished           = "finished"
	StatusCancelled          = "cancelled"
	StatusAttentionCompleted = "attention_completed"
)

var validStatuses = map[string]bool{
	StatusPending:            true,
	StatusFinished:           true,
	StatusCancelled:          true,
	StatusAttentionCompleted: true,
}

// TimeOfDay is a clock time with minute resolution, stored as minutes since
// midnight. It marshals as "HH:MM".
type TimeOfDay int

// ParseTimeOfDay parses a "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// At returns a TimeOfDay for the given hour and minute.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	parsed, err := ParseTimeOfDay(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	TimeOfDay TimeOfDay `db:"time_of_day" json:"time_of_day"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DayEntry is an appointment joined with the owning patient, as rendered on
// the daily schedule, the PDF and the bot summary.
type DayEntry struct {
	Appointment
	PatientName      string  `db:"patient_name" json:"patient_name"`
	PatientInsurance *string `db:"patient_insurance" json:"patient_insurance,omitempty"`
}

// ListFilter narrows List results. ExactDate takes precedence over
// OffsetDays when both are set; the service resolves OffsetDays against
// its own clock, so repositories only see ExactDate.
type ListFilter struct {
	PatientID  *uuid.UUID
	ExactDate  *time.Time
	OffsetDays *int
}

// Availability summarizes slot occupancy for one date.
type Availability struct {
	Date      time.Time   `json:"date"`
	Slots     []TimeOfDay `json:"slots"`
	Occupied  int         `json:"occupied"`
	Available int         `json:"available"`
	Total     int         `json:"total"`
}

// DateOnly truncates t to midnight UTC so dates compare by calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
