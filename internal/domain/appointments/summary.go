package appointments

import (
	"fmt"
	"strings"
	"time"
)

// FormatDailySummary renders the bot notification text for a day's
// schedule: a dated header with the total, then one line per appointment
// in time order.
func FormatDailySummary(date time.Time, entries []*DayEntry) string {
	day := date.Format("02/01/2006")
	if len(entries) == 0 {
		return fmt.Sprintf("Turnos del día %s\nNo hay turnos agendados.", day)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turnos del día %s\nTotal: %d\n", day, len(entries))
	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(FormatEntryLine(e))
	}
	return b.String()
}

// FormatEntryLine renders a single schedule line: "HH:MM - name (insurance)".
func FormatEntryLine(e *DayEntry) string {
	insurance := "-"
	if e.PatientInsurance != nil && *e.PatientInsurance != "" {
		insurance = *e.PatientInsurance
	}
	return fmt.Sprintf("%s - %s (%s)", e.TimeOfDay, e.PatientName, insurance)
}
