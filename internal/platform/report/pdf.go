// Package report renders the daily appointment schedule as a PDF.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Entry is one schedule line on the report.
type Entry struct {
	Time        string
	PatientName string
	Insurance   string
}

// DailySchedule renders the day's appointments on a letter page: a bold
// title with the date, then one line per appointment in time order.
func DailySchedule(date time.Time, entries []Entry) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	// Core fonts are CP1252; accented patient names need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Turnos del día %s", date.Format("02/01/2006"))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	if len(entries) == 0 {
		pdf.CellFormat(0, 8, "No hay turnos agendados.", "", 1, "L", false, 0, "")
	}
	for _, e := range entries {
		insurance := e.Insurance
		if insurance == "" {
			insurance = "-"
		}
		line := fmt.Sprintf("%s - %s (%s)", e.Time, e.PatientName, insurance)
		pdf.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render schedule pdf: %w", err)
	}
	return buf.Bytes(), nil
}
