package appointments

// Window is a continuous inclusive time range during which bookings are
// permitted. The enumeration grid below is a separate concern: it steps
// from Start while strictly before End, so the closing boundary itself is
// never offered as a slot even though it passes validation.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t TimeOfDay) bool {
	return t >= w.Start && t <= w.End
}

// ScheduleConfig holds the clinic's booking rules. It is injected into the
// service rather than hardcoded so alternate hours can be tested.
type ScheduleConfig struct {
	Windows  []Window
	SlotStep int // minutes between consecutive slots
	DailyCap int // max appointments per calendar date
	Strict   bool
}

// DefaultScheduleConfig returns the clinic's standard hours: morning
// 08:00-13:00, afternoon 16:00-20:00, 20-minute slots, 10 per day.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Windows: []Window{
			{Start: At(8, 0), End: At(13, 0)},
			{Start: At(16, 0), End: At(20, 0)},
		},
		SlotStep: 20,
		DailyCap: 10,
		Strict:   true,
	}
}

// WithinWorkingHours reports whether t falls inside any working window.
// Used only to gate booking; it is independent of the slot grid.
func (c ScheduleConfig) WithinWorkingHours(t TimeOfDay) bool {
	for _, w := range c.Windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// Slots enumerates the bookable grid in order, skipping occupied times.
// Pure function of its inputs.
func (c ScheduleConfig) Slots(occupied map[TimeOfDay]bool) []TimeOfDay {
	var slots []TimeOfDay
	for _, w := range c.Windows {
		for t := w.Start; t < w.End; t += TimeOfDay(c.SlotStep) {
			if occupied[t] {
				continue
			}
			slots = append(slots, t)
		}
	}
	return slots
}

// Availability counts occupied and open slots. Total is their sum, not the
// size of the full grid: an occupied time off the grid still counts.
func (c ScheduleConfig) Availability(occupied map[TimeOfDay]bool) (occupiedCount, available, total int) {
	occupiedCount = len(occupied)
	available = len(c.Slots(occupied))
	return occupiedCount, available, occupiedCount + available
}
