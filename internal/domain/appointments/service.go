package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
	cfg  ScheduleConfig

	// now is swappable for tests that pin "today".
	now func() time.Time
}

func NewService(repo Repository, cfg ScheduleConfig) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Config returns the schedule rules the service was built with.
func (s *Service) Config() ScheduleConfig { return s.cfg }

// Book validates and persists a new pending appointment. The capacity check
// runs before the working-hours check. When the config is not strict, a time
// outside working hours is silently dropped: no appointment, no error.
func (s *Service) Book(ctx context.Context, date time.Time, t TimeOfDay, patientID uuid.UUID) (*Appointment, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	date = DateOnly(date)

	count, err := s.repo.CountForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if s.cfg.DailyCap > 0 && count >= s.cfg.DailyCap {
		return nil, ErrCapacityExceeded
	}

	if !s.cfg.WithinWorkingHours(t) {
		if s.cfg.Strict {
			return nil, ErrOutsideWorkingHours
		}
		return nil, nil
	}

	a := &Appointment{
		Date:      date,
		TimeOfDay: t,
		PatientID: patientID,
		Status:    StatusPending,
	}
	if err := s.repo.Create(ctx, a, s.cfg.DailyCap); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Transition overwrites the appointment status. Any member of the closed
// status set is accepted; there is no guard against e.g. finished → pending.
// An unknown status is an error in strict mode and a no-op otherwise.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		if s.cfg.Strict {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		return nil
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	a.Status = status
	return s.repo.Update(ctx, a)
}

// MarkAttentionCompleted sets the terminal attention-completed status.
func (s *Service) MarkAttentionCompleted(ctx context.Context, id uuid.UUID) error {
	return s.Transition(ctx, id, StatusAttentionCompleted)
}

// DeleteIfFinished removes the appointment only when its status is exactly
// finished. Any other status is a no-op without error.
func (s *Service) DeleteIfFinished(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != StatusFinished {
		return nil
	}
	return s.repo.Delete(ctx, id)
}

// RescheduleToTomorrowIfToday moves a same-day appointment to tomorrow and
// resets it to pending. Appointments on any other date are left untouched.
// Capacity is not re-checked on reschedule.
func (s *Service) RescheduleToTomorrowIfToday(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	today := DateOnly(s.now())
	if !a.Date.Equal(today) {
		return nil
	}
	a.Date = today.AddDate(0, 0, 1)
	a.Status = StatusPending
	return s.repo.Update(ctx, a)
}

// List resolves a relative day offset against the service clock before
// delegating, so the repository only ever filters on concrete dates.
func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if f.ExactDate == nil && f.OffsetDays != nil {
		target := DateOnly(s.now()).AddDate(0, 0, *f.OffsetDays)
		f.ExactDate = &target
		f.OffsetDays = nil
	}
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) ListForDate(ctx context.Context, date time.Time) ([]*Appointment, int, error) {
	d := DateOnly(date)
	return s.repo.List(ctx, ListFilter{ExactDate: &d}, 1000, 0)
}

// DaySchedule returns the date's appointments joined with patient details,
// ordered by time. Feeds the PDF report and the bot summary.
func (s *Service) DaySchedule(ctx context.Context, date time.Time) ([]*DayEntry, error) {
	return s.repo.DaySchedule(ctx, date)
}

// AvailableSlots returns the open grid slots for a date along with
// occupancy counts.
func (s *Service) AvailableSlots(ctx context.Context, date time.Time) (*Availability, error) {
	date = DateOnly(date)
	times, err := s.repo.OccupiedTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	occupied := make(map[TimeOfDay]bool, len(times))
	for _, t := range times {
		occupied[t] = true
	}
	slots := s.cfg.Slots(occupied)
	occ, avail, total := s.cfg.Availability(occupied)
	return &Availability{
		Date:      date,
		Slots:     slots,
		Occupied:  occ,
		Available: avail,
		Total:     total,
	}, nil
}

// AvailableDays is a placeholder: even day offsets 1..14 from today. It is
// unrelated to the real calendar rules and callers must not rely on it.
func (s *Service) AvailableDays() []time.Time {
	today := DateOnly(s.now())
	var days []time.Time
	for offset := 1; offset <= 14; offset++ {
		if offset%2 == 0 {
			days = append(days, today.AddDate(0, 0, offset))
		}
	}
	return days
}

// DailySummary formats the date's schedule as the bot notification text.
func (s *Service) DailySummary(ctx context.Context, date time.Time) (string, int, error) {
	entries, err := s.repo.DaySchedule(ctx, date)
	if err != nil {
		return "", 0, err
	}
	return FormatDailySummary(date, entries), len(entries), nil
}
