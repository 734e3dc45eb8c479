package appointments

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment

	// patient details for DaySchedule joins
	names      map[uuid.UUID]string
	insurances map[uuid.UUID]*string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		appointments: make(map[uuid.UUID]*Appointment),
		names:        make(map[uuid.UUID]string),
		insurances:   make(map[uuid.UUID]*string),
	}
}

func (m *mockRepo) Create(ctx context.Context, a *Appointment, cap int) error {
	if cap > 0 {
		count, _ := m.CountForDate(ctx, a.Date)
		if count >= cap {
			return ErrCapacityExceeded
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	copy := *a
	m.appointments[a.ID] = &copy
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *a
	return &copy, nil
}

func (m *mockRepo) Update(ctx context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return ErrNotFound
	}
	copy := *a
	m.appointments[a.ID] = &copy
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *mockRepo) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.ExactDate != nil && !a.Date.Equal(DateOnly(*f.ExactDate)) {
			continue
		}
		copy := *a
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TimeOfDay < out[j].TimeOfDay
	})
	return out, len(out), nil
}

func (m *mockRepo) CountForDate(ctx context.Context, date time.Time) (int, error) {
	count := 0
	for _, a := range m.appointments {
		if a.Date.Equal(DateOnly(date)) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) OccupiedTimes(ctx context.Context, date time.Time) ([]TimeOfDay, error) {
	var times []TimeOfDay
	for _, a := range m.appointments {
		if a.Date.Equal(DateOnly(date)) {
			times = append(times, a.TimeOfDay)
		}
	}
	return times, nil
}

func (m *mockRepo) DaySchedule(ctx context.Context, date time.Time) ([]*DayEntry, error) {
	var entries []*DayEntry
	for _, a := range m.appointments {
		if !a.Date.Equal(DateOnly(date)) {
			continue
		}
		entries = append(entries, &DayEntry{
			Appointment:      *a,
			PatientName:      m.names[a.PatientID],
			PatientInsurance: m.insurances[a.PatientID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TimeOfDay < entries[j].TimeOfDay
	})
	return entries, nil
}

var testToday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestService(cfg ScheduleConfig) (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo, cfg)
	svc.now = func() time.Time { return testToday.Add(9 * time.Hour) }
	return svc, repo
}

func seedAppointments(t *testing.T, repo *mockRepo, date time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := repo.Create(context.Background(), &Appointment{
			Date:      DateOnly(date),
			TimeOfDay: At(8, 0) + TimeOfDay(i*20),
			PatientID: uuid.New(),
			Status:    StatusPending,
		}, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestBook_Success(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())

	patientID := uuid.New()
	a, err := svc.Book(context.Background(), testToday, At(9, 0), patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusPending {
		t.Errorf("expected status pending, got %s", a.Status)
	}
	if a.PatientID != patientID {
		t.Errorf("expected patient %s, got %s", patientID, a.PatientID)
	}
	if len(repo.appointments) != 1 {
		t.Errorf("expected 1 stored appointment, got %d", len(repo.appointments))
	}
}

func TestBook_RequiresPatient(t *testing.T) {
	svc, _ := newTestService(DefaultScheduleConfig())

	_, err := svc.Book(context.Background(), testToday, At(9, 0), uuid.Nil)
	if err == nil {
		t.Fatal("expected error for missing patient")
	}
}

func TestBook_TenthAcceptedEleventhRejected(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	seedAppointments(t, repo, testToday, 9)

	if _, err := svc.Book(context.Background(), testToday, At(11, 0), uuid.New()); err != nil {
		t.Fatalf("unexpected error on tenth booking: %v", err)
	}

	_, err := svc.Book(context.Background(), testToday, At(11, 20), uuid.New())
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded on eleventh booking, got %v", err)
	}
}

// A full day reports the capacity error even when the requested time would
// also fail the working-hours check.
func TestBook_CapacityCheckedBeforeWorkingHours(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	seedAppointments(t, repo, testToday, 10)

	_, err := svc.Book(context.Background(), testToday, At(3, 0), uuid.New())
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestBook_OutsideWorkingHours_Strict(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())

	_, err := svc.Book(context.Background(), testToday, At(14, 0), uuid.New())
	if !errors.Is(err, ErrOutsideWorkingHours) {
		t.Fatalf("expected ErrOutsideWorkingHours, got %v", err)
	}
	if len(repo.appointments) != 0 {
		t.Error("expected nothing to be stored")
	}
}

func TestBook_OutsideWorkingHours_Lenient(t *testing.T) {
	cfg := DefaultScheduleConfig()
	cfg.Strict = false
	svc, repo := newTestService(cfg)

	a, err := svc.Book(context.Background(), testToday, At(14, 0), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Error("expected out-of-hours booking to be dropped silently")
	}
	if len(repo.appointments) != 0 {
		t.Error("expected nothing to be stored")
	}
}

// The window closings are bookable even though the slot grid never offers
// them.
func TestBook_ClosingBoundaries(t *testing.T) {
	svc, _ := newTestService(DefaultScheduleConfig())

	for _, boundary := range []TimeOfDay{At(13, 0), At(20, 0)} {
		if _, err := svc.Book(context.Background(), testToday, boundary, uuid.New()); err != nil {
			t.Errorf("unexpected error booking %s: %v", boundary, err)
		}
	}
}

func TestTransition_UpdatesStatus(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	a, err := svc.Book(context.Background(), testToday, At(9, 0), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Transition(context.Background(), a.ID, StatusFinished); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.appointments[a.ID].Status != StatusFinished {
		t.Errorf("expected status finished, got %s", repo.appointments[a.ID].Status)
	}

	// No guard between members: finished can go back to pending.
	if err := svc.Transition(context.Background(), a.ID, StatusPending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.appointments[a.ID].Status != StatusPending {
		t.Errorf("expected status pending, got %s", repo.appointments[a.ID].Status)
	}
}

func TestTransition_InvalidStatus_Strict(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	a, _ := svc.Book(context.Background(), testToday, At(9, 0), uuid.New())

	err := svc.Transition(context.Background(), a.ID, "vaporized")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if repo.appointments[a.ID].Status != StatusPending {
		t.Error("expected status to be unchanged")
	}
}

func TestTransition_InvalidStatus_Lenient(t *testing.T) {
	cfg := DefaultScheduleConfig()
	cfg.Strict = false
	svc, repo := newTestService(cfg)
	a, _ := svc.Book(context.Background(), testToday, At(9, 0), uuid.New())

	if err := svc.Transition(context.Background(), a.ID, "vaporized"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.appointments[a.ID].Status != StatusPending {
		t.Error("expected status to be unchanged")
	}
}

func TestTransition_NotFound(t *testing.T) {
	svc, _ := newTestService(DefaultScheduleConfig())

	err := svc.Transition(context.Background(), uuid.New(), StatusFinished)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkAttentionCompleted(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	a, _ := svc.Book(context.Background(), testToday, At(9, 0), uuid.New())

	if err := svc.MarkAttentionCompleted(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.appointments[a.ID].Status != StatusAttentionCompleted {
		t.Errorf("expected attention_completed, got %s", repo.appointments[a.ID].Status)
	}
}

func TestDeleteIfFinished_RemovesFinished(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	a, _ := svc.Book(context.Background(), testToday, At(9, 0), uuid.New())
	if err := svc.Transition(context.Background(), a.ID, StatusFinished); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteIfFinished(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.appointments[a.ID]; ok {
		t.Error("expected appointment to be deleted")
	}
}

func TestDeleteIfFinished_IgnoresOtherStatuses(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	a, _ := svc.Book(context.Background(), testToday, At(9, 0), uuid.New())

	if err := svc.DeleteIfFinished(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.appointments[a.ID]; !ok {
		t.Error("expected pending appointment to survive")
	}
}

func TestRescheduleToTomorrowIfToday_MovesAndResets(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	a, _ := svc.Book(context.Background(), testToday, At(9, 0), uuid.New())
	if err := svc.Transition(context.Background(), a.ID, StatusFinished); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.RescheduleToTomorrowIfToday(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := repo.appointments[a.ID]
	tomorrow := testToday.AddDate(0, 0, 1)
	if !got.Date.Equal(tomorrow) {
		t.Errorf("expected date %s, got %s", tomorrow, got.Date)
	}
	if got.Status != StatusPending {
		t.Errorf("expected status reset to pending, got %s", got.Status)
	}
}

func TestRescheduleToTomorrowIfToday_IgnoresOtherDates(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())
	yesterday := testToday.AddDate(0, 0, -1)
	a, _ := svc.Book(context.Background(), yesterday, At(9, 0), uuid.New())

	if err := svc.RescheduleToTomorrowIfToday(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.appointments[a.ID].Date.Equal(yesterday) {
		t.Error("expected date to be unchanged")
	}
}

func TestList_ExactDateOverridesOffset(t *testing.T) {
	svc, _ := newTestService(DefaultScheduleConfig())
	tomorrow := testToday.AddDate(0, 0, 1)
	if _, err := svc.Book(context.Background(), testToday, At(9, 0), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Book(context.Background(), tomorrow, At(9, 0), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	offset := 1
	got, total, err := svc.List(context.Background(), ListFilter{ExactDate: &testToday, OffsetDays: &offset}, 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 result, got %d", total)
	}
	if !got[0].Date.Equal(testToday) {
		t.Errorf("expected the exact date to win, got %s", got[0].Date)
	}
}

func TestList_ResolvesOffsetAgainstServiceClock(t *testing.T) {
	svc, _ := newTestService(DefaultScheduleConfig())
	tomorrow := testToday.AddDate(0, 0, 1)
	if _, err := svc.Book(context.Background(), testToday, At(9, 0), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Book(context.Background(), tomorrow, At(9, 0), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The mock repository only filters on ExactDate, so the result proves
	// the service turned the offset into a concrete date before delegating.
	offset := 1
	got, total, err := svc.List(context.Background(), ListFilter{OffsetDays: &offset}, 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 result, got %d", total)
	}
	if !got[0].Date.Equal(tomorrow) {
		t.Errorf("expected tomorrow's appointment, got %s", got[0].Date)
	}
}

func TestAvailableSlots(t *testing.T) {
	svc, _ := newTestService(DefaultScheduleConfig())
	if _, err := svc.Book(context.Background(), testToday, At(8, 0), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Book(context.Background(), testToday, At(13, 0), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	av, err := svc.AvailableSlots(context.Background(), testToday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if av.Occupied != 2 {
		t.Errorf("expected 2 occupied, got %d", av.Occupied)
	}
	if av.Available != 26 {
		t.Errorf("expected 26 available, got %d", av.Available)
	}
	if av.Total != 28 {
		t.Errorf("expected total 28, got %d", av.Total)
	}
	for _, s := range av.Slots {
		if s == At(8, 0) {
			t.Error("expected 08:00 to be excluded")
		}
	}
}

func TestAvailableDays_EvenOffsets(t *testing.T) {
	svc, _ := newTestService(DefaultScheduleConfig())

	days := svc.AvailableDays()
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	for i, d := range days {
		want := testToday.AddDate(0, 0, (i+1)*2)
		if !d.Equal(want) {
			t.Errorf("day %d: expected %s, got %s", i, want, d)
		}
	}
}

func TestDailySummary(t *testing.T) {
	svc, repo := newTestService(DefaultScheduleConfig())

	p1, p2 := uuid.New(), uuid.New()
	osde := "OSDE"
	repo.names[p1] = "Ana García"
	repo.names[p2] = "Luis Pérez"
	repo.insurances[p1] = &osde

	if _, err := svc.Book(context.Background(), testToday, At(9, 0), p1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Book(context.Background(), testToday, At(8, 20), p2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, count, err := svc.DailySummary(context.Background(), testToday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	want := "Turnos del día 10/03/2025\nTotal: 2\n\n08:20 - Luis Pérez (-)\n09:00 - Ana García (OSDE)"
	if text != want {
		t.Errorf("expected summary %q, got %q", want, text)
	}
}

func TestDailySummary_EmptyDay(t *testing.T) {
	svc, _ := newTestService(DefaultScheduleConfig())

	text, count, err := svc.DailySummary(context.Background(), testToday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	want := "Turnos del día 10/03/2025\nNo hay turnos agendados."
	if text != want {
		t.Errorf("expected summary %q, got %q", want, text)
	}
}
