package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("appointment not found")
	ErrCapacityExceeded    = errors.New("daily appointment capacity reached")
	ErrOutsideWorkingHours = errors.New("time is outside working hours")
	ErrInvalidStatus       = errors.New("invalid appointment status")
)

type Repository interface {
	// Create persists a new appointment. cap bounds the number of
	// appointments allowed on the same date; implementations must enforce
	// it atomically and return ErrCapacityExceeded when the date is full.
	Create(ctx context.Context, a *Appointment, cap int) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)
	CountForDate(ctx context.Context, date time.Time) (int, error)
	OccupiedTimes(ctx context.Context, date time.Time) ([]TimeOfDay, error)
	DaySchedule(ctx context.Context, date time.Time) ([]*DayEntry, error)
}
