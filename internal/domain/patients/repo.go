package patients

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("patient not found")
	ErrDuplicateDNI = errors.New("a patient with this dni already exists")
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByDNI(ctx context.Context, dni string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Delete removes the patient and, in the same transaction, every
	// appointment referencing it. The cascade is explicit, not a database
	// constraint.
	Delete(ctx context.Context, id uuid.UUID) error
	// Search matches query as a case-insensitive substring of the given
	// field and returns up to limit patients, most recently created first.
	// An empty query returns the most recent patients overall.
	Search(ctx context.Context, query, field string, limit int) ([]*Patient, error)
}
