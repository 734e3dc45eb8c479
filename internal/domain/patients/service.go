package patients

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new patient. The dni must not already exist in the
// directory; no record is created on conflict.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.DNI) == "" {
		return fmt.Errorf("dni is required")
	}
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("full_name is required")
	}
	if _, err := s.repo.GetByDNI(ctx, p.DNI); err == nil {
		return ErrDuplicateDNI
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Search returns up to SearchLimit patients, most recent first. An empty
// query returns the most recent patients overall; an unknown field falls
// back to name.
func (s *Service) Search(ctx context.Context, query, field string) ([]*Patient, error) {
	return s.repo.Search(ctx, query, field, SearchLimit)
}

// Update overwrites the patient's fields. Uniqueness of the dni is not
// re-validated here; the column's unique constraint is the only guard.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.Update(ctx, p)
}

// Delete removes the patient and all of its appointments.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// AttachDocument records a sanitized filename reference on the patient.
// The document bytes themselves live in the docstore.
func (s *Service) AttachDocument(ctx context.Context, id uuid.UUID, filename string) error {
	name := SanitizeFilename(filename)
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.DocumentFile = &name
	return s.repo.Update(ctx, p)
}

// SanitizeFilename strips any path components from an uploaded filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return strings.TrimSpace(name)
}
