package patients

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. DNI is the national identifier and is
// unique across the directory.
type Patient struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DNI          string    `db:"dni" json:"dni"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Address      *string   `db:"address" json:"address,omitempty"`
	Insurance    *string   `db:"insurance" json:"insurance,omitempty"`
	Note         *string   `db:"note" json:"note,omitempty"`
	DocumentFile *string   `db:"document_file" json:"document_file,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Search fields accepted by the directory.
const (
	SearchByName  = "name"
	SearchByDNI   = "dni"
	SearchByPhone = "phone"
)

// SearchLimit caps directory search results to the most recent matches.
const SearchLimit = 15
