package ports

import (
	"io"

	"github.com/showads/data-connector/internal/core/domain"
)

// IngestService turns raw input into admitted records.
type IngestService interface {
	// Admit reports whether rec passes validation under filter, logging the
	// reason when it does not.
	Admit(rec domain.Record, filter domain.AgeFilter) bool

	// ParseCSV reads name,age,cookie,banner_id lines and returns the admitted
	// records. Malformed lines are logged and skipped.
	ParseCSV(r io.Reader, filter domain.AgeFilter, source string) []domain.Record
}
