package ports

import "github.com/showads/data-connector/internal/core/domain"

// FallbackStore keeps records that could not be delivered.
type FallbackStore interface {
	// Persist appends records to the current day's file and returns its path.
	Persist(records []domain.Record) (string, error)
}
