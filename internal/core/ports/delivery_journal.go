package ports

import (
	"context"

	"github.com/showads/data-connector/internal/core/domain"
)

// DeliveryJournal records the outcome of every chunk for later audit.
type DeliveryJournal interface {
	RecordOutcome(ctx context.Context, outcome domain.DeliveryOutcome) error
}
