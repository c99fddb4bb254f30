package ports

import (
	"context"

	"github.com/showads/data-connector/internal/core/domain"
)

// DeliveryService forwards admitted records to ShowAds. Both methods return the
// number of records delivered; the error is non-nil only when undelivered
// records could not be written to the fallback store.
type DeliveryService interface {
	SendRecord(ctx context.Context, rec domain.Record) (int, error)
	SendAll(ctx context.Context, records []domain.Record) (int, error)
}
