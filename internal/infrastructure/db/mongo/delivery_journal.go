package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/showads/data-connector/internal/core/domain"
	"github.com/showads/data-connector/internal/core/ports"
)

const outcomesCollection = "delivery_outcomes"

// DeliveryJournal implements ports.DeliveryJournal using MongoDB.
type DeliveryJournal struct {
	db *mongo.Database
}

// NewDeliveryJournal creates a new DeliveryJournal.
func NewDeliveryJournal(db *mongo.Database) ports.DeliveryJournal {
	return &DeliveryJournal{db: db}
}

// RecordOutcome inserts one document per delivered or stored chunk.
func (j *DeliveryJournal) RecordOutcome(ctx context.Context, outcome domain.DeliveryOutcome) error {
	if _, err := j.db.Collection(outcomesCollection).InsertOne(ctx, outcome); err != nil {
		return fmt.Errorf("journal outcome %s/%d: %w", outcome.BatchID, outcome.ChunkIndex, err)
	}
	return nil
}
