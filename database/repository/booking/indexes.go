package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"schedly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Index names are matched against duplicate-key errors to classify them.
const (
	idxHostSlot       = "uniq_host_slot"
	idxIdempotencyKey = "uniq_idempotency_key"
)

// EnsureIndexes creates the indexes the commit path's correctness rests on:
// the partial unique slot gate, the sparse unique idempotency key and the
// unique public uid.
func (r *MongoBookingRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_uid"),
		},
		// At most one non-cancelled booking per (host, start, end).
		{
			Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "start", Value: 1}, {Key: "end", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(idxHostSlot).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": models.ActiveBookingStatuses},
				}),
		},
		// Idempotency keys are globally unique when present.
		{
			Keys: bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(idxIdempotencyKey).
				SetPartialFilterExpression(bson.M{
					"idempotency_key": bson.M{"$exists": true},
				}),
		},
		// Overlap queries scan by host and start.
		{
			Keys:    bson.D{{Key: "host_id", Value: 1}, {Key: "start", Value: 1}},
			Options: options.Index().SetName("host_start_idx"),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
