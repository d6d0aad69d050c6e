package eventtypeRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schedly/database"
	"schedly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEventTypeRepo implements Repository using MongoDB.
type MongoEventTypeRepo struct {
	coll *mongo.Collection
}

// NewMongoEventTypeRepo constructs an event-type repository.
func NewMongoEventTypeRepo() *MongoEventTypeRepo {
	return &MongoEventTypeRepo{coll: database.DB().Collection("event_types")}
}

// EnsureIndexes creates the unique (host, slug) and id indexes.
func (r *MongoEventTypeRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_id"),
		},
		{
			Keys:    bson.D{{Key: "host_id", Value: 1}, {Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_host_slug"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create event type indexes: %w", err)
	}
	return nil
}

func (r *MongoEventTypeRepo) Create(ctx context.Context, et *models.EventType) error {
	if _, err := r.coll.InsertOne(ctx, et); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("error creating event type: %w", err)
	}
	return nil
}

func (r *MongoEventTypeRepo) findOne(ctx context.Context, filter bson.M) (*models.EventType, error) {
	var et models.EventType
	if err := r.coll.FindOne(ctx, filter).Decode(&et); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching event type: %w", err)
	}
	return &et, nil
}

func (r *MongoEventTypeRepo) GetByID(ctx context.Context, id string) (*models.EventType, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoEventTypeRepo) GetBySlug(ctx context.Context, hostID, slug string) (*models.EventType, error) {
	return r.findOne(ctx, bson.M{"host_id": hostID, "slug": slug})
}

func (r *MongoEventTypeRepo) ListByHost(ctx context.Context, hostID string) ([]models.EventType, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"host_id": hostID})
	if err != nil {
		return nil, fmt.Errorf("error listing event types: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.EventType
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding event types: %w", err)
	}
	return out, nil
}

func (r *MongoEventTypeRepo) Update(ctx context.Context, et *models.EventType) error {
	et.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": et.ID}, et)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("error updating event type %s: %w", et.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoEventTypeRepo) Deactivate(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("error deactivating event type %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
