package hostRepo

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

// MongoHostRepo implements Repository using MongoDB.
type MongoHostRepo struct {
	coll *mongo.Collection
}

// NewMongoHostRepo constructs a host repository.
func NewMongoHostRepo() *MongoHostRepo {
	return &MongoHostRepo{coll: database.DB().Collection("hosts")}
}

// EnsureIndexes creates unique id and email indexes.
func (r *MongoHostRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_id"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create host indexes: %w", err)
	}
	return nil
}

func (r *MongoHostRepo) Create(ctx context.Context, h *models.Host) error {
	if _, err := r.coll.InsertOne(ctx, h); err != nil {
		return fmt.Errorf("error creating host: %w", err)
	}
	return nil
}

func (r *MongoHostRepo) findOne(ctx context.Context, filter bson.M) (*models.Host, error) {
	var h models.Host
	if err := r.coll.FindOne(ctx, filter).Decode(&h); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching host: %w", err)
	}
	return &h, nil
}

func (r *MongoHostRepo) GetHostByID(ctx context.Context, id string) (*models.Host, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoHostRepo) GetHostByEmail(ctx context.Context, email string) (*models.Host, error) {
	return r.findOne(ctx, bson.M{"email": email})
}
