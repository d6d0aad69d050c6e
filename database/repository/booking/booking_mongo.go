package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schedly/database"
	"schedly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements Repository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a booking repository over the bookings
// collection.
func NewMongoBookingRepo() *MongoBookingRepo {
	return &MongoBookingRepo{coll: database.DB().Collection("bookings")}
}

// classifyDuplicate maps a Mongo duplicate-key error to the matching
// sentinel by inspecting which index rejected the write.
func classifyDuplicate(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, idxIdempotencyKey) {
		return ErrDuplicateIdempotencyKey
	}
	if strings.Contains(msg, idxHostSlot) {
		return ErrDuplicateSlot
	}
	return ErrDuplicateSlot
}

func (r *MongoBookingRepo) Insert(ctx context.Context, b *models.Booking) error {
	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		if dup := classifyDuplicate(err); errors.Is(dup, ErrDuplicateSlot) || errors.Is(dup, ErrDuplicateIdempotencyKey) {
			return dup
		}
		return fmt.Errorf("error inserting booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	var b models.Booking
	if err := r.coll.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking: %w", err)
	}
	return &b, nil
}

func (r *MongoBookingRepo) FindByUID(ctx context.Context, uid string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"uid": uid})
}

func (r *MongoBookingRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"idempotency_key": key})
}

func (r *MongoBookingRepo) FindOverlapping(ctx context.Context, hostID string, start, end time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"host_id": hostID,
		"status":  bson.M{"$in": models.ActiveBookingStatuses},
		"start":   bson.M{"$lt": end},
		"end":     bson.M{"$gt": start},
	}
	return r.findMany(ctx, filter)
}

func (r *MongoBookingRepo) ListByHost(ctx context.Context, hostID string, from, to time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"host_id": hostID,
		"start":   bson.M{"$gte": from, "$lt": to},
	}
	return r.findMany(ctx, filter)
}

func (r *MongoBookingRepo) findMany(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

func (r *MongoBookingRepo) Cancel(ctx context.Context, uid, reason string, at time.Time) (*models.Booking, error) {
	filter := bson.M{
		"uid":    uid,
		"status": bson.M{"$ne": models.BookingStatusCancelled},
	}
	update := bson.M{"$set": bson.M{
		"status":        models.BookingStatusCancelled,
		"cancel_reason": reason,
		"cancelled_at":  at,
		"updated_at":    at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error cancelling booking %s: %w", uid, err)
	}
	return &b, nil
}

func (r *MongoBookingRepo) Reschedule(ctx context.Context, uid, newUID string, start, end time.Time) (*models.Booking, error) {
	filter := bson.M{
		"uid":    uid,
		"status": bson.M{"$ne": models.BookingStatusCancelled},
	}
	update := bson.M{"$set": bson.M{
		"uid":                  newUID,
		"rescheduled_from_uid": uid,
		"start":                start,
		"end":                  end,
		// A moved booking has no external event at its new time yet.
		"calendar_event_created": false,
		"updated_at":             time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if dup := classifyDuplicate(err); errors.Is(dup, ErrDuplicateSlot) {
			return nil, ErrDuplicateSlot
		}
		return nil, fmt.Errorf("error rescheduling booking %s: %w", uid, err)
	}
	return &b, nil
}

func (r *MongoBookingRepo) SetExternalEvent(ctx context.Context, uid, externalRef, meetingURL string, created bool) error {
	update := bson.M{"$set": bson.M{
		"external_event_ref":     externalRef,
		"meeting_url":            meetingURL,
		"calendar_event_created": created,
		"updated_at":             time.Now().UTC(),
	}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"uid": uid}, update); err != nil {
		return fmt.Errorf("error recording external event for booking %s: %w", uid, err)
	}
	return nil
}
