package accountRepo

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

// MongoAccountRepo implements Repository using MongoDB.
type MongoAccountRepo struct {
	accounts  *mongo.Collection
	calendars *mongo.Collection
}

// NewMongoAccountRepo constructs an account repository.
func NewMongoAccountRepo() *MongoAccountRepo {
	db := database.DB()
	return &MongoAccountRepo{
		accounts:  db.Collection("connected_accounts"),
		calendars: db.Collection("calendars"),
	}
}

// EnsureIndexes creates account/calendar indexes, including the unique
// (account, externalCalendarId) pair.
func (r *MongoAccountRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accountIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_id"),
		},
		{
			Keys:    bson.D{{Key: "host_id", Value: 1}, {Key: "external_identity", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_host_identity"),
		},
	}
	if _, err := r.accounts.Indexes().CreateMany(ctx, accountIdx); err != nil {
		return fmt.Errorf("failed to create account indexes: %w", err)
	}

	calendarIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_id"),
		},
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "external_calendar_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_account_external"),
		},
		{
			Keys:    bson.D{{Key: "host_id", Value: 1}, {Key: "selected_for_busy", Value: 1}},
			Options: options.Index().SetName("host_selected_idx"),
		},
	}
	if _, err := r.calendars.Indexes().CreateMany(ctx, calendarIdx); err != nil {
		return fmt.Errorf("failed to create calendar indexes: %w", err)
	}
	return nil
}

func (r *MongoAccountRepo) UpsertAccount(ctx context.Context, a *models.ConnectedAccount) error {
	filter := bson.M{"host_id": a.HostID, "external_identity": a.ExternalIdentity}
	// Re-connecting keeps the stable account id so calendar records stay
	// attached. The record is decoded back so the caller sees that id.
	update := bson.M{
		"$set": bson.M{
			"provider":          a.Provider,
			"access_token_enc":  a.AccessTokenEnc,
			"refresh_token_enc": a.RefreshTokenEnc,
			"token_expiry":      a.TokenExpiry,
			"scopes":            a.Scopes,
			"valid":             a.Valid,
		},
		"$setOnInsert": bson.M{
			"id":                a.ID,
			"host_id":           a.HostID,
			"external_identity": a.ExternalIdentity,
			"created_at":        a.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	if err := r.accounts.FindOneAndUpdate(ctx, filter, update, opts).Decode(a); err != nil {
		return fmt.Errorf("error upserting connected account: %w", err)
	}
	return nil
}

func (r *MongoAccountRepo) GetAccount(ctx context.Context, id string) (*models.ConnectedAccount, error) {
	var a models.ConnectedAccount
	if err := r.accounts.FindOne(ctx, bson.M{"id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching account %s: %w", id, err)
	}
	return &a, nil
}

func (r *MongoAccountRepo) ListValidAccounts(ctx context.Context, hostID string) ([]models.ConnectedAccount, error) {
	cursor, err := r.accounts.Find(ctx, bson.M{"host_id": hostID, "valid": true})
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.ConnectedAccount
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding accounts: %w", err)
	}
	return out, nil
}

func (r *MongoAccountRepo) SaveTokens(ctx context.Context, accountID string, accessEnc, refreshEnc []byte, expiry time.Time) error {
	update := bson.M{"$set": bson.M{
		"access_token_enc": accessEnc,
		"token_expiry":     expiry,
	}}
	if len(refreshEnc) > 0 {
		update["$set"].(bson.M)["refresh_token_enc"] = refreshEnc
	}
	res, err := r.accounts.UpdateOne(ctx, bson.M{"id": accountID}, update)
	if err != nil {
		return fmt.Errorf("error saving tokens for account %s: %w", accountID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAccountRepo) MarkInvalid(ctx context.Context, accountID string) error {
	update := bson.M{"$set": bson.M{"valid": false}}
	if _, err := r.accounts.UpdateOne(ctx, bson.M{"id": accountID}, update); err != nil {
		return fmt.Errorf("error marking account %s invalid: %w", accountID, err)
	}
	return nil
}

func (r *MongoAccountRepo) TouchSync(ctx context.Context, accountID string, at time.Time) error {
	update := bson.M{"$set": bson.M{"last_sync_at": at}}
	if _, err := r.accounts.UpdateOne(ctx, bson.M{"id": accountID}, update); err != nil {
		return fmt.Errorf("error touching account %s: %w", accountID, err)
	}
	return nil
}

func (r *MongoAccountRepo) UpsertCalendar(ctx context.Context, c *models.Calendar) error {
	filter := bson.M{"account_id": c.AccountID, "external_calendar_id": c.ExternalCalendarID}
	// Selection is host controlled; reconciliation must not clobber it.
	update := bson.M{
		"$set": bson.M{
			"summary":  c.Summary,
			"writable": c.Writable,
			"host_id":  c.HostID,
		},
		"$setOnInsert": bson.M{
			"id":                   c.ID,
			"account_id":           c.AccountID,
			"external_calendar_id": c.ExternalCalendarID,
			"selected_for_busy":    c.SelectedForBusy,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.calendars.UpdateOne(ctx, filter, update, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCalendar
		}
		return fmt.Errorf("error upserting calendar: %w", err)
	}
	return nil
}

func (r *MongoAccountRepo) GetCalendar(ctx context.Context, id string) (*models.Calendar, error) {
	var c models.Calendar
	if err := r.calendars.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching calendar %s: %w", id, err)
	}
	return &c, nil
}

func (r *MongoAccountRepo) ListCalendars(ctx context.Context, hostID string) ([]models.Calendar, error) {
	return r.findCalendars(ctx, bson.M{"host_id": hostID})
}

func (r *MongoAccountRepo) ListCalendarsByIDs(ctx context.Context, ids []string) ([]models.Calendar, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.findCalendars(ctx, bson.M{"id": bson.M{"$in": ids}})
}

func (r *MongoAccountRepo) findCalendars(ctx context.Context, filter bson.M) ([]models.Calendar, error) {
	cursor, err := r.calendars.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing calendars: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Calendar
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding calendars: %w", err)
	}
	return out, nil
}

func (r *MongoAccountRepo) SetCalendarSelected(ctx context.Context, id string, selected bool) error {
	update := bson.M{"$set": bson.M{"selected_for_busy": selected}}
	res, err := r.calendars.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("error updating calendar %s selection: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
