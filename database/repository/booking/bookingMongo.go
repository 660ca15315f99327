package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"homezy/database"
	"homezy/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo creates a new BookingRepository backed by MongoDB.
func NewMongoBookingRepo() BookingRepository {
	coll := database.DB().Collection("bookings")
	repo := &MongoBookingRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create booking indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := newContext(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "partner_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) GetStatus(ctx context.Context, id string) (string, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"status": 1})
	var result struct {
		Status string `bson:"status"`
	}
	if err := r.coll.FindOne(ctx, bson.M{"id": id}, opts).Decode(&result); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", ErrBookingNotFound
		}
		return "", fmt.Errorf("failed to fetch booking status for %s: %w", id, err)
	}
	return result.Status, nil
}

func (r *MongoBookingRepo) list(ctx context.Context, filter bson.M, statuses []string) ([]models.Booking, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *MongoBookingRepo) ListByCustomer(ctx context.Context, customerID string, statuses []string) ([]models.Booking, error) {
	return r.list(ctx, bson.M{"customer_id": customerID}, statuses)
}

func (r *MongoBookingRepo) ListByPartner(ctx context.Context, partnerID string, statuses []string) ([]models.Booking, error) {
	return r.list(ctx, bson.M{"partner_id": partnerID}, statuses)
}

func (r *MongoBookingRepo) AssignPartner(ctx context.Context, id, partnerID string) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":     id,
		"status": models.BookingStatusPending,
		"$or": bson.A{
			bson.M{"partner_id": bson.M{"$exists": false}},
			bson.M{"partner_id": ""},
		},
	}
	update := bson.M{"$set": bson.M{
		"partner_id": partnerID,
		"status":     models.BookingStatusConfirmed,
		"updated_at": time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error assigning partner to booking %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBookingRepo) ClaimNextBatch(ctx context.Context, id string, fromBatch int) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":            id,
		"status":        models.BookingStatusPending,
		"current_batch": fromBatch,
	}
	update := bson.M{"$set": bson.M{
		"current_batch": fromBatch + 1,
		"updated_at":    time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error claiming batch %d for booking %s: %w", fromBatch+1, id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBookingRepo) MarkExhausted(ctx context.Context, id string) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "dispatch_exhausted": false}
	update := bson.M{"$set": bson.M{
		"dispatch_exhausted": true,
		"updated_at":         time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error marking booking %s exhausted: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBookingRepo) UpdateStatusOwned(ctx context.Context, id, partnerID, status string) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "partner_id": partnerID}
	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error updating status of booking %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBookingRepo) CancelByCustomer(ctx context.Context, id, customerID string) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":          id,
		"customer_id": customerID,
		"status":      bson.M{"$in": bson.A{models.BookingStatusPending, models.BookingStatusConfirmed}},
	}
	update := bson.M{"$set": bson.M{
		"status":     models.BookingStatusCancelled,
		"updated_at": time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error cancelling booking %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBookingRepo) CountCompletedWith(ctx context.Context, partnerID, customerID string) (int, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"partner_id":  partnerID,
		"customer_id": customerID,
		"status":      models.BookingStatusCompleted,
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed bookings: %w", err)
	}
	return int(count), nil
}
