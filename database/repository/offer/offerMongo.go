package offerRepo

import (
	"context"
	"fmt"
	"time"

	"homezy/database"
	"homezy/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOfferLedger implements OfferLedger using MongoDB.
type MongoOfferLedger struct {
	coll *mongo.Collection
}

// NewMongoOfferLedger creates a new OfferLedger backed by MongoDB.
func NewMongoOfferLedger() OfferLedger {
	coll := database.DB().Collection("job_offers")
	ledger := &MongoOfferLedger{coll: coll}
	if err := ledger.ensureIndexes(); err != nil {
		fmt.Printf("failed to create offer indexes: %v\n", err)
	}
	return ledger
}

func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (r *MongoOfferLedger) ensureIndexes() error {
	ctx, cancel := newContext(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		// Offer identity. Duplicate dispatches collide here.
		{
			Keys: bson.D{
				{Key: "booking_id", Value: 1},
				{Key: "partner_id", Value: 1},
				{Key: "batch_number", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		// Expiry sweep scan.
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		// Partner job feed.
		{Keys: bson.D{{Key: "partner_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoOfferLedger) CreateOffer(ctx context.Context, offer *models.Offer) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, offer); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOffer
		}
		return fmt.Errorf("error creating offer for booking %s: %w", offer.BookingID, err)
	}
	return nil
}

func (r *MongoOfferLedger) MarkExpired(ctx context.Context, now time.Time) ([]models.ExpiredBatch, error) {
	ctx, cancel := newContext(ctx, 15*time.Second)
	defer cancel()

	// Flip the rows first, tagging them with this sweep's ID. Each row is
	// updated atomically against the pending-status filter, so overlapping
	// sweeps divide the overdue offers between them instead of both
	// counting the same rows.
	sweepID := uuid.New().String()
	filter := bson.M{
		"status":     models.OfferStatusPending,
		"expires_at": bson.M{"$lt": now},
	}
	update := bson.M{"$set": bson.M{
		"status":        models.OfferStatusExpired,
		"expired_sweep": sweepID,
	}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to mark offers expired: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, nil
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"expired_sweep": sweepID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":          "$booking_id",
			"batch_number": bson.M{"$max": "$batch_number"},
			"offers":       bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to collect expired offers: %w", err)
	}
	var expired []models.ExpiredBatch
	if err := cursor.All(ctx, &expired); err != nil {
		return nil, fmt.Errorf("failed to decode expired offers: %w", err)
	}
	return expired, nil
}

func (r *MongoOfferLedger) AttachNotification(ctx context.Context, bookingID, partnerID string, batchNumber int, notificationID string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"booking_id":   bookingID,
		"partner_id":   partnerID,
		"batch_number": batchNumber,
	}
	update := bson.M{"$set": bson.M{"notification_id": notificationID}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error attaching notification to offer: %w", err)
	}
	return nil
}

func (r *MongoOfferLedger) MarkAccepted(ctx context.Context, bookingID, partnerID string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"booking_id": bookingID,
		"partner_id": partnerID,
		"status":     models.OfferStatusPending,
	}
	update := bson.M{"$set": bson.M{"status": models.OfferStatusAccepted}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error marking offer accepted for booking %s: %w", bookingID, err)
	}
	return nil
}

func (r *MongoOfferLedger) MarkRejected(ctx context.Context, bookingID, partnerID string) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"booking_id": bookingID,
		"partner_id": partnerID,
		"status":     models.OfferStatusPending,
	}
	update := bson.M{"$set": bson.M{"status": models.OfferStatusRejected}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error marking offer rejected for booking %s: %w", bookingID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoOfferLedger) CurrentBatch(ctx context.Context, bookingID string) (int, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().
		SetSort(bson.D{{Key: "batch_number", Value: -1}}).
		SetProjection(bson.M{"batch_number": 1})
	var result struct {
		BatchNumber int `bson:"batch_number"`
	}
	err := r.coll.FindOne(ctx, bson.M{"booking_id": bookingID}, opts).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read current batch for booking %s: %w", bookingID, err)
	}
	return result.BatchNumber, nil
}

func (r *MongoOfferLedger) ListByBooking(ctx context.Context, bookingID string) ([]models.Offer, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "batch_number", Value: 1},
		{Key: "rank_score", Value: -1},
	})
	cursor, err := r.coll.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)

	var offers []models.Offer
	if err := cursor.All(ctx, &offers); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return offers, nil
}

func (r *MongoOfferLedger) ListPendingForPartner(ctx context.Context, partnerID string, now time.Time) ([]models.Offer, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"partner_id": partnerID,
		"status":     models.OfferStatusPending,
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending offers for partner %s: %w", partnerID, err)
	}
	defer cursor.Close(ctx)

	var offers []models.Offer
	if err := cursor.All(ctx, &offers); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return offers, nil
}

func (r *MongoOfferLedger) BatchSummaries(ctx context.Context, bookingID string) ([]models.BatchSummary, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"booking_id": bookingID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"batch": "$batch_number", "status": "$status"},
			"count":   bson.M{"$sum": 1},
			"sent_at": bson.M{"$min": "$created_at"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id.batch", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate batches for booking %s: %w", bookingID, err)
	}

	var rows []struct {
		ID struct {
			Batch  int    `bson:"batch"`
			Status string `bson:"status"`
		} `bson:"_id"`
		Count  int       `bson:"count"`
		SentAt time.Time `bson:"sent_at"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode batch summaries: %w", err)
	}

	byBatch := map[int]*models.BatchSummary{}
	var order []int
	for _, row := range rows {
		summary, ok := byBatch[row.ID.Batch]
		if !ok {
			summary = &models.BatchSummary{
				BatchNumber: row.ID.Batch,
				Counts:      map[string]int{},
				SentAt:      row.SentAt,
			}
			byBatch[row.ID.Batch] = summary
			order = append(order, row.ID.Batch)
		}
		summary.Counts[row.ID.Status] = row.Count
		if row.SentAt.Before(summary.SentAt) {
			summary.SentAt = row.SentAt
		}
	}

	summaries := make([]models.BatchSummary, 0, len(order))
	for _, batch := range order {
		summaries = append(summaries, *byBatch[batch])
	}
	return summaries, nil
}
