package partnerRepo

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

// MongoPartnerDirectory implements PartnerDirectory using MongoDB.
type MongoPartnerDirectory struct {
	coll *mongo.Collection
}

// NewMongoPartnerDirectory creates a new PartnerDirectory backed by MongoDB.
func NewMongoPartnerDirectory() PartnerDirectory {
	coll := database.DB().Collection("partner_profiles")
	repo := &MongoPartnerDirectory{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create partner indexes: %v\n", err)
	}
	return repo
}

func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (r *MongoPartnerDirectory) ensureIndexes() error {
	ctx, cancel := newContext(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "services", Value: 1}, {Key: "verification_status", Value: 1}}},
		{Keys: bson.D{{Key: "location_geo", Value: "2dsphere"}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoPartnerDirectory) GetByID(ctx context.Context, userID string) (*models.PartnerProfile, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var partner models.PartnerProfile
	if err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&partner); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPartnerNotFound
		}
		return nil, fmt.Errorf("failed to fetch partner %s: %w", userID, err)
	}
	return &partner, nil
}

func (r *MongoPartnerDirectory) ListEligible(ctx context.Context, filters EligibilityFilters) ([]models.PartnerProfile, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if filters.Category != "" {
		filter["services"] = filters.Category
	}
	if filters.VerifiedOnly {
		filter["verification_status"] = models.VerificationVerified
	}
	if filters.OnlineOnly {
		filter["is_online"] = true
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible partners: %w", err)
	}
	defer cursor.Close(ctx)

	var partners []models.PartnerProfile
	if err := cursor.All(ctx, &partners); err != nil {
		return nil, fmt.Errorf("failed to decode partners: %w", err)
	}
	return partners, nil
}
