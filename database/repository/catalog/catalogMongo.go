package catalogRepo

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

// MongoServiceCatalog implements ServiceCatalog using MongoDB.
type MongoServiceCatalog struct {
	coll *mongo.Collection
}

// NewMongoServiceCatalog creates a new ServiceCatalog backed by MongoDB.
func NewMongoServiceCatalog() ServiceCatalog {
	coll := database.DB().Collection("services")
	repo := &MongoServiceCatalog{coll: coll}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "active", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		fmt.Printf("failed to create service indexes: %v\n", err)
	}
	return repo
}

func (r *MongoServiceCatalog) GetByID(ctx context.Context, id string) (*models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var service models.Service
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&service); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to fetch service %s: %w", id, err)
	}
	return &service, nil
}

func (r *MongoServiceCatalog) ListActive(ctx context.Context, category string) ([]models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"active": true}
	if category != "" {
		filter["category"] = category
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []models.Service
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return services, nil
}
