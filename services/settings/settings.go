package settings

import (
	"context"
	"strconv"
	"time"

	"homezy/database"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const cacheTTL = time.Minute

// Service reads runtime-overridable settings. Values live in the "settings"
// collection; absent keys fall back to the supplied default.
type Service interface {
	Get(ctx context.Context, key, def string) string
	GetInt(ctx context.Context, key string, def int) int
}

// DefaultSettingsService resolves settings Mongo-first with a short Redis
// cache in front, so ops changes take effect within a minute without a
// deploy.
type DefaultSettingsService struct {
	Coll   *mongo.Collection
	Cache  *redis.Client
	Logger *zap.Logger
}

// NewDefaultSettingsService wires the service against the shared database.
func NewDefaultSettingsService(cache *redis.Client, logger *zap.Logger) *DefaultSettingsService {
	return &DefaultSettingsService{
		Coll:   database.DB().Collection("settings"),
		Cache:  cache,
		Logger: logger,
	}
}

func (s *DefaultSettingsService) Get(ctx context.Context, key, def string) string {
	cacheKey := "setting:" + key

	if s.Cache != nil {
		if cached, err := s.Cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var doc struct {
		Value string `bson:"value"`
	}
	err := s.Coll.FindOne(lookupCtx, bson.M{"key": key}).Decode(&doc)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			s.Logger.Warn("settings lookup failed, using default",
				zap.String("key", key), zap.Error(err))
		}
		return def
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, cacheKey, doc.Value, cacheTTL)
	}
	return doc.Value
}

func (s *DefaultSettingsService) GetInt(ctx context.Context, key string, def int) int {
	raw := s.Get(ctx, key, strconv.Itoa(def))
	value, err := strconv.Atoi(raw)
	if err != nil {
		s.Logger.Warn("setting is not an integer, using default",
			zap.String("key", key), zap.String("value", raw))
		return def
	}
	return value
}
