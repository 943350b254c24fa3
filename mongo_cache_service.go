package crudboot

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const mongoCacheCollection = "cache_entries"

type mongoCacheEntry struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	Tags      []string  `bson:"tags"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// isExpired compares whole seconds, so an entry is still valid during the
// second it expires in.
func (e *mongoCacheEntry) isExpired(now time.Time) bool {
	return now.Unix() > e.ExpiresAt.Unix()
}

// MongoCacheService keeps every cache entry, tags included, in one document
// of the cache_entries collection.
type MongoCacheService struct {
	collection *mongo.Collection
	logger     *zap.Logger
	now        func() time.Time
}

func NewMongoCacheService(db *mongo.Database, logger *zap.Logger) *MongoCacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoCacheService{
		collection: db.Collection(mongoCacheCollection),
		logger:     logger.Named("cache"),
		now:        time.Now,
	}
}

// EnsureIndexes creates the tag index and a TTL index that lets MongoDB drop
// expired entries.
func (s *MongoCacheService) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	return err
}

func (s *MongoCacheService) Set(ctx context.Context, key string, data []byte, tags []string, duration time.Duration) error {
	now := s.now()
	if tags == nil {
		tags = []string{}
	}
	entry := mongoCacheEntry{
		Key:       key,
		Data:      data,
		Tags:      tags,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	var entry mongoCacheEntry
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entry.isExpired(s.now()) {
		if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
			s.logger.Warn("unable to drop expired entry", zap.String("key", key), zap.Error(err))
		}
		return nil, nil
	}
	return entry.Data, nil
}

func (s *MongoCacheService) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	result, err := s.collection.DeleteMany(ctx, bson.M{"tags": bson.M{"$in": tags}})
	if err != nil {
		return err
	}
	s.logger.Debug("invalidated", zap.Strings("tags", tags), zap.Int64("entries", result.DeletedCount))
	return nil
}

// Purge removes expired entries the TTL monitor has not reached yet.
func (s *MongoCacheService) Purge(ctx context.Context) (int64, error) {
	second := time.Unix(s.now().Unix(), 0)
	result, err := s.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": second}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
