package crudboot

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheService stores response bodies under a key and drops them by tag.
type CacheService interface {
	// Set stores data under key for duration, replacing the tags of key.
	Set(ctx context.Context, key string, data []byte, tags []string, duration time.Duration) error

	// Get returns nil, nil on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, error)

	// Invalidate removes every entry carrying one of tags.
	Invalidate(ctx context.Context, tags ...string) error
}

// SQLCacheService keeps the cache in the cache_entries and cache_tags tables
// so every instance behind a load balancer sees the same entries.
type SQLCacheService struct {
	db      *gorm.DB
	entries *SQLRepository[CacheEntry, string, string]
	tags    *SQLRepository[CacheTag, string, string]
	logger  *zap.Logger
	now     func() time.Time
}

func NewSQLCacheService(db *gorm.DB, logger *zap.Logger) *SQLCacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("cache")
	return &SQLCacheService{
		db:      db,
		entries: NewSQLRepository[CacheEntry, string, string](db, nil, WithLogger(logger)),
		tags:    NewSQLRepository[CacheTag, string, string](db, nil, WithLogger(logger)),
		logger:  logger,
		now:     time.Now,
	}
}

// Migrate creates the cache tables.
func (s *SQLCacheService) Migrate() error {
	return s.db.AutoMigrate(&CacheEntry{}, &CacheTag{})
}

func (s *SQLCacheService) Set(ctx context.Context, key string, data []byte, tags []string, duration time.Duration) error {
	now := s.now()
	expiresAt := now.Add(duration).Unix()

	uow := NewUnitOfWork(s.db, WithLogger(s.logger))
	defer uow.Close()
	return uow.Run(ctx, func(tx *gorm.DB) error {
		entries, tagRows := s.entries.WithTx(tx), s.tags.WithTx(tx)

		if _, err := entries.InsertOrUpdate(ctx, &CacheEntry{
			Key:       key,
			Data:      data,
			ExpiresAt: expiresAt,
			CreatedAt: now.Unix(),
		}); err != nil {
			return err
		}

		if err := tagRows.Find(ctx, whereIn("cache_key", []string{key})).Delete(&CacheTag{}).Error; err != nil {
			return err
		}
		for _, tag := range tags {
			if _, err := tagRows.InsertOrUpdate(ctx, &CacheTag{
				ID:        tag + ":" + key,
				Tag:       tag,
				CacheKey:  key,
				ExpiresAt: expiresAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.entries.Get(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}
	if entry.IsExpired(s.now()) {
		if _, err := s.entries.Delete(ctx, key, WithoutTransaction()); err != nil {
			s.logger.Warn("unable to drop expired entry", zap.String("key", key), zap.Error(err))
		}
		return nil, nil
	}
	return entry.Data, nil
}

func (s *SQLCacheService) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	uow := NewUnitOfWork(s.db, WithLogger(s.logger))
	defer uow.Close()
	return uow.Run(ctx, func(tx *gorm.DB) error {
		entries, tagRows := s.entries.WithTx(tx), s.tags.WithTx(tx)

		var keys []string
		if err := tagRows.Find(ctx, whereIn("tag", tags)).Distinct().Pluck("cache_key", &keys).Error; err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := entries.Find(ctx, whereIn("key", keys)).Delete(&CacheEntry{}).Error; err != nil {
				return err
			}
			if err := tagRows.Find(ctx, whereIn("cache_key", keys)).Delete(&CacheTag{}).Error; err != nil {
				return err
			}
		}
		s.logger.Debug("invalidated", zap.Strings("tags", tags), zap.Int("entries", len(keys)))
		return nil
	})
}

// Purge removes every expired entry and its tags.
func (s *SQLCacheService) Purge(ctx context.Context) (int64, error) {
	now := s.now().Unix()
	expired := func(db *gorm.DB) *gorm.DB {
		return db.Where("expires_at < ?", now)
	}

	var purged int64
	uow := NewUnitOfWork(s.db, WithLogger(s.logger))
	defer uow.Close()
	err := uow.Run(ctx, func(tx *gorm.DB) error {
		result := s.entries.WithTx(tx).Find(ctx, expired).Delete(&CacheEntry{})
		if result.Error != nil {
			return result.Error
		}
		purged = result.RowsAffected
		return s.tags.WithTx(tx).Find(ctx, expired).Delete(&CacheTag{}).Error
	})
	return purged, err
}

func whereIn(column string, values []string) Scope {
	in := clause.IN{Column: clause.Column{Name: column}, Values: make([]any, len(values))}
	for i, v := range values {
		in.Values[i] = v
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(in)
	}
}
