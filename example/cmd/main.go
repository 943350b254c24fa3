package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/app"
	"github.com/klass-lk/crudboot/security"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

func main() {
	// .env is optional; real deployments use the environment.
	_ = godotenv.Load()

	logger := crudboot.NewLogger(os.Getenv("APP_ENV"))
	defer logger.Sync()
	ctx := context.Background()

	if err := crudboot.ValidateSecrets(); err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}

	config, err := crudboot.LoadSQLConfigFromEnv("DB")
	if err != nil {
		logger.Fatal("invalid database configuration", zap.Error(err))
	}
	db, err := config.Open(logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("name", config.Name), zap.Error(err))
	}
	if err := app.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	port := 8080
	if value := os.Getenv("PORT"); value != "" {
		if port, err = strconv.Atoi(value); err != nil {
			logger.Fatal("invalid PORT", zap.String("port", value))
		}
	}

	opts := app.Options{Repository: []crudboot.RepositoryOption{crudboot.WithIsolation(config.Isolation)}}
	if opts.Encoder, err = passwordEncoder(); err != nil {
		logger.Fatal("invalid password encoder configuration", zap.Error(err))
	}
	if opts.Cache, err = cacheService(ctx, db, logger); err != nil {
		logger.Fatal("failed to configure cache", zap.Error(err))
	}
	if s3Config := crudboot.LoadS3ConfigFromEnv("FILES"); s3Config != nil {
		files, err := crudboot.NewS3FileServiceFromConfig(ctx, s3Config, logger)
		if err != nil {
			logger.Fatal("failed to configure file storage", zap.Error(err))
		}
		opts.Files = files
	}

	application := app.New(db, logger, opts)

	if username, password := os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD"); username != "" && password != "" {
		if _, err := application.Auth.EnsureUser(ctx, username, password, "admin"); err != nil {
			logger.Fatal("failed to create admin user", zap.Error(err))
		}
	}

	if cache, ok := application.Cache.(purger); ok {
		go purgeCache(ctx, cache, logger)
	}

	if err := application.Server.Start(port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func passwordEncoder() (security.PasswordEncoder, error) {
	if os.Getenv("PASSWORD_ENCODER") == "pbkdf2" {
		encoder, err := security.NewPBKDF2EncoderFromEnv()
		if err != nil {
			return nil, err
		}
		return encoder, nil
	}
	return security.NewBcryptEncoder(bcrypt.DefaultCost), nil
}

// cacheService picks the response cache from CACHE_BACKEND: sql (default),
// dynamodb or mongo.
func cacheService(ctx context.Context, db *gorm.DB, logger *zap.Logger) (crudboot.CacheService, error) {
	switch os.Getenv("CACHE_BACKEND") {
	case "dynamodb":
		config := crudboot.LoadDynamoDBConfigFromEnv("CACHE_DYNAMO")
		client, err := config.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		cache := crudboot.NewDynamoDBCacheService(client, config, logger)
		return cache, cache.EnsureTable(ctx)
	case "mongo":
		config, err := crudboot.LoadMongoConfigFromEnv("CACHE_MONGO")
		if err != nil {
			return nil, err
		}
		database, err := config.Connect(ctx)
		if err != nil {
			return nil, err
		}
		cache := crudboot.NewMongoCacheService(database, logger)
		return cache, cache.EnsureIndexes(ctx)
	default:
		return crudboot.NewSQLCacheService(db, logger), nil
	}
}

func purgeCache(ctx context.Context, cache purger, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := cache.Purge(ctx)
			if err != nil {
				logger.Warn("cache purge failed", zap.Error(err))
				continue
			}
			logger.Debug("cache purged", zap.Int64("entries", purged))
		}
	}
}
