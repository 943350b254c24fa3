package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/controller"
	"github.com/klass-lk/crudboot/example/internal/middleware"
	"github.com/klass-lk/crudboot/example/internal/model"
	"github.com/klass-lk/crudboot/example/internal/repository"
	"github.com/klass-lk/crudboot/example/internal/service"
	"github.com/klass-lk/crudboot/security"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const cacheTTL = time.Minute

type Options struct {
	Encoder security.PasswordEncoder
	// Cache defaults to a SQL cache in the application database.
	Cache crudboot.CacheService
	// Files enables product images.
	Files      crudboot.FileService
	Repository []crudboot.RepositoryOption
}

type App struct {
	Server *crudboot.Server
	Cache  crudboot.CacheService
	Auth   *service.AuthService
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.User{},
		&crudboot.CacheEntry{},
		&crudboot.CacheTag{},
	)
}

// New wires repositories, services and controllers onto a server.
// Writes require an access token with the admin role.
func New(db *gorm.DB, logger *zap.Logger, opts Options) *App {
	server := crudboot.New(logger)
	server.DefaultCORS()

	cache := opts.Cache
	if cache == nil {
		cache = crudboot.NewSQLCacheService(db, logger)
	}
	repoOpts := opts.Repository

	categoryService := service.NewCategoryService(repository.NewCategoryRepository(db, logger, repoOpts...), logger)
	productService := service.NewProductService(repository.NewProductRepository(db, logger, repoOpts...), logger)
	authService := service.NewAuthService(repository.NewUserRepository(db, logger, repoOpts...), opts.Encoder, logger)

	writeMiddleware := []gin.HandlerFunc{crudboot.JWTAuthMiddleware(), middleware.RequireRole("admin")}

	categoryController := controller.NewCategoryController(categoryService, logger, writeMiddleware...).
		WithCache(cache, cacheTTL)
	productController := controller.NewProductController(productService, logger, writeMiddleware...)
	productController.WithCache(cache, cacheTTL)
	if opts.Files != nil {
		productController.WithImages(opts.Files)
	}

	server.RegisterControllers(
		controller.NewAuthController(authService, logger),
		categoryController,
		productController,
	)
	return &App{Server: server, Cache: cache, Auth: authService}
}
