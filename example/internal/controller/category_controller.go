package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/domain"
	"github.com/klass-lk/crudboot/example/internal/service"
	"go.uber.org/zap"
)

type CategoryController = crudboot.CrudController[*domain.Category, *domain.CategoryItem, int64, int64]

func NewCategoryController(categoryService *service.CategoryService, logger *zap.Logger, writeMiddleware ...gin.HandlerFunc) *CategoryController {
	return crudboot.NewCrudController[*domain.Category, *domain.CategoryItem, int64, int64](
		"Category", "/api/Category", categoryService, logger,
	).EnableWrites(writeMiddleware...)
}
