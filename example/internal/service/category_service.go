package service

import (
	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/domain"
	"github.com/klass-lk/crudboot/example/internal/model"
	"github.com/klass-lk/crudboot/example/internal/repository"
	"go.uber.org/zap"
)

type CategoryService = crudboot.CrudService[model.Category, *domain.Category, *domain.CategoryItem, int64, int64]

func NewCategoryService(categories *repository.CategoryRepository, logger *zap.Logger) *CategoryService {
	return crudboot.NewCrudService(categories, logger)
}
