package repository

import (
	"fmt"
	"strings"

	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/domain"
	"github.com/klass-lk/crudboot/example/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CategoryRepository = crudboot.DomainRepository[model.Category, *domain.Category, *domain.CategoryItem, int64, int64]

// Categories have no parent, so a foreign key on a category list is rejected.
var categoryShaper = &crudboot.QueryShaper[model.Category, int64]{
	Search: func(phrase string) crudboot.Scope {
		pattern := "%" + strings.ToLower(strings.TrimSpace(phrase)) + "%"
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("LOWER(categories.code) LIKE ? OR LOWER(categories.designation) LIKE ?", pattern, pattern)
		}
	},
	SortColumn: func(field string) (string, error) {
		switch strings.ToLower(field) {
		case crudboot.SortFieldID:
			return "categories.id", nil
		case crudboot.SortFieldCode:
			return "categories.code", nil
		case crudboot.SortFieldDesignation, crudboot.SortFieldName:
			return "categories.designation", nil
		}
		return "", fmt.Errorf("%w %q on categories", crudboot.ErrUnknownSortField, field)
	},
}

var CategoryMapper = crudboot.MapperFuncs[model.Category, *domain.Category, *domain.CategoryItem]{
	ToDomain: func(record *model.Category) *domain.Category {
		return &domain.Category{
			ID:          record.ID,
			Code:        record.Code,
			Designation: record.Designation,
		}
	},
	ToListItem: func(record *model.Category) *domain.CategoryItem {
		return &domain.CategoryItem{
			ID:          record.ID,
			Designation: record.Designation,
		}
	},
	ToRecord: func(category *domain.Category) *model.Category {
		return &model.Category{
			ID:          category.ID,
			Code:        category.Code,
			Designation: category.Designation,
		}
	},
}

func NewCategoryRepository(db *gorm.DB, logger *zap.Logger, opts ...crudboot.RepositoryOption) *CategoryRepository {
	opts = append([]crudboot.RepositoryOption{crudboot.WithLogger(logger)}, opts...)
	records := crudboot.NewSQLRepository[model.Category, int64](db, categoryShaper, opts...)
	return crudboot.NewDomainRepository(records, crudboot.Mapper[model.Category, *domain.Category, *domain.CategoryItem](CategoryMapper))
}
