package repository

import (
	"strings"

	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/domain"
	"github.com/klass-lk/crudboot/example/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProductRepository = crudboot.DomainRepository[model.Product, *domain.Product, *domain.ProductItem, int64, int64]

// Product lists hide discontinued products; Get still finds them by id.
var productShaper = &crudboot.QueryShaper[model.Product, int64]{
	Root: func(db *gorm.DB) *gorm.DB {
		return db.Where("products.discontinued = ?", false)
	},
	ForeignKey: func(categoryID int64) crudboot.Scope {
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("products.category_id = ?", categoryID)
		}
	},
	Search: func(phrase string) crudboot.Scope {
		pattern := "%" + strings.ToLower(strings.TrimSpace(phrase)) + "%"
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("LOWER(products.code) LIKE ? OR LOWER(products.designation) LIKE ?", pattern, pattern)
		}
	},
}

var ProductMapper = crudboot.MapperFuncs[model.Product, *domain.Product, *domain.ProductItem]{
	ToDomain: func(record *model.Product) *domain.Product {
		return &domain.Product{
			ID:           record.ID,
			CategoryID:   record.CategoryID,
			Code:         record.Code,
			Designation:  record.Designation,
			Price:        record.Price,
			Discontinued: record.Discontinued,
		}
	},
	ToListItem: func(record *model.Product) *domain.ProductItem {
		return &domain.ProductItem{
			ID:          record.ID,
			CategoryID:  record.CategoryID,
			Code:        record.Code,
			Designation: record.Designation,
			Price:       record.Price,
		}
	},
	ToRecord: func(product *domain.Product) *model.Product {
		return &model.Product{
			ID:           product.ID,
			CategoryID:   product.CategoryID,
			Code:         product.Code,
			Designation:  product.Designation,
			Price:        product.Price,
			Discontinued: product.Discontinued,
		}
	},
}

func NewProductRepository(db *gorm.DB, logger *zap.Logger, opts ...crudboot.RepositoryOption) *ProductRepository {
	opts = append([]crudboot.RepositoryOption{crudboot.WithLogger(logger)}, opts...)
	records := crudboot.NewSQLRepository[model.Product, int64](db, productShaper, opts...)
	return crudboot.NewDomainRepository(records, crudboot.Mapper[model.Product, *domain.Product, *domain.ProductItem](ProductMapper))
}
