package service

import (
	"context"
	"errors"
	"math"

	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/domain"
	"github.com/klass-lk/crudboot/example/internal/model"
	"github.com/klass-lk/crudboot/example/internal/repository"
	"go.uber.org/zap"
)

var ErrInvalidPercent = errors.New("percent must be greater than -100")

type ProductService struct {
	*crudboot.CrudService[model.Product, *domain.Product, *domain.ProductItem, int64, int64]
}

func NewProductService(products *repository.ProductRepository, logger *zap.Logger) *ProductService {
	return &ProductService{
		CrudService: crudboot.NewCrudService(products, logger),
	}
}

// Reprice changes the price of every listed product of a category by percent
// in one transaction and returns the number of products changed.
func (s *ProductService) Reprice(ctx context.Context, categoryID int64, percent float64) (int, error) {
	if percent <= -100 {
		return 0, crudboot.ErrBadRequest.New(ErrInvalidPercent.Error())
	}

	changed := 0
	err := s.Transaction(ctx, func(products *repository.ProductRepository) error {
		records, err := products.List(ctx, crudboot.ListQuery[int64]{ForeignKey: &categoryID})
		if err != nil {
			return err
		}
		for i := range records {
			records[i].Price = math.Round(records[i].Price*(100+percent)) / 100
			updated, err := products.Update(ctx, &records[i])
			if err != nil {
				return err
			}
			if updated {
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.Logger.Info("repriced products",
		zap.Int64("category_id", categoryID),
		zap.Float64("percent", percent),
		zap.Int("changed", changed))
	return changed, nil
}
