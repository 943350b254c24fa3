package repository

import (
	"context"

	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserRepository struct {
	*crudboot.SQLRepository[model.User, int64, int64]
}

func NewUserRepository(db *gorm.DB, logger *zap.Logger, opts ...crudboot.RepositoryOption) *UserRepository {
	opts = append([]crudboot.RepositoryOption{crudboot.WithLogger(logger)}, opts...)
	return &UserRepository{
		SQLRepository: crudboot.NewSQLRepository[model.User, int64, int64](db, nil, opts...),
	}
}

// FindByUsername returns nil when no user has the name.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var users []model.User
	err := r.Find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("users.username = ?", username)
	}).Limit(1).Find(&users).Error
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}
