package crudboot

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListService lists domain list items, optionally restricted to a foreign key.
type ListService[L DomainObject, FK any] interface {
	List(ctx context.Context, fk *FK, currentPage, rowCount int, sort, searchPhrase string) (Page[L], error)
	All(ctx context.Context, fk *FK, sort, searchPhrase string) ([]L, error)
}

type CRUDService[D DomainObject, L DomainObject, PK comparable, FK any] interface {
	ListService[L, FK]
	Load(ctx context.Context, id PK) (D, error)
	Create(ctx context.Context, domain D) (PK, error)
	Update(ctx context.Context, domain D) (bool, error)
	Delete(ctx context.Context, id PK) (bool, error)
}

// BaseService holds what every service shares.
type BaseService struct {
	Logger *zap.Logger
	DB     *gorm.DB
}

// UnitOfWork opens a new unit of work on the service database. Units of work
// are not shared between requests.
func (s *BaseService) UnitOfWork() *UnitOfWork {
	return NewUnitOfWork(s.DB, WithLogger(s.Logger))
}

// CrudService implements CRUDService on a DomainRepository.
type CrudService[T Entity, D DomainObject, L DomainObject, PK comparable, FK any] struct {
	BaseService
	repository *DomainRepository[T, D, L, PK, FK]
}

func NewCrudService[T Entity, D DomainObject, L DomainObject, PK comparable, FK any](
	repository *DomainRepository[T, D, L, PK, FK],
	logger *zap.Logger,
) *CrudService[T, D, L, PK, FK] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrudService[T, D, L, PK, FK]{
		BaseService: BaseService{
			Logger: logger,
			DB:     repository.DB(),
		},
		repository: repository,
	}
}

func (s *CrudService[T, D, L, PK, FK]) Repository() *DomainRepository[T, D, L, PK, FK] {
	return s.repository
}

func (s *CrudService[T, D, L, PK, FK]) List(ctx context.Context, fk *FK, currentPage, rowCount int, sort, searchPhrase string) (Page[L], error) {
	if currentPage < 1 {
		currentPage = 1
	}
	return s.repository.PaginateMap(ctx, ListQuery[FK]{
		ForeignKey: fk,
		Sort:       sort,
		Search:     searchPhrase,
		Page:       currentPage,
		Size:       rowCount,
	})
}

func (s *CrudService[T, D, L, PK, FK]) All(ctx context.Context, fk *FK, sort, searchPhrase string) ([]L, error) {
	return s.repository.ListMap(ctx, ListQuery[FK]{
		ForeignKey: fk,
		Sort:       sort,
		Search:     searchPhrase,
	})
}

func (s *CrudService[T, D, L, PK, FK]) Load(ctx context.Context, id PK) (D, error) {
	return s.repository.GetDomainObject(ctx, id)
}

func (s *CrudService[T, D, L, PK, FK]) Create(ctx context.Context, domain D) (PK, error) {
	return s.repository.InsertDomainObject(ctx, domain)
}

func (s *CrudService[T, D, L, PK, FK]) Update(ctx context.Context, domain D) (bool, error) {
	return s.repository.UpdateDomainObject(ctx, domain)
}

func (s *CrudService[T, D, L, PK, FK]) Delete(ctx context.Context, id PK) (bool, error) {
	return s.repository.Delete(ctx, id)
}

// Transaction runs fn with a copy of the repository bound to a unit of work
// transaction.
func (s *CrudService[T, D, L, PK, FK]) Transaction(ctx context.Context, fn func(repository *DomainRepository[T, D, L, PK, FK]) error) error {
	uow := s.UnitOfWork()
	defer uow.Close()
	return uow.Run(ctx, func(tx *gorm.DB) error {
		return fn(s.repository.WithTx(tx))
	})
}
