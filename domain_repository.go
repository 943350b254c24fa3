package crudboot

import (
	"context"

	"gorm.io/gorm"
)

// DomainRepository serves domain objects D and list items L on top of the
// records T of an SQLRepository.
type DomainRepository[T Entity, D DomainObject, L DomainObject, PK comparable, FK any] struct {
	*SQLRepository[T, PK, FK]
	mapper Mapper[T, D, L]
}

func NewDomainRepository[T Entity, D DomainObject, L DomainObject, PK comparable, FK any](
	repository *SQLRepository[T, PK, FK],
	mapper Mapper[T, D, L],
) *DomainRepository[T, D, L, PK, FK] {
	return &DomainRepository[T, D, L, PK, FK]{
		SQLRepository: repository,
		mapper:        mapper,
	}
}

func (r *DomainRepository[T, D, L, PK, FK]) Mapper() Mapper[T, D, L] {
	return r.mapper
}

func (r *DomainRepository[T, D, L, PK, FK]) WithTx(tx *gorm.DB) *DomainRepository[T, D, L, PK, FK] {
	return NewDomainRepository(r.SQLRepository.WithTx(tx), r.mapper)
}

// GetDomainObject loads and maps the record with the given key. A missing
// record surfaces as a *MappingError.
func (r *DomainRepository[T, D, L, PK, FK]) GetDomainObject(ctx context.Context, id PK) (D, error) {
	record, err := r.Get(ctx, id)
	if err != nil {
		var zero D
		return zero, err
	}
	return r.mapper.Map(record)
}

func (r *DomainRepository[T, D, L, PK, FK]) GetDomainObjectAsync(ctx context.Context, id PK) <-chan Result[D] {
	return runAsync(func() (D, error) {
		return r.GetDomainObject(ctx, id)
	})
}

func (r *DomainRepository[T, D, L, PK, FK]) PaginateMap(ctx context.Context, q ListQuery[FK]) (Page[L], error) {
	page, err := r.Paginate(ctx, q)
	if err != nil {
		return Page[L]{}, err
	}
	items, err := r.mapList(page.Items)
	if err != nil {
		return Page[L]{}, err
	}
	return Page[L]{Total: page.Total, Items: items}, nil
}

func (r *DomainRepository[T, D, L, PK, FK]) PaginateMapAsync(ctx context.Context, q ListQuery[FK]) <-chan Result[Page[L]] {
	return runAsync(func() (Page[L], error) {
		return r.PaginateMap(ctx, q)
	})
}

func (r *DomainRepository[T, D, L, PK, FK]) ListMap(ctx context.Context, q ListQuery[FK]) ([]L, error) {
	records, err := r.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.mapList(records)
}

func (r *DomainRepository[T, D, L, PK, FK]) ListMapAsync(ctx context.Context, q ListQuery[FK]) <-chan Result[[]L] {
	return runAsync(func() ([]L, error) {
		return r.ListMap(ctx, q)
	})
}

func (r *DomainRepository[T, D, L, PK, FK]) InsertDomainObject(ctx context.Context, domain D, opts ...WriteOption) (PK, error) {
	record, err := r.mapper.Convert(domain)
	if err != nil {
		var zero PK
		return zero, err
	}
	return r.Insert(ctx, record, opts...)
}

func (r *DomainRepository[T, D, L, PK, FK]) UpdateDomainObject(ctx context.Context, domain D, opts ...WriteOption) (bool, error) {
	record, err := r.mapper.Convert(domain)
	if err != nil {
		return false, err
	}
	return r.Update(ctx, record, opts...)
}

func (r *DomainRepository[T, D, L, PK, FK]) InsertOrUpdateDomainObject(ctx context.Context, domain D, opts ...WriteOption) (bool, error) {
	record, err := r.mapper.Convert(domain)
	if err != nil {
		return false, err
	}
	return r.InsertOrUpdate(ctx, record, opts...)
}

func (r *DomainRepository[T, D, L, PK, FK]) mapList(records []T) ([]L, error) {
	items := make([]L, 0, len(records))
	for i := range records {
		item, err := r.mapper.MapList(&records[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
