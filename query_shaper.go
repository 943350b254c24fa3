package crudboot

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// QueryShaper builds filtered, sorted and paginated queries for one table.
// Every hook is optional; a foreign key passed without a ForeignKey hook is a
// configuration error, a search phrase without a Search hook is ignored.
type QueryShaper[T Entity, FK any] struct {
	// ForeignKey restricts a query to rows referencing fk.
	ForeignKey func(fk FK) Scope
	// Search turns a free-text phrase into a predicate.
	Search func(phrase string) Scope
	// SortColumn resolves a sort field name to a column. By default the field
	// is looked up in the model schema by Go name or column name.
	SortColumn func(field string) (string, error)
	// Root replaces the base query (joins, preloads, narrower selects).
	Root func(db *gorm.DB) *gorm.DB
}

// Shape returns the filtered and sorted query described by q, ignoring
// pagination.
func (s *QueryShaper[T, FK]) Shape(db *gorm.DB, q ListQuery[FK]) (*gorm.DB, error) {
	filtered, sch, err := s.filter(db, q)
	if err != nil {
		return nil, err
	}
	return s.sort(filtered, sch, q.Sort)
}

// List is Shape limited to q.Size rows when q.Size > 0.
func (s *QueryShaper[T, FK]) List(db *gorm.DB, q ListQuery[FK]) (*gorm.DB, error) {
	query, err := s.Shape(db, q)
	if err != nil {
		return nil, err
	}
	if q.Size > 0 {
		query = query.Limit(q.Size)
	}
	return query, nil
}

// Paginate returns the page of rows described by q together with the number
// of rows matching the filters before pagination.
func (s *QueryShaper[T, FK]) Paginate(db *gorm.DB, q ListQuery[FK]) (*gorm.DB, int64, error) {
	filtered, sch, err := s.filter(db, q)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query, err := s.sort(filtered, sch, q.Sort)
	if err != nil {
		return nil, 0, err
	}
	offset, ok := q.offset()
	if !ok {
		return query.Where("1 = 0"), total, nil
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if q.Size > 0 {
		query = query.Limit(q.Size)
	}
	return query, total, nil
}

func (s *QueryShaper[T, FK]) filter(db *gorm.DB, q ListQuery[FK]) (*gorm.DB, *schema.Schema, error) {
	sch, err := parseSchema[T](db)
	if err != nil {
		return nil, nil, err
	}

	query := db.Model(new(T))
	if s != nil && s.Root != nil {
		query = s.Root(query)
	}
	if q.Filter != nil {
		query = query.Scopes(q.Filter)
	}
	if q.ForeignKey != nil {
		if s == nil || s.ForeignKey == nil {
			return nil, nil, fmt.Errorf("%s: %w", sch.Table, ErrForeignKeyFilterMissing)
		}
		query = query.Scopes(s.ForeignKey(*q.ForeignKey))
	}
	if s != nil && s.Search != nil && strings.TrimSpace(q.Search) != "" {
		if scope := s.Search(q.Search); scope != nil {
			query = query.Scopes(scope)
		}
	}
	return query.Session(&gorm.Session{}), sch, nil
}

func (s *QueryShaper[T, FK]) sort(db *gorm.DB, sch *schema.Schema, spec string) (*gorm.DB, error) {
	pk := ""
	if sch.PrioritizedPrimaryField != nil {
		pk = sch.Table + "." + sch.PrioritizedPrimaryField.DBName
	}

	fields := ParseSort(spec)
	if len(fields) == 0 {
		if pk == "" {
			return db, nil
		}
		return ApplySorting(db, pk, Ascending), nil
	}

	last := Ascending
	sortedByPK := false
	for _, f := range fields {
		column, err := s.column(sch, f.Field)
		if err != nil {
			return nil, err
		}
		db = ApplySorting(db, column, f.Direction)
		last = f.Direction
		sortedByPK = sortedByPK || column == pk
	}
	if pk != "" && !sortedByPK {
		db = ApplySorting(db, pk, last)
	}
	return db, nil
}

func (s *QueryShaper[T, FK]) column(sch *schema.Schema, field string) (string, error) {
	if s != nil && s.SortColumn != nil {
		return s.SortColumn(field)
	}
	if f := lookUpField(sch, field); f != nil && f.DBName != "" {
		return sch.Table + "." + f.DBName, nil
	}
	return "", fmt.Errorf("%w %q on %s", ErrUnknownSortField, field, sch.Table)
}

func lookUpField(sch *schema.Schema, name string) *schema.Field {
	if f := sch.LookUpField(name); f != nil {
		return f
	}
	for _, f := range sch.Fields {
		if strings.EqualFold(f.Name, name) || strings.EqualFold(f.DBName, name) {
			return f
		}
	}
	return nil
}

func parseSchema[T Entity](db *gorm.DB) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, err
	}
	return stmt.Schema, nil
}
