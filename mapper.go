package crudboot

import (
	"reflect"
)

// DomainObject is the application-facing form of a record.
type DomainObject interface {
	IsEmpty() bool
}

// Mapper converts between a record T, its domain object D and its list item L.
type Mapper[T Entity, D DomainObject, L DomainObject] interface {
	Map(record *T) (D, error)
	MapList(record *T) (L, error)
	Convert(domain D) (*T, error)
}

// MapperFuncs adapts plain functions to a Mapper. Nil records and missing
// functions yield a *MappingError.
type MapperFuncs[T Entity, D DomainObject, L DomainObject] struct {
	ToDomain   func(record *T) D
	ToListItem func(record *T) L
	ToRecord   func(domain D) *T
}

func (m MapperFuncs[T, D, L]) Map(record *T) (D, error) {
	var zero D
	if record == nil {
		return zero, mappingError[T]("no record")
	}
	if m.ToDomain == nil {
		return zero, mappingError[T]("no domain mapping configured")
	}
	return m.ToDomain(record), nil
}

func (m MapperFuncs[T, D, L]) MapList(record *T) (L, error) {
	var zero L
	if record == nil {
		return zero, mappingError[T]("no record")
	}
	if m.ToListItem == nil {
		return zero, mappingError[T]("no list mapping configured")
	}
	return m.ToListItem(record), nil
}

func (m MapperFuncs[T, D, L]) Convert(domain D) (*T, error) {
	if isNil(domain) {
		return nil, mappingError[D]("no domain object")
	}
	if m.ToRecord == nil {
		return nil, mappingError[T]("no record conversion configured")
	}
	record := m.ToRecord(domain)
	if record == nil {
		return nil, mappingError[D]("conversion produced no record")
	}
	return record, nil
}

// Clone returns a shallow copy of d. Pointer domain objects are copied one
// level deep; everything else is returned by value.
func Clone[D any](d D) D {
	v := reflect.ValueOf(d)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return d
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(D)
}

// IsEmptyValue reports whether every field of v holds its zero value.
func IsEmptyValue(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	return !rv.IsValid() || rv.IsZero()
}

func mappingError[X any](reason string) *MappingError {
	return &MappingError{Type: reflect.TypeOf((*X)(nil)).Elem().String(), Reason: reason}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
