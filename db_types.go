package crudboot

import (
	"math"

	"gorm.io/gorm"
)

// Sort field names shared by most tables.
const (
	SortFieldID          = "id"
	SortFieldName        = "name"
	SortFieldDesignation = "designation"
	SortFieldCode        = "code"
)

type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

type SortField struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Scope is a composable query predicate. Scopes applied to the same query are
// combined with AND.
type Scope func(db *gorm.DB) *gorm.DB

// ListQuery describes how a list query is shaped. A nil ForeignKey means no
// foreign-key filtering; Size <= 0 means no limit; Page is 1-based.
type ListQuery[FK any] struct {
	Filter     Scope
	ForeignKey *FK
	Sort       string
	Search     string
	Page       int
	Size       int
}

// offset reports false when the page starts beyond any addressable row.
func (q ListQuery[FK]) offset() (int, bool) {
	if q.Size <= 0 || q.Page <= 1 {
		return 0, true
	}
	if q.Page-1 > math.MaxInt/q.Size {
		return 0, false
	}
	return (q.Page - 1) * q.Size, true
}

type Page[T any] struct {
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

// Entity is a gorm model bound to a single table.
type Entity interface {
	TableName() string
}
