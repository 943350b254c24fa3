package crudboot

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ParseSort reads a sort spec such as "code", "code.desc" or
// "designation.asc,id.desc". Anything but a ".desc" suffix sorts ascending.
func ParseSort(spec string) []SortField {
	var fields []SortField
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field := SortField{Field: part, Direction: Ascending}
		if i := strings.LastIndex(part, "."); i > 0 {
			field.Field = part[:i]
			if strings.EqualFold(part[i+1:], "desc") {
				field.Direction = Descending
			}
		}
		fields = append(fields, field)
	}
	return fields
}

func (s SortField) String() string {
	if s.Direction == Descending {
		return s.Field + ".desc"
	}
	return s.Field + ".asc"
}

// ApplySorting orders the query by column. When the query is already ordered
// the column is added as a secondary key.
func ApplySorting(db *gorm.DB, column string, direction SortDirection) *gorm.DB {
	return db.Order(clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   direction == Descending,
	})
}
